package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/sukryu/gqpanel/pkg/controllers"
	"github.com/sukryu/gqpanel/pkg/errors"
)

// RequireAccess lets the request through only when the caller's role grants
// verb on resource in apiGroup.
func RequireAccess(rbac controllers.RBACController, verb, resource, apiGroup string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil {
			c.Error(errors.ErrUnauthenticated)
			c.Abort()
			return
		}

		allowed, err := rbac.CheckAccess(c.Request.Context(), principal, verb, resource, apiGroup)
		if err != nil {
			c.Error(errors.ErrInternal.WithReason("failed to check access"))
			c.Abort()
			return
		}
		if !allowed {
			c.Error(errors.ErrPermissionDenied.WithReason(fmt.Sprintf("%s %s/%s", verb, apiGroup, resource)))
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole restricts a route group to callers holding one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil {
			c.Error(errors.ErrUnauthenticated)
			c.Abort()
			return
		}
		for _, r := range roles {
			if principal.Role == r {
				c.Next()
				return
			}
		}
		c.Error(errors.ErrForbidden.WithReason("insufficient role"))
		c.Abort()
	}
}
