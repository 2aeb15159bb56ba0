package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v4"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/controllers"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/utils/jwt"
)

// PrincipalKey is the gin context key of the authenticated *v1alpha1.Principal.
const PrincipalKey = "principal"

// JWTAuth accepts a bearer token and stores the caller's Principal, with its
// permitted entity set resolved, on the context.
func JWTAuth(jwtManager *jwt.JWTManager, rbac controllers.RBACController) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Error(errors.ErrUnauthenticated.WithReason("authorization header required"))
			c.Abort()
			return
		}

		bearerToken := strings.Fields(authHeader)
		if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "Bearer") {
			c.Error(errors.ErrInvalidToken.WithReason("invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(bearerToken[1])
		if err != nil {
			if stderrors.Is(err, jwtlib.ErrTokenExpired) {
				c.Error(errors.ErrTokenExpired)
			} else {
				c.Error(errors.ErrInvalidToken)
			}
			c.Abort()
			return
		}

		c.Set(PrincipalKey, rbac.PrincipalFor(claims.AccountID, claims.Email, claims.Role))
		c.Next()
	}
}

// PrincipalFrom returns the caller set by JWTAuth, or nil.
func PrincipalFrom(c *gin.Context) *v1alpha1.Principal {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*v1alpha1.Principal)
	return p
}
