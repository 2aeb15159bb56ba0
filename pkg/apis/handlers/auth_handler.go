package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/controllers"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/utils/jwt"
)

type AuthHandler struct {
	controller controllers.AuthController
	jwtManager *jwt.JWTManager
}

func NewAuthHandler(controller controllers.AuthController, jwtManager *jwt.JWTManager) *AuthHandler {
	return &AuthHandler{
		controller: controller,
		jwtManager: jwtManager,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req v1alpha1.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(errors.ErrInvalidInput.WithReason("email and password are required"))
		return
	}

	principal, err := h.controller.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(principal.AccountID, principal.Email, principal.Role)
	if err != nil {
		c.Error(errors.ErrInternal.WithReason("failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, v1alpha1.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Role:      principal.Role,
	})
}

type meResponse struct {
	*v1alpha1.Principal
	Tables []string `json:"tables"`
}

// Me describes the caller and the tables it may open.
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	tables := p.Permitted.UnsortedList()
	sort.Strings(tables)
	c.JSON(http.StatusOK, meResponse{Principal: p, Tables: tables})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.ErrInvalidInput.WithReason("old_password and new_password are required"))
		return
	}

	if err := h.controller.ChangePassword(c.Request.Context(), p.AccountID, req.OldPassword, req.NewPassword); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
