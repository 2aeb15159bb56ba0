package controllers

import (
	"context"
	stderrors "errors"

	"github.com/spf13/cast"
	"golang.org/x/crypto/bcrypt"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/store/dynamic"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// AuthController defines authentication operations
type AuthController interface {
	Login(ctx context.Context, email, password string) (*v1alpha1.Principal, error)
	ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error
}

type authController struct {
	store    dynamic.DynamicStore
	rbac     RBACController
	accounts *schema.EntitySchema
	roles    *schema.EntitySchema
}

func NewAuthController(store dynamic.DynamicStore, rbac RBACController) AuthController {
	reg := schema.Airline()
	return &authController{
		store:    store,
		rbac:     rbac,
		accounts: reg.MustLookup(schema.KindAccount),
		roles:    reg.MustLookup(schema.KindRole),
	}
}

func (c *authController) Login(ctx context.Context, email, password string) (*v1alpha1.Principal, error) {
	if email == "" || password == "" {
		return nil, errors.ErrInvalidInput.WithReason("email and password are required")
	}

	rows, err := c.store.List(ctx, c.accounts, dynamic.ListOptions{
		Filter: map[string]interface{}{"email": email},
		Limit:  1,
	})
	if err != nil {
		return nil, errors.ErrStorageOperation.WithReason(errors.FriendlyMessage(err, "login"))
	}
	if len(rows) == 0 {
		return nil, errors.ErrInvalidCredentials
	}
	account := rows[0]

	hash := cast.ToString(account["password"])
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	role, err := c.store.Get(ctx, c.roles, account["role_id"])
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return nil, errors.ErrForbidden.WithReason("account has no role")
		}
		return nil, errors.ErrStorageOperation.WithReason(errors.FriendlyMessage(err, "login"))
	}

	return c.rbac.PrincipalFor(
		cast.ToInt64(account[c.accounts.PrimaryKey]),
		cast.ToString(account["email"]),
		cast.ToString(role["role_name"]),
	), nil
}

func (c *authController) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error {
	if newPassword == "" {
		return errors.ErrInvalidInput.WithReason("new password is required")
	}

	account, err := c.store.Get(ctx, c.accounts, accountID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cast.ToString(account["password"])), []byte(oldPassword)); err != nil {
		return errors.ErrInvalidCredentials.WithReason("invalid old password")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.ErrInternal.WithReason("failed to hash new password")
	}

	return c.store.Update(ctx, c.accounts, accountID, map[string]interface{}{"password": string(hashedPassword)})
}
