package controllers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/mocks"
	"github.com/sukryu/gqpanel/pkg/store/dynamic"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(h)
}

func byEmail(email string) interface{} {
	return mock.MatchedBy(func(opts dynamic.ListOptions) bool {
		return opts.Filter["email"] == email && opts.Limit == 1
	})
}

func isKind(kind schema.EntityKind) interface{} {
	return mock.MatchedBy(func(e *schema.EntitySchema) bool { return e.Kind == kind })
}

func TestAuthController_Login(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		setupMock func(*testing.T, *mocks.MockDynamicStore)
		wantRole  string
		wantErr   error
	}{
		{
			name:     "successful login",
			email:    "manager@example.com",
			password: "password123",
			setupMock: func(t *testing.T, ms *mocks.MockDynamicStore) {
				ms.On("List", mock.Anything, isKind(schema.KindAccount), byEmail("manager@example.com")).
					Return([]map[string]interface{}{{
						"id_account": int64(5), "email": "manager@example.com",
						"password": hashed(t, "password123"), "role_id": int64(2),
					}}, nil)
				ms.On("Get", mock.Anything, isKind(schema.KindRole), int64(2)).
					Return(map[string]interface{}{"id_role": int64(2), "role_name": "MANAGER"}, nil)
			},
			wantRole: v1alpha1.RoleManager,
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "password123",
			setupMock: func(t *testing.T, ms *mocks.MockDynamicStore) {
				ms.On("List", mock.Anything, isKind(schema.KindAccount), byEmail("nobody@example.com")).
					Return([]map[string]interface{}{}, nil)
			},
			wantErr: errors.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "manager@example.com",
			password: "wrong",
			setupMock: func(t *testing.T, ms *mocks.MockDynamicStore) {
				ms.On("List", mock.Anything, isKind(schema.KindAccount), byEmail("manager@example.com")).
					Return([]map[string]interface{}{{
						"id_account": int64(5), "password": hashed(t, "password123"), "role_id": int64(2),
					}}, nil)
			},
			wantErr: errors.ErrInvalidCredentials,
		},
		{
			name:     "storage failure",
			email:    "manager@example.com",
			password: "password123",
			setupMock: func(t *testing.T, ms *mocks.MockDynamicStore) {
				ms.On("List", mock.Anything, isKind(schema.KindAccount), mock.Anything).
					Return(nil, errors.ErrStorageOperation.WithReason("connection refused"))
			},
			wantErr: errors.ErrStorageOperation,
		},
		{
			name:      "empty credentials",
			setupMock: func(t *testing.T, ms *mocks.MockDynamicStore) {},
			wantErr:   errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := mocks.NewMockDynamicStore()
			tt.setupMock(t, mockStore)

			controller := NewAuthController(mockStore, NewRBACController())
			principal, err := controller.Login(context.Background(), tt.email, tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, principal)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantRole, principal.Role)
				assert.Equal(t, int64(5), principal.AccountID)
				assert.True(t, principal.Permits("Ticket"))
			}
			mockStore.AssertExpectations(t)
		})
	}
}

func TestAuthController_ChangePassword(t *testing.T) {
	tests := []struct {
		name      string
		old       string
		new       string
		setupMock func(*testing.T, *mocks.MockDynamicStore)
		wantErr   error
	}{
		{
			name: "successful change",
			old:  "oldpass",
			new:  "newpass",
			setupMock: func(t *testing.T, ms *mocks.MockDynamicStore) {
				ms.On("Get", mock.Anything, isKind(schema.KindAccount), int64(1)).
					Return(map[string]interface{}{"id_account": int64(1), "password": hashed(t, "oldpass")}, nil)
				ms.On("Update", mock.Anything, isKind(schema.KindAccount), int64(1), mock.MatchedBy(func(data map[string]interface{}) bool {
					h, _ := data["password"].(string)
					return bcrypt.CompareHashAndPassword([]byte(h), []byte("newpass")) == nil
				})).Return(nil)
			},
		},
		{
			name: "wrong old password",
			old:  "guess",
			new:  "newpass",
			setupMock: func(t *testing.T, ms *mocks.MockDynamicStore) {
				ms.On("Get", mock.Anything, isKind(schema.KindAccount), int64(1)).
					Return(map[string]interface{}{"id_account": int64(1), "password": hashed(t, "oldpass")}, nil)
			},
			wantErr: errors.ErrInvalidCredentials,
		},
		{
			name: "missing account",
			old:  "oldpass",
			new:  "newpass",
			setupMock: func(t *testing.T, ms *mocks.MockDynamicStore) {
				ms.On("Get", mock.Anything, isKind(schema.KindAccount), int64(1)).Return(nil, errors.ErrNotFound)
			},
			wantErr: errors.ErrNotFound,
		},
		{
			name:      "empty new password",
			old:       "oldpass",
			setupMock: func(t *testing.T, ms *mocks.MockDynamicStore) {},
			wantErr:   errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := mocks.NewMockDynamicStore()
			tt.setupMock(t, mockStore)

			controller := NewAuthController(mockStore, NewRBACController())
			err := controller.ChangePassword(context.Background(), 1, tt.old, tt.new)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			mockStore.AssertExpectations(t)
		})
	}
}
