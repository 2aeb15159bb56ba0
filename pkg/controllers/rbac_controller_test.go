package controllers

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

func TestRBACController_CheckAccess(t *testing.T) {
	rbac := NewRBACController()
	admin := rbac.PrincipalFor(1, "admin@example.com", v1alpha1.RoleAdmin)
	manager := rbac.PrincipalFor(2, "manager@example.com", v1alpha1.RoleManager)
	user := rbac.PrincipalFor(3, "user@example.com", v1alpha1.RoleUser)

	tests := []struct {
		name      string
		principal *v1alpha1.Principal
		verb      string
		resource  string
		apiGroup  string
		want      bool
	}{
		{"admin creates airports", admin, v1alpha1.VerbCreate, "Airport", v1alpha1.GroupAirline, true},
		{"admin reads the audit log", admin, v1alpha1.VerbList, "AuditLog", v1alpha1.GroupAirline, true},
		{"admin cannot write the audit log", admin, v1alpha1.VerbDelete, "AuditLog", v1alpha1.GroupAirline, false},
		{"admin manages the store", admin, v1alpha1.VerbUpdate, "Corals", v1alpha1.GroupStore, true},
		{"admin backs up", admin, v1alpha1.VerbBackup, ResourceDatabase, v1alpha1.GroupSystem, true},
		{"manager updates tickets", manager, v1alpha1.VerbUpdate, "Ticket", v1alpha1.GroupAirline, true},
		{"manager cannot touch airports", manager, v1alpha1.VerbCreate, "Airport", v1alpha1.GroupAirline, false},
		{"manager exports reports", manager, v1alpha1.VerbExport, "statistics", v1alpha1.GroupReports, true},
		{"manager cannot restore", manager, v1alpha1.VerbRestore, ResourceDatabase, v1alpha1.GroupSystem, false},
		{"user has no panel access", user, v1alpha1.VerbGet, "Flight", v1alpha1.GroupAirline, false},
		{"unknown role", &v1alpha1.Principal{Role: "GUEST"}, v1alpha1.VerbGet, "Flight", v1alpha1.GroupAirline, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rbac.CheckAccess(context.Background(), tt.principal, tt.verb, tt.resource, tt.apiGroup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := rbac.CheckAccess(context.Background(), nil, v1alpha1.VerbGet, "Flight", v1alpha1.GroupAirline)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}

func TestRBACController_PrincipalFor(t *testing.T) {
	rbac := NewRBACController()

	admin := rbac.PrincipalFor(1, "admin@example.com", v1alpha1.RoleAdmin)
	for _, kind := range schema.AirlineKinds {
		assert.True(t, admin.Permits(string(kind)), kind)
	}
	for _, kind := range schema.CoralKinds {
		assert.True(t, admin.Permits(string(kind)), kind)
	}

	manager := rbac.PrincipalFor(2, "manager@example.com", v1alpha1.RoleManager)
	assert.ElementsMatch(t, []string{"Flight", "Passenger", "Payment", "Ticket", "Baggage"}, manager.Permitted.UnsortedList())
	assert.Equal(t, int64(2), *manager.ActorID())

	user := rbac.PrincipalFor(3, "user@example.com", v1alpha1.RoleUser)
	assert.Equal(t, 0, user.Permitted.Len())
	assert.False(t, user.Permits("Flight"))
}

func TestRBACController_Roles(t *testing.T) {
	rbac := NewRBACController()
	ctx := context.Background()

	roles, err := rbac.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, v1alpha1.RoleAdmin, roles[0].Name)

	role, err := rbac.GetRole(ctx, v1alpha1.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, "Role", role.Kind)
	role.Rules = nil
	again, err := rbac.GetRole(ctx, v1alpha1.RoleManager)
	require.NoError(t, err)
	assert.NotEmpty(t, again.Rules, "callers get copies")

	_, err = rbac.GetRole(ctx, "")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
	_, err = rbac.GetRole(ctx, "GUEST")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestRBACController_CustomRoles(t *testing.T) {
	auditor := newRole("AUDITOR", v1alpha1.PolicyRule{
		Verbs: []string{v1alpha1.VerbGet}, Resources: []string{"AuditLog"}, APIGroups: []string{"*"},
	})
	rbac := NewRBACController(auditor)

	p := rbac.PrincipalFor(9, "a@example.com", "AUDITOR")
	assert.True(t, p.Permits("AuditLog"))
	assert.Equal(t, 1, p.Permitted.Len())
}
