package controllers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/audit"
	"github.com/sukryu/gqpanel/pkg/store/dynamic"
	"github.com/sukryu/gqpanel/pkg/store/dynamic/gormstore"
	"github.com/sukryu/gqpanel/pkg/store/manager"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

type fixture struct {
	db      *gorm.DB
	store   dynamic.DynamicStore
	rbac    RBACController
	airline CRUDController
	coral   CRUDController
	admin   *v1alpha1.Principal
	manager *v1alpha1.Principal
}

// newFixture opens an in-memory sqlite database with both catalogs and the
// seeded lookup rows. Account 1 is the seeded ADMIN.
func newFixture(t testing.TB) *fixture {
	t.Helper()
	ctx := context.Background()

	m, err := manager.Open(ctx, manager.Options{Driver: "sqlite", DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Initialize(ctx, schema.Airline(), schema.Coral()))
	require.NoError(t, m.Seed(ctx, schema.Airline(), manager.SeedOptions{
		AdminEmail:    "admin@greenquality.test",
		AdminPassword: "admin123",
	}))

	store, err := gormstore.NewGormDynamicStore(m.GetDB(), zap.NewNop())
	require.NoError(t, err)
	recorder := audit.NewRecorder(m.GetDB(), schema.Airline(), zap.NewNop())
	rbac := NewRBACController()

	return &fixture{
		db:      m.GetDB(),
		store:   store,
		rbac:    rbac,
		airline: NewCRUDController(v1alpha1.GroupAirline, schema.Airline(), store, recorder, rbac, zap.NewNop()),
		coral:   NewCRUDController(v1alpha1.GroupStore, schema.Coral(), store, recorder, rbac, zap.NewNop()),
		admin:   rbac.PrincipalFor(1, "admin@greenquality.test", v1alpha1.RoleAdmin),
		manager: rbac.PrincipalFor(2, "manager@greenquality.test", v1alpha1.RoleManager),
	}
}

func (f *fixture) auditCount(t testing.TB, table, operation string) int64 {
	t.Helper()
	q := f.db.Model(&audit.AuditLog{}).Where("table_name = ?", table)
	if operation != "" {
		q = q.Where("operation = ?", operation)
	}
	var n int64
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (f *fixture) rowCount(t testing.TB, kind schema.EntityKind) int64 {
	t.Helper()
	n, err := f.store.Count(context.Background(), schema.Airline().MustLookup(kind), nil)
	require.NoError(t, err)
	return n
}

// seedFlight creates an airplane, two airports and one flight and returns the
// flight key.
func (f *fixture) seedFlight(t testing.TB) string {
	t.Helper()
	ctx := context.Background()
	for _, values := range []map[string]string{
		{"id_airport": "SVO", "name": "Sheremetyevo", "city": "Moscow", "country": "Russia"},
		{"id_airport": "LED", "name": "Pulkovo", "city": "Saint Petersburg", "country": "Russia"},
	} {
		_, err := f.airline.Create(ctx, f.admin, "Airport", values)
		require.NoError(t, err)
	}
	plane, err := f.airline.Create(ctx, f.admin, "Airplane", map[string]string{
		"model": "A320", "registration_number": "RA-73001", "capacity": "180",
	})
	require.NoError(t, err)
	flight, err := f.airline.Create(ctx, f.admin, "Flight", map[string]string{
		"airplane_id":          plane.RecordKey,
		"departure_airport_id": "SVO",
		"arrival_airport_id":   "LED",
		"departure_time":       "2025-06-01T10:00",
		"arrival_time":         "2025-06-01T11:30",
		"status":               "SCHEDULED",
	})
	require.NoError(t, err)
	return flight.RecordKey
}
