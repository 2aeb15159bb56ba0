package manager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sukryu/gqpanel/pkg/store/schema"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(context.Background(), Options{Driver: "sqlite", DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle", DSN: "x"}, zap.NewNop())
	assert.Error(t, err)
}

func TestInitializeCreatesCatalogTables(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx, schema.Airline(), schema.Coral()))
	// Idempotent.
	require.NoError(t, m.Initialize(ctx, schema.Airline(), schema.Coral()))

	assert.Equal(t, schema.DialectSQLite, m.Dialect())
	for _, reg := range []*schema.Registry{schema.Airline(), schema.Coral()} {
		for _, e := range reg.Schemas() {
			assert.True(t, m.tableManager.HasTable(ctx, e), e.Table)
		}
	}
	assert.NoError(t, m.Ping(ctx))
	assert.Equal(t, "sqlite", m.GetStats()["dialect"])
}

func TestForeignKeysEnforced(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, schema.Airline()))

	err := m.GetDB().Exec("INSERT INTO accounts (email, password, role_id) VALUES ('a@b.c', 'x', 999)").Error
	assert.Error(t, err)
}

func TestFlightCheckConstraint(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, schema.Airline()))
	db := m.GetDB()

	require.NoError(t, db.Exec("INSERT INTO airports (id_airport, name, city, country) VALUES ('SVO', 'Sheremetyevo', 'Moscow', 'Russia')").Error)
	require.NoError(t, db.Exec("INSERT INTO airplanes (model, registration_number, capacity) VALUES ('A320', 'RA-1', 180)").Error)

	err := db.Exec(`INSERT INTO flights (airplane_id, departure_airport_id, arrival_airport_id, departure_time, arrival_time)
		VALUES (1, 'SVO', 'SVO', '2025-01-02 12:00:00', '2025-01-02 10:00:00')`).Error
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, schema.Airline()))

	opts := SeedOptions{AdminEmail: "admin@example.com", AdminPassword: "s3cret"}
	require.NoError(t, m.Seed(ctx, schema.Airline(), opts))
	require.NoError(t, m.Seed(ctx, schema.Airline(), opts))

	var roles, classes, baggageTypes, accounts int64
	db := m.GetDB()
	require.NoError(t, db.Table("roles").Count(&roles).Error)
	require.NoError(t, db.Table("class").Count(&classes).Error)
	require.NoError(t, db.Table("baggage_types").Count(&baggageTypes).Error)
	require.NoError(t, db.Table("accounts").Count(&accounts).Error)
	assert.Equal(t, int64(3), roles)
	assert.Equal(t, int64(3), classes)
	assert.Equal(t, int64(5), baggageTypes)
	assert.Equal(t, int64(1), accounts)

	var hash string
	require.NoError(t, db.Table("accounts").Select("password").Where("email = ?", opts.AdminEmail).Row().Scan(&hash))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestSeedAcrossDatabases(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		m := setupManager(t)
		require.NoError(t, m.Initialize(ctx, schema.Airline()))
		require.NoError(t, m.Seed(ctx, schema.Airline(), SeedOptions{}))

		var baggageTypes int64
		require.NoError(t, m.GetDB().Table("baggage_types").Count(&baggageTypes).Error)
		assert.Equal(t, int64(5), baggageTypes)
	}
	for _, row := range defaultBaggageTypes {
		assert.Len(t, row, 4, "seed rows must not pick up generated keys")
	}
}
