package gormstore

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/store/dynamic"
	"github.com/sukryu/gqpanel/pkg/store/manager"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

func setupStore(t *testing.T) dynamic.DynamicStore {
	t.Helper()
	ctx := context.Background()
	m, err := manager.Open(ctx, manager.Options{Driver: "sqlite", DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Initialize(ctx, schema.Airline()))

	store, err := NewGormDynamicStore(m.GetDB(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func lookup(kind schema.EntityKind) *schema.EntitySchema {
	return schema.Airline().MustLookup(kind)
}

func TestNewGormDynamicStoreRejectsNil(t *testing.T) {
	_, err := NewGormDynamicStore(nil, nil)
	assert.Error(t, err)
}

func TestCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	t.Run("string key", func(t *testing.T) {
		airports := lookup(schema.KindAirport)
		id, err := store.Create(ctx, airports, map[string]interface{}{
			"id_airport": "SVO", "name": "Sheremetyevo", "city": "Moscow", "country": "Russia",
		})
		require.NoError(t, err)
		assert.Equal(t, "SVO", id)

		row, err := store.Get(ctx, airports, "SVO")
		require.NoError(t, err)
		assert.Equal(t, "Moscow", row["city"])
	})

	t.Run("integer key and typed columns", func(t *testing.T) {
		airplanes := lookup(schema.KindAirplane)
		id, err := store.Create(ctx, airplanes, map[string]interface{}{
			"model": "A320", "registration_number": "RA-73001", "capacity": int64(180),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)

		row, err := store.Get(ctx, airplanes, id)
		require.NoError(t, err)
		assert.Equal(t, int64(180), row["capacity"])
		assert.Nil(t, row["rows"])
	})

	t.Run("auto timestamps and decimals", func(t *testing.T) {
		roles := lookup(schema.KindRole)
		accounts := lookup(schema.KindAccount)
		users := lookup(schema.KindUser)
		payments := lookup(schema.KindPayment)

		roleID, err := store.Create(ctx, roles, map[string]interface{}{"role_name": "USER"})
		require.NoError(t, err)
		accountID, err := store.Create(ctx, accounts, map[string]interface{}{"email": "u@example.com", "password": "hash", "role_id": roleID})
		require.NoError(t, err)
		userID, err := store.Create(ctx, users, map[string]interface{}{"account_id": accountID, "first_name": "Anna", "last_name": "Ivanova"})
		require.NoError(t, err)

		before := time.Now().UTC().Add(-time.Second)
		paymentID, err := store.Create(ctx, payments, map[string]interface{}{
			"user_id": userID, "total_cost": decimal.RequireFromString("1500.50"), "payment_method": "CARD", "status": "COMPLETED",
		})
		require.NoError(t, err)

		row, err := store.Get(ctx, payments, paymentID)
		require.NoError(t, err)
		cost, ok := row["total_cost"].(decimal.Decimal)
		require.True(t, ok, "total_cost is %T", row["total_cost"])
		assert.True(t, cost.Equal(decimal.RequireFromString("1500.5")))
		paid, ok := row["payment_date"].(time.Time)
		require.True(t, ok, "payment_date is %T", row["payment_date"])
		assert.True(t, paid.After(before))
	})
}

func TestGetMissing(t *testing.T) {
	store := setupStore(t)
	_, err := store.Get(context.Background(), lookup(schema.KindFlight), int64(42))
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestUniqueViolationIsIntegrityError(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	roles := lookup(schema.KindRole)

	_, err := store.Create(ctx, roles, map[string]interface{}{"role_name": "ADMIN"})
	require.NoError(t, err)
	_, err = store.Create(ctx, roles, map[string]interface{}{"role_name": "ADMIN"})
	require.Error(t, err)
	assert.True(t, errors.IsIntegrityViolation(err))
}

func TestUpdateAndDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	classes := lookup(schema.KindClass)

	id, err := store.Create(ctx, classes, map[string]interface{}{"class_name": "ECONOMY"})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, classes, id, map[string]interface{}{"class_name": "BUSINESS"}))
	row, err := store.Get(ctx, classes, id)
	require.NoError(t, err)
	assert.Equal(t, "BUSINESS", row["class_name"])

	// Empty updates only check existence.
	assert.NoError(t, store.Update(ctx, classes, id, map[string]interface{}{}))
	assert.True(t, stderrors.Is(store.Update(ctx, classes, int64(99), map[string]interface{}{}), errors.ErrNotFound))
	assert.True(t, stderrors.Is(store.Update(ctx, classes, int64(99), map[string]interface{}{"class_name": "FIRST"}), errors.ErrNotFound))
	assert.Error(t, store.Update(ctx, classes, id, map[string]interface{}{"bogus": 1}))

	require.NoError(t, store.Delete(ctx, classes, id))
	exists, err := store.Exists(ctx, classes, id)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.True(t, stderrors.Is(store.Delete(ctx, classes, id), errors.ErrNotFound))
}

func TestListAndCount(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	airports := lookup(schema.KindAirport)

	for _, a := range []map[string]interface{}{
		{"id_airport": "AER", "name": "Sochi", "city": "Sochi", "country": "Russia"},
		{"id_airport": "LED", "name": "Pulkovo", "city": "Saint Petersburg", "country": "Russia"},
		{"id_airport": "IST", "name": "Istanbul", "city": "Istanbul", "country": "Turkey"},
	} {
		_, err := store.Create(ctx, airports, a)
		require.NoError(t, err)
	}

	rows, err := store.List(ctx, airports, dynamic.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "LED", rows[0]["id_airport"], "default order is primary key descending")

	rows, err = store.List(ctx, airports, dynamic.ListOptions{OrderBy: "name", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Pulkovo", rows[0]["name"])
	assert.Equal(t, "Sochi", rows[1]["name"])

	rows, err = store.List(ctx, airports, dynamic.ListOptions{Filter: map[string]interface{}{"country": "Russia"}})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = store.List(ctx, airports, dynamic.ListOptions{OrderBy: "name; DROP TABLE airports"})
	assert.Error(t, err)
	_, err = store.List(ctx, airports, dynamic.ListOptions{Filter: map[string]interface{}{"1=1 OR country": "x"}})
	assert.Error(t, err)

	count, err := store.Count(ctx, airports, map[string]interface{}{"country": "Turkey"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestQuery(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, lookup(schema.KindClass), map[string]interface{}{"class_name": "FIRST"})
	require.NoError(t, err)

	rows, err := store.Query(ctx, "SELECT class_name AS name FROM class WHERE class_name = ?", "FIRST")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "FIRST", rows[0]["name"])

	_, err = store.Query(ctx, "SELECT calc_flight_revenue(?) AS value", 1)
	assert.Error(t, err)
}

func TestTransactionRollback(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	classes := lookup(schema.KindClass)

	boom := stderrors.New("boom")
	err := store.TransactionWithOptions(ctx, dynamic.TransactionOptions{}, func(tx dynamic.DynamicStore) error {
		if _, err := tx.Create(ctx, classes, map[string]interface{}{"class_name": "ECONOMY"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := store.Count(ctx, classes, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	err = store.TransactionWithOptions(ctx, dynamic.TransactionOptions{IsolationLevel: dynamic.ReadCommitted}, func(tx dynamic.DynamicStore) error {
		_, err := tx.Create(ctx, classes, map[string]interface{}{"class_name": "ECONOMY"})
		return err
	})
	require.NoError(t, err)
	count, err = store.Count(ctx, classes, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReadOnlyTransaction(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	classes := lookup(schema.KindClass)

	err := store.TransactionWithOptions(ctx, dynamic.TransactionOptions{ReadOnly: true}, func(tx dynamic.DynamicStore) error {
		_, err := tx.Create(ctx, classes, map[string]interface{}{"class_name": "ECONOMY"})
		return err
	})
	assert.Error(t, err)

	// The connection is writable again afterwards.
	_, err = store.Create(ctx, classes, map[string]interface{}{"class_name": "ECONOMY"})
	assert.NoError(t, err)
}
