package audit

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sukryu/gqpanel/pkg/metrics"
	"github.com/sukryu/gqpanel/pkg/store/manager"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

func setupRecorder(t *testing.T) (*Recorder, *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	m, err := manager.Open(ctx, manager.Options{Driver: "sqlite", DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Initialize(ctx, schema.Airline()))
	t.Cleanup(func() { _ = m.Close() })
	return NewRecorder(m.GetDB(), schema.Airline(), zap.NewNop()), m.GetDB()
}

func TestSnapshot(t *testing.T) {
	reg := schema.Airline()

	t.Run("secret fields are omitted", func(t *testing.T) {
		snap := Snapshot(reg.MustLookup(schema.KindAccount), map[string]interface{}{
			"id_account": int64(4), "email": "a@example.com", "password": "$2a$10$hash", "role_id": int64(1),
		})
		assert.NotContains(t, snap, "password")
		assert.Equal(t, int64(1), snap["role_id"])
		assert.Equal(t, "a@example.com", snap["email"])
	})

	t.Run("typed values render as text", func(t *testing.T) {
		paid := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
		snap := Snapshot(reg.MustLookup(schema.KindPayment), map[string]interface{}{
			"id_payment":     int64(9),
			"user_id":        "12",
			"total_cost":     decimal.RequireFromString("1500.5"),
			"payment_date":   paid,
			"payment_method": "CARD",
			"status":         nil,
		})
		assert.Equal(t, int64(12), snap["user_id"])
		assert.Equal(t, "1500.50", snap["total_cost"])
		assert.Equal(t, "2024-03-01T10:30:00Z", snap["payment_date"])
		assert.Equal(t, "9", snap["id_payment"])
		assert.Nil(t, snap["status"])
	})

	t.Run("timestamps keep fractional seconds", func(t *testing.T) {
		payments := reg.MustLookup(schema.KindPayment)
		first := Snapshot(payments, map[string]interface{}{"payment_date": time.Date(2024, 3, 1, 10, 30, 0, 125000000, time.UTC)})
		second := Snapshot(payments, map[string]interface{}{"payment_date": time.Date(2024, 3, 1, 10, 30, 0, 750000000, time.UTC)})
		assert.Equal(t, "2024-03-01T10:30:00.125Z", first["payment_date"])
		assert.NotEqual(t, first["payment_date"], second["payment_date"])
	})

	t.Run("dates use the date layout", func(t *testing.T) {
		snap := Snapshot(reg.MustLookup(schema.KindPassenger), map[string]interface{}{
			"birthday": time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		})
		assert.Equal(t, "1990-05-17", snap["birthday"])
	})

	t.Run("nil row", func(t *testing.T) {
		assert.Nil(t, Snapshot(reg.MustLookup(schema.KindFlight), nil))
	})
}

func TestRecordIDAndKey(t *testing.T) {
	reg := schema.Airline()

	airport := map[string]interface{}{"id_airport": "TST"}
	assert.Nil(t, RecordID(reg.MustLookup(schema.KindAirport), airport))
	assert.Equal(t, "TST", RecordKey(reg.MustLookup(schema.KindAirport), airport))

	flight := map[string]interface{}{"id_flight": int64(3)}
	id := RecordID(reg.MustLookup(schema.KindFlight), flight)
	require.NotNil(t, id)
	assert.Equal(t, int64(3), *id)
	assert.Equal(t, "3", RecordKey(reg.MustLookup(schema.KindFlight), flight))
}

func TestDiff(t *testing.T) {
	changes := Diff(
		map[string]interface{}{"city": "Test City", "name": "Test", "country": "RU"},
		map[string]interface{}{"city": "Updated City", "name": "Test", "code": "X"},
	)
	require.Len(t, changes, 3)
	assert.Equal(t, "city", changes[0].Name)
	assert.Equal(t, "Test City", changes[0].Old)
	assert.Equal(t, "Updated City", changes[0].New)
	assert.Equal(t, "code", changes[1].Name)
	assert.Nil(t, changes[1].Old)
	assert.Equal(t, "country", changes[2].Name)
	assert.Nil(t, changes[2].New)

	assert.Empty(t, Diff(map[string]interface{}{"n": int64(1)}, map[string]interface{}{"n": "1"}))
}

func TestRecorderLogAndRead(t *testing.T) {
	rec, _ := setupRecorder(t)
	ctx := context.Background()

	missing := int64(404)
	rec.Log(ctx, Entry{
		Table: "airports", RecordKey: "TST", Operation: OperationInsert, ActorID: &missing,
		New: map[string]interface{}{"id_airport": "TST", "city": "Test City"},
	})
	rec.Log(ctx, Entry{
		Table: "airports", RecordKey: "TST", Operation: OperationUpdate,
		Old: map[string]interface{}{"id_airport": "TST", "city": "Test City"},
		New: map[string]interface{}{"id_airport": "TST", "city": "Updated City"},
	})
	rec.Log(ctx, Entry{
		Table: "airports", RecordKey: "TST", Operation: OperationDelete,
		Old: map[string]interface{}{"id_airport": "TST", "city": "Updated City"},
	})

	entries, total, err := rec.List(ctx, ListFilter{Table: "airports"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 3)
	assert.Equal(t, "DELETE", entries[0].Operation, "newest first")
	assert.Nil(t, entries[0].NewData)
	assert.Nil(t, entries[2].RecordID)
	assert.Nil(t, entries[2].ChangedBy, "unknown actors are stored as null")

	entries, total, err = rec.List(ctx, ListFilter{Operation: OperationUpdate, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)

	history, err := rec.ForRecord(ctx, "airports", "TST")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "INSERT", history[0].Operation)
	require.Len(t, history[1].Changes, 1)
	assert.Equal(t, "city", history[1].Changes[0].Name)
	assert.Equal(t, "Updated City", history[1].Changes[0].New)
}

func TestRecorderLogFailureDoesNotPropagate(t *testing.T) {
	rec, db := setupRecorder(t)
	require.NoError(t, db.Exec("DROP TABLE audit_log").Error)

	before := testutil.ToFloat64(metrics.AuditWriteFailures)
	assert.NotPanics(t, func() {
		rec.Log(context.Background(), Entry{Table: "class", RecordKey: "1", Operation: OperationInsert})
	})
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AuditWriteFailures))
}
