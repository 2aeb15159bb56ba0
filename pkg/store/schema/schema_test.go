package schema

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryKindsRegisteredOnce(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		kinds    []EntityKind
	}{
		{name: "airline", registry: Airline(), kinds: AirlineKinds},
		{name: "coral", registry: Coral(), kinds: CoralKinds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kinds, tt.registry.Kinds())

			seen := make(map[EntityKind]int)
			for _, s := range tt.registry.Schemas() {
				seen[s.Kind]++
			}
			for _, k := range tt.kinds {
				assert.Equal(t, 1, seen[k], "kind %s", k)
				s, ok := tt.registry.Lookup(string(k))
				require.True(t, ok)
				assert.NotEmpty(t, s.DisplayFields)
				assert.NotNil(t, s.OptionLabel)
				for _, d := range s.DisplayFields {
					_, ok := s.Field(d)
					assert.True(t, ok, "%s display field %s", k, d)
				}
			}
		})
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	for _, name := range []string{"", "auth_user", "flight", "Flights", "Flight;DROP"} {
		_, ok := Airline().Lookup(name)
		assert.False(t, ok, name)
	}
}

func TestNewRegistryPanics(t *testing.T) {
	role := AirlineSchemas()[0]
	assert.Panics(t, func() { NewRegistry(role, role) })

	account := AirlineSchemas()[1]
	assert.Panics(t, func() { NewRegistry(account) }, "dangling reference to Role")
}

func TestCoralTablesArePrefixed(t *testing.T) {
	for _, s := range Coral().Schemas() {
		assert.Regexp(t, "^"+CoralTablePrefix, s.Table)
	}
}

func TestParseKey(t *testing.T) {
	flight := Airline().MustLookup(KindFlight)
	airport := Airline().MustLookup(KindAirport)

	id, err := flight.ParseKey(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = flight.ParseKey("abc")
	assert.Error(t, err)
	_, err = flight.ParseKey("")
	assert.Error(t, err)

	code, err := airport.ParseKey("SVO")
	require.NoError(t, err)
	assert.Equal(t, "SVO", code)
	assert.False(t, airport.IntegerKey())
}

func TestFieldCoerce(t *testing.T) {
	tests := []struct {
		name    string
		field   FieldDef
		raw     string
		want    interface{}
		wantErr bool
	}{
		{name: "integer", field: FieldDef{Name: "capacity", Type: FieldTypeInteger}, raw: "180", want: int64(180)},
		{name: "bad integer", field: FieldDef{Name: "capacity", Type: FieldTypeInteger}, raw: "1.5", wantErr: true},
		{name: "decimal", field: FieldDef{Name: "price", Type: FieldTypeDecimal}, raw: "12.50", want: decimal.RequireFromString("12.50")},
		{name: "bad decimal", field: FieldDef{Name: "price", Type: FieldTypeDecimal}, raw: "twelve", wantErr: true},
		{name: "date", field: FieldDef{Name: "birthday", Type: FieldTypeDate}, raw: "1990-05-01", want: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)},
		{name: "form timestamp", field: FieldDef{Name: "departure_time", Type: FieldTypeTimestamp}, raw: "2025-01-02T10:30", want: time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)},
		{name: "bad json", field: FieldDef{Name: "payload", Type: FieldTypeJSON}, raw: "{", wantErr: true},
		{name: "string", field: FieldDef{Name: "city", Type: FieldTypeString}, raw: "Moscow", want: "Moscow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Coerce(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			switch want := tt.want.(type) {
			case decimal.Decimal:
				assert.True(t, want.Equal(got.(decimal.Decimal)))
			case time.Time:
				assert.True(t, want.Equal(got.(time.Time)), "got %v", got)
			default:
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPatterns(t *testing.T) {
	assert.True(t, PatternPhone.Match("+79991234567"))
	assert.True(t, PatternPhone.Match("89991234567"))
	assert.False(t, PatternPhone.Match("+7 999"))
	assert.False(t, PatternPhone.Match("phone"))

	assert.True(t, PatternPassport.Match("4510 123456"))
	assert.False(t, PatternPassport.Match("AB123"))

	assert.True(t, PatternNone.Match("anything"))
}

func TestFlightCode(t *testing.T) {
	assert.Equal(t, "GQ007", FlightCode(int64(7)))
	assert.Equal(t, "GQ1234", FlightCode(1234))
}

func TestCreateTableSQL(t *testing.T) {
	reg := Airline()
	ticket := reg.MustLookup(KindTicket)

	sqlite := reg.CreateTableSQL(ticket, DialectSQLite)
	assert.Contains(t, sqlite, "CREATE TABLE IF NOT EXISTS tickets")
	assert.Contains(t, sqlite, "id_ticket INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, sqlite, "seat_number VARCHAR(5) NOT NULL")
	assert.Contains(t, sqlite, "price NUMERIC(8,2) NOT NULL DEFAULT 0")
	assert.Contains(t, sqlite, "status VARCHAR(20) NOT NULL DEFAULT 'AVAILABLE'")
	assert.Contains(t, sqlite, "FOREIGN KEY (payment_id) REFERENCES payments(id_payment) ON DELETE SET NULL")

	postgres := reg.CreateTableSQL(reg.MustLookup(KindFlight), DialectPostgres)
	assert.Contains(t, postgres, "id_flight SERIAL PRIMARY KEY")
	assert.Contains(t, postgres, "departure_time TIMESTAMPTZ NOT NULL")
	assert.Contains(t, postgres, "CONSTRAINT check_departure_before_arrival CHECK (departure_time < arrival_time)")

	airport := reg.CreateTableSQL(reg.MustLookup(KindAirport), DialectPostgres)
	assert.Contains(t, airport, "id_airport VARCHAR(3) PRIMARY KEY")

	account := reg.CreateTableSQL(reg.MustLookup(KindAccount), DialectSQLite)
	assert.Contains(t, account, "password TEXT NOT NULL")
	assert.Contains(t, account, "created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP")

	assert.Equal(t,
		[]string{"CREATE UNIQUE INDEX IF NOT EXISTS unique_flight_seat ON tickets (flight_id, seat_number)"},
		ticket.CreateIndexSQL())
}
