package gormstore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukryu/gqpanel/pkg/store/schema"
)

func boxed(v interface{}) *interface{} {
	return &v
}

func TestConvertValue(t *testing.T) {
	cost := schema.FieldDef{Name: "total_cost", Type: schema.FieldTypeDecimal, Scale: 2}
	capacity := schema.FieldDef{Name: "capacity", Type: schema.FieldTypeInteger}
	paid := schema.FieldDef{Name: "payment_date", Type: schema.FieldTypeTimestamp}

	tests := []struct {
		name  string
		field schema.FieldDef
		value interface{}
		want  interface{}
	}{
		{"boxed float decimal", cost, boxed(1500.5), decimal.RequireFromString("1500.5")},
		{"boxed integer decimal", cost, boxed(int64(4500)), decimal.NewFromInt(4500)},
		{"bytes decimal", cost, []byte("12.30"), decimal.RequireFromString("12.30")},
		{"boxed integer", capacity, boxed(int64(180)), int64(180)},
		{"boxed timestamp text", paid, boxed("2024-03-01 10:30:05"), time.Date(2024, 3, 1, 10, 30, 5, 0, time.UTC)},
		{"boxed nil", cost, boxed(nil), nil},
		{"nil pointer", cost, (*interface{})(nil), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertValue(tt.field, tt.value)
			switch want := tt.want.(type) {
			case decimal.Decimal:
				d, ok := got.(decimal.Decimal)
				require.True(t, ok, "got %T", got)
				assert.True(t, want.Equal(d), "got %s", d)
			case time.Time:
				ts, ok := got.(time.Time)
				require.True(t, ok, "got %T", got)
				assert.True(t, want.Equal(ts))
			default:
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
