package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// Snapshot renders a row as the JSON-safe map stored in the audit trail and
// returned to clients. Foreign keys keep the referenced key value, dates and
// timestamps become ISO-8601 text, everything else becomes its string form.
// Secret fields are always omitted. A nil row yields a nil snapshot.
func Snapshot(entity *schema.EntitySchema, row map[string]interface{}) map[string]interface{} {
	if row == nil {
		return nil
	}
	out := make(map[string]interface{}, len(entity.Fields))
	for _, f := range entity.Fields {
		if f.Secret {
			continue
		}
		v, ok := row[f.Name]
		if !ok || v == nil {
			out[f.Name] = nil
			continue
		}
		out[f.Name] = snapshotValue(f, v)
	}
	return out
}

func snapshotValue(f schema.FieldDef, v interface{}) interface{} {
	if f.IsForeignKey() {
		if f.Type == schema.FieldTypeInteger {
			if n, err := cast.ToInt64E(v); err == nil {
				return n
			}
		}
		return cast.ToString(v)
	}
	switch t := v.(type) {
	case time.Time:
		if f.Type == schema.FieldTypeDate {
			return t.Format(schema.DateLayout)
		}
		return t.Format(time.RFC3339Nano)
	case decimal.Decimal:
		if f.Scale > 0 {
			return t.StringFixed(int32(f.Scale))
		}
		return t.String()
	case []byte:
		return string(t)
	}
	return cast.ToString(v)
}

// RecordID returns the row's integer key, or nil for entities keyed by text.
func RecordID(entity *schema.EntitySchema, row map[string]interface{}) *int64 {
	if !entity.IntegerKey() || row == nil {
		return nil
	}
	id, err := cast.ToInt64E(row[entity.PrimaryKey])
	if err != nil {
		return nil
	}
	return &id
}

// RecordKey returns the row's key as text.
func RecordKey(entity *schema.EntitySchema, row map[string]interface{}) string {
	if row == nil {
		return ""
	}
	return cast.ToString(row[entity.PrimaryKey])
}
