package gormstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// normalizeRow converts driver values into the Go type of each described
// field, so sqlite and postgres rows look the same to callers.
func normalizeRow(entity *schema.EntitySchema, row map[string]interface{}) map[string]interface{} {
	for _, field := range entity.Fields {
		if value, exists := row[field.Name]; exists {
			row[field.Name] = convertValue(field, value)
		}
	}
	return row
}

// convertValue falls back to the raw value when it cannot be converted.
func convertValue(field schema.FieldDef, value interface{}) interface{} {
	value = unwrap(value)
	if value == nil {
		return nil
	}
	converted, err := convertValueToType(value, field.Type)
	if err != nil {
		return value
	}
	return converted
}

// unwrap strips the *interface{} sqlite hands back for NUMERIC columns and
// turns byte slices into text.
func unwrap(value interface{}) interface{} {
	for {
		p, ok := value.(*interface{})
		if !ok {
			break
		}
		if p == nil {
			return nil
		}
		value = *p
	}
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}

func convertValueToType(value interface{}, fieldType schema.FieldType) (interface{}, error) {
	switch fieldType {
	case schema.FieldTypeString, schema.FieldTypeText, schema.FieldTypeJSON:
		return cast.ToStringE(value)
	case schema.FieldTypeInteger:
		return cast.ToInt64E(value)
	case schema.FieldTypeDecimal:
		return toDecimal(value)
	case schema.FieldTypeDate:
		t, err := toTimestamp(value)
		if err != nil {
			return nil, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case schema.FieldTypeTimestamp:
		return toTimestamp(value)
	default:
		return nil, fmt.Errorf("unsupported field type: %s", fieldType)
	}
}

func toDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case string:
		return decimal.NewFromString(v)
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot convert type %T to decimal", value)
	}
}

func toTimestamp(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		t, err := schema.ParseTimestamp(v)
		if err != nil {
			return schema.ParseDate(v)
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert type %T to timestamp", value)
	}
}
