package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// EntitySchema describes one table the engine can list and mutate.
type EntitySchema struct {
	Kind          EntityKind
	Table         string
	Description   string
	PrimaryKey    string
	Fields        []FieldDef
	DisplayFields []string
	Indexes       []IndexDef
	Checks        []CheckDef
	// ReadOnly entities can be listed but never mutated.
	ReadOnly bool
	// OptionLabel renders a row as the text of a select option.
	OptionLabel func(row map[string]interface{}) string
}

type FieldType string

const (
	FieldTypeString    FieldType = "VARCHAR"
	FieldTypeText      FieldType = "TEXT"
	FieldTypeInteger   FieldType = "INTEGER"
	FieldTypeDecimal   FieldType = "NUMERIC"
	FieldTypeDate      FieldType = "DATE"
	FieldTypeTimestamp FieldType = "TIMESTAMP"
	FieldTypeJSON      FieldType = "JSON"
)

// Pattern is a named format constraint on a string field.
type Pattern string

const (
	PatternNone     Pattern = ""
	PatternPhone    Pattern = "phone"
	PatternPassport Pattern = "passport"
)

var patternExprs = map[Pattern]*regexp.Regexp{
	PatternPhone:    regexp.MustCompile(`^\+?\d+$`),
	PatternPassport: regexp.MustCompile(`^[\d\s]+$`),
}

var patternMessages = map[Pattern]string{
	PatternPhone:    "must contain only digits and an optional leading +",
	PatternPassport: "must contain only digits and spaces",
}

// Match reports whether value satisfies the pattern. PatternNone matches anything.
func (p Pattern) Match(value string) bool {
	re, ok := patternExprs[p]
	if !ok {
		return true
	}
	return re.MatchString(value)
}

func (p Pattern) Message() string {
	return patternMessages[p]
}

type OnDelete string

const (
	OnDeleteCascade  OnDelete = "CASCADE"
	OnDeleteSetNull  OnDelete = "SET NULL"
	OnDeleteRestrict OnDelete = "RESTRICT"
)

type FieldDef struct {
	Name  string
	Label string
	Type  FieldType
	// Required fields are neither nullable nor blank-allowed.
	Required  bool
	Nullable  bool
	Unique    bool
	MaxLength int
	Precision int
	Scale     int
	Choices   []string
	Pattern   Pattern
	// NonNegative rejects values below zero for integer and decimal fields.
	NonNegative   bool
	Ref           EntityKind
	OnDelete      OnDelete
	PrimaryKey    bool
	AutoIncrement bool
	// AutoNow fields are stamped by the server on insert.
	AutoNow bool
	// Secret fields are hashed before storage and never returned.
	Secret       bool
	DefaultValue interface{}
}

type IndexDef struct {
	Name    string
	Columns []string
	Unique  bool
}

type CheckDef struct {
	Name string
	Expr string
}

func (f FieldDef) IsForeignKey() bool {
	return f.Ref != ""
}

func (f FieldDef) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return strings.ReplaceAll(f.Name, "_", " ")
}

func (f FieldDef) HasChoice(value string) bool {
	for _, c := range f.Choices {
		if c == value {
			return true
		}
	}
	return false
}

// Field looks a field up by column name.
func (e *EntitySchema) Field(name string) (FieldDef, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

func (e *EntitySchema) PrimaryKeyField() FieldDef {
	f, _ := e.Field(e.PrimaryKey)
	return f
}

// IntegerKey reports whether rows are identified by an integer primary key.
func (e *EntitySchema) IntegerKey() bool {
	return e.PrimaryKeyField().Type == FieldTypeInteger
}

// ParseKey converts a textual record identifier into the primary key's Go type.
func (e *EntitySchema) ParseKey(raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s: empty key", e.Kind)
	}
	if !e.IntegerKey() {
		return raw, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid key %q", e.Kind, raw)
	}
	return id, nil
}

// Columns returns every column name in declaration order.
func (e *EntitySchema) Columns() []string {
	cols := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		cols[i] = f.Name
	}
	return cols
}

func (e *EntitySchema) IsDisplayField(name string) bool {
	for _, d := range e.DisplayFields {
		if d == name {
			return true
		}
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05.999999999-07:00",
}

const DateLayout = "2006-01-02"

// ParseTimestamp accepts the layouts produced by HTML forms, JSON clients and
// the sqlite driver.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", value)
}

func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	// Accept a full timestamp and keep only the calendar day.
	t, err := ParseTimestamp(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse date %q", value)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Coerce converts submitted text into the value written to the column.
// Secret fields are returned unchanged; hashing is the caller's concern.
func (f FieldDef) Coerce(raw string) (interface{}, error) {
	switch f.Type {
	case FieldTypeInteger:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid integer %q", f.Name, raw)
		}
		return v, nil
	case FieldTypeDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid decimal %q", f.Name, raw)
		}
		return d, nil
	case FieldTypeDate:
		return ParseDate(raw)
	case FieldTypeTimestamp:
		return ParseTimestamp(raw)
	case FieldTypeJSON:
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("%s: invalid JSON", f.Name)
		}
		return datatypes.JSON(raw), nil
	default:
		return raw, nil
	}
}
