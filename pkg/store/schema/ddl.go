package schema

import (
	"fmt"
	"strings"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// GenerateColumnDef renders one column of a CREATE TABLE statement.
func (f FieldDef) GenerateColumnDef(d Dialect) string {
	if f.PrimaryKey && f.AutoIncrement {
		if d == DialectPostgres {
			return f.Name + " SERIAL PRIMARY KEY"
		}
		return f.Name + " INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	columnDef := f.Name + " " + f.columnType(d)
	switch {
	case f.PrimaryKey:
		columnDef += " PRIMARY KEY"
	case f.AutoNow:
		columnDef += " NOT NULL DEFAULT CURRENT_TIMESTAMP"
	case !f.Nullable:
		columnDef += " NOT NULL"
	}
	if f.Unique && !f.PrimaryKey {
		columnDef += " UNIQUE"
	}
	if f.DefaultValue != nil {
		switch v := f.DefaultValue.(type) {
		case string:
			columnDef += fmt.Sprintf(" DEFAULT '%s'", strings.ReplaceAll(v, "'", "''"))
		default:
			columnDef += fmt.Sprintf(" DEFAULT %v", v)
		}
	}
	return columnDef
}

func (f FieldDef) columnType(d Dialect) string {
	switch f.Type {
	case FieldTypeString:
		if f.Secret || f.MaxLength == 0 {
			// Secrets hold hashes, which outgrow the submitted value's limit.
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", f.MaxLength)
	case FieldTypeDecimal:
		if f.Precision > 0 {
			return fmt.Sprintf("NUMERIC(%d,%d)", f.Precision, f.Scale)
		}
		return "NUMERIC"
	case FieldTypeTimestamp:
		if d == DialectPostgres {
			return "TIMESTAMPTZ"
		}
		return "TIMESTAMP"
	case FieldTypeJSON:
		if d == DialectPostgres {
			return "JSONB"
		}
		return "JSON"
	default:
		return string(f.Type)
	}
}

// CreateTableSQL renders the DDL for e, resolving foreign keys through r.
func (r *Registry) CreateTableSQL(e *EntitySchema, d Dialect) string {
	parts := make([]string, 0, len(e.Fields)+len(e.Checks))
	for _, f := range e.Fields {
		parts = append(parts, f.GenerateColumnDef(d))
	}
	for _, f := range e.Fields {
		if !f.IsForeignKey() {
			continue
		}
		target := r.MustLookup(f.Ref)
		fk := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", f.Name, target.Table, target.PrimaryKey)
		if f.OnDelete != "" {
			fk += " ON DELETE " + string(f.OnDelete)
		}
		parts = append(parts, fk)
	}
	for _, c := range e.Checks {
		parts = append(parts, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", c.Name, c.Expr))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", e.Table, strings.Join(parts, ",\n\t"))
}

// CreateIndexSQL renders one statement per declared index.
func (e *EntitySchema) CreateIndexSQL() []string {
	stmts := make([]string, 0, len(e.Indexes))
	for _, idx := range e.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, idx.Name, e.Table, strings.Join(idx.Columns, ", ")))
	}
	return stmts
}
