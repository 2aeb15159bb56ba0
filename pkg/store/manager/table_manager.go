package manager

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// TableManager turns entity descriptors into tables.
type TableManager struct {
	db      *gorm.DB
	dialect schema.Dialect
}

func NewTableManager(db *gorm.DB, dialect schema.Dialect) *TableManager {
	return &TableManager{db: db, dialect: dialect}
}

// Initialize creates the catalog's tables in registration order, which is
// also foreign key dependency order.
func (tm *TableManager) Initialize(ctx context.Context, reg *schema.Registry) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range reg.Schemas() {
			if err := tm.createTable(tx, reg, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateTable creates one table and its indexes if they do not exist.
func (tm *TableManager) CreateTable(ctx context.Context, reg *schema.Registry, e *schema.EntitySchema) error {
	return tm.createTable(tm.db.WithContext(ctx), reg, e)
}

func (tm *TableManager) createTable(db *gorm.DB, reg *schema.Registry, e *schema.EntitySchema) error {
	if err := db.Exec(reg.CreateTableSQL(e, tm.dialect)).Error; err != nil {
		return fmt.Errorf("create table %s: %w", e.Table, err)
	}
	for _, stmt := range e.CreateIndexSQL() {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index on %s: %w", e.Table, err)
		}
	}
	return nil
}

// HasTable reports whether the table backing e exists.
func (tm *TableManager) HasTable(ctx context.Context, e *schema.EntitySchema) bool {
	return tm.db.WithContext(ctx).Migrator().HasTable(e.Table)
}
