// Package manager owns the database handle: opening it for the configured
// driver, creating the catalog tables and seeding lookup data.
package manager

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// Options selects and tunes the database connection.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

type Manager struct {
	db           *gorm.DB
	dialect      schema.Dialect
	tableManager *TableManager
	logger       *zap.Logger
}

// Open connects to the configured database and applies pool limits.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Manager, error) {
	var dialector gorm.Dialector
	switch schema.Dialect(opts.Driver) {
	case schema.DialectPostgres:
		dialector = postgres.Open(opts.DSN)
	case schema.DialectSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if schema.Dialect(opts.Driver) == schema.DialectSQLite {
		// One connection keeps in-memory databases alive and serialises writers.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	m, err := NewManager(ctx, db, log)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return m, nil
}

// NewManager wraps an already opened handle; the dialect follows its driver.
func NewManager(ctx context.Context, db *gorm.DB, log *zap.Logger) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	dialect := schema.Dialect(db.Dialector.Name())
	if dialect == schema.DialectSQLite {
		if err := db.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}
	}
	return &Manager{
		db:           db,
		dialect:      dialect,
		tableManager: NewTableManager(db, dialect),
		logger:       log,
	}, nil
}

// Initialize creates every table of the given catalogs that does not exist yet.
func (m *Manager) Initialize(ctx context.Context, registries ...*schema.Registry) error {
	for _, reg := range registries {
		if err := m.tableManager.Initialize(ctx, reg); err != nil {
			return err
		}
	}
	m.logger.Info("database schema ready", zap.String("dialect", string(m.dialect)))
	return nil
}

func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

func (m *Manager) Dialect() schema.Dialect {
	return m.dialect
}

func (m *Manager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetStats reports connection pool usage.
func (m *Manager) GetStats() map[string]interface{} {
	sqlDB, err := m.db.DB()
	if err != nil {
		return map[string]interface{}{
			"error": err.Error(),
		}
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"dialect":              string(m.dialect),
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
	}
}
