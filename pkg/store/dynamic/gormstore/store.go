// Package gormstore implements dynamic.DynamicStore over a gorm handle for
// both sqlite and postgres.
package gormstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/store/dynamic"
	"github.com/sukryu/gqpanel/pkg/store/dynamic/query"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

type GormDynamicStore struct {
	db      *gorm.DB
	dialect schema.Dialect
	logger  *zap.Logger
	now     func() time.Time
}

func NewGormDynamicStore(db *gorm.DB, logger *zap.Logger) (dynamic.DynamicStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormDynamicStore{
		db:      db,
		dialect: schema.Dialect(db.Dialector.Name()),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *GormDynamicStore) Create(ctx context.Context, entity *schema.EntitySchema, data map[string]interface{}) (interface{}, error) {
	columns := make([]string, 0, len(entity.Fields))
	values := make([]interface{}, 0, len(entity.Fields))
	placeholders := make([]string, 0, len(entity.Fields))

	for _, field := range entity.Fields {
		if field.PrimaryKey && field.AutoIncrement {
			continue
		}
		value, exists := data[field.Name]
		if field.AutoNow && (!exists || value == nil) {
			value, exists = s.now(), true
		}
		if !exists {
			continue
		}
		columns = append(columns, field.Name)
		values = append(values, value)
		placeholders = append(placeholders, "?")
	}
	if len(columns) == 0 {
		return nil, errors.ErrInvalidInput.WithReason(fmt.Sprintf("%s: no values to insert", entity.Kind))
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		entity.Table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		entity.PrimaryKey,
	)

	var id interface{}
	if err := s.db.WithContext(ctx).Raw(stmt, values...).Row().Scan(&id); err != nil {
		return nil, errors.ErrStorageOperation.WithReason(err.Error())
	}
	return convertValue(entity.PrimaryKeyField(), id), nil
}

func (s *GormDynamicStore) Get(ctx context.Context, entity *schema.EntitySchema, id interface{}) (map[string]interface{}, error) {
	var results []map[string]interface{}
	err := s.db.WithContext(ctx).
		Table(entity.Table).
		Select(entity.Columns()).
		Where(entity.PrimaryKey+" = ?", id).
		Limit(1).
		Find(&results).Error
	if err != nil {
		return nil, errors.ErrStorageOperation.WithReason(err.Error())
	}
	if len(results) == 0 {
		return nil, errors.ErrNotFound.WithReason(fmt.Sprintf("%s/%v", entity.Kind, id))
	}
	return normalizeRow(entity, results[0]), nil
}

func (s *GormDynamicStore) Exists(ctx context.Context, entity *schema.EntitySchema, id interface{}) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table(entity.Table).
		Where(entity.PrimaryKey+" = ?", id).
		Count(&count).Error
	if err != nil {
		return false, errors.ErrStorageOperation.WithReason(err.Error())
	}
	return count > 0, nil
}

func (s *GormDynamicStore) Update(ctx context.Context, entity *schema.EntitySchema, id interface{}, data map[string]interface{}) error {
	converted := make(map[string]interface{}, len(data))
	for key, value := range data {
		field, ok := entity.Field(key)
		if !ok {
			return errors.ErrInvalidInput.WithReason(fmt.Sprintf("%s has no field %q", entity.Kind, key))
		}
		if field.PrimaryKey {
			continue
		}
		converted[key] = value
	}

	if len(converted) == 0 {
		exists, err := s.Exists(ctx, entity, id)
		if err != nil {
			return err
		}
		if !exists {
			return errors.ErrNotFound.WithReason(fmt.Sprintf("%s/%v", entity.Kind, id))
		}
		return nil
	}

	result := s.db.WithContext(ctx).Table(entity.Table).Where(entity.PrimaryKey+" = ?", id).Updates(converted)
	if result.Error != nil {
		return errors.ErrStorageOperation.WithReason(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound.WithReason(fmt.Sprintf("%s/%v", entity.Kind, id))
	}
	return nil
}

func (s *GormDynamicStore) Delete(ctx context.Context, entity *schema.EntitySchema, id interface{}) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", entity.Table, entity.PrimaryKey)
	result := s.db.WithContext(ctx).Exec(stmt, id)
	if result.Error != nil {
		return errors.ErrStorageOperation.WithReason(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound.WithReason(fmt.Sprintf("%s/%v", entity.Kind, id))
	}
	return nil
}

func (s *GormDynamicStore) List(ctx context.Context, entity *schema.EntitySchema, opts dynamic.ListOptions) ([]map[string]interface{}, error) {
	sel := query.From(entity.Table, entity.Columns()...).Page(opts.Limit, opts.Offset)
	if err := applyFilter(entity, sel, opts.Filter); err != nil {
		return nil, err
	}

	if opts.OrderBy != "" {
		if _, ok := entity.Field(opts.OrderBy); !ok {
			return nil, errors.ErrInvalidInput.WithReason(fmt.Sprintf("%s has no field %q", entity.Kind, opts.OrderBy))
		}
		sel.OrderBy(opts.OrderBy, opts.Desc)
	}
	// A stable tie-breaker keeps pages from overlapping.
	if opts.OrderBy != entity.PrimaryKey {
		sel.OrderBy(entity.PrimaryKey, opts.Desc || opts.OrderBy == "")
	}

	stmt, args := sel.SQL()
	var results []map[string]interface{}
	if err := s.db.WithContext(ctx).Raw(stmt, args...).Scan(&results).Error; err != nil {
		return nil, errors.ErrStorageOperation.WithReason(err.Error())
	}

	for i := range results {
		results[i] = normalizeRow(entity, results[i])
	}
	return results, nil
}

func (s *GormDynamicStore) Count(ctx context.Context, entity *schema.EntitySchema, filter map[string]interface{}) (int64, error) {
	sel := query.From(entity.Table, "COUNT(*)")
	if err := applyFilter(entity, sel, filter); err != nil {
		return 0, err
	}

	stmt, args := sel.SQL()
	var count int64
	if err := s.db.WithContext(ctx).Raw(stmt, args...).Row().Scan(&count); err != nil {
		return 0, errors.ErrStorageOperation.WithReason(err.Error())
	}
	return count, nil
}

func (s *GormDynamicStore) Query(ctx context.Context, stmt string, args ...interface{}) ([]map[string]interface{}, error) {
	var results []map[string]interface{}
	if err := s.db.WithContext(ctx).Raw(stmt, args...).Scan(&results).Error; err != nil {
		return nil, errors.ErrStorageOperation.WithReason(err.Error())
	}
	for _, row := range results {
		for k, v := range row {
			row[k] = unwrap(v)
		}
	}
	return results, nil
}

func (s *GormDynamicStore) TransactionWithOptions(ctx context.Context, opts dynamic.TransactionOptions, fn func(tx dynamic.DynamicStore) error) error {
	var txOpts *sql.TxOptions
	if s.dialect == schema.DialectSQLite {
		if opts.IsolationLevel != dynamic.DefaultIsolation && opts.IsolationLevel != dynamic.Serializable {
			s.logger.Debug("sqlite only supports SERIALIZABLE isolation, ignoring requested level",
				zap.Int("level", int(opts.IsolationLevel)))
		}
	} else {
		txOpts = &sql.TxOptions{
			Isolation: isolationLevels[opts.IsolationLevel],
			ReadOnly:  opts.ReadOnly,
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.ReadOnly && s.dialect == schema.DialectSQLite {
			if err := tx.Exec("PRAGMA query_only = ON").Error; err != nil {
				return err
			}
			defer tx.Exec("PRAGMA query_only = OFF")
		}

		txStore := &GormDynamicStore{db: tx, dialect: s.dialect, logger: s.logger, now: s.now}
		return fn(txStore)
	}, txOpts)
}

var isolationLevels = map[dynamic.IsolationLevel]sql.IsolationLevel{
	dynamic.DefaultIsolation: sql.LevelDefault,
	dynamic.ReadUncommitted:  sql.LevelReadUncommitted,
	dynamic.ReadCommitted:    sql.LevelReadCommitted,
	dynamic.RepeatableRead:   sql.LevelRepeatableRead,
	dynamic.Serializable:     sql.LevelSerializable,
}

func (s *GormDynamicStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applyFilter(entity *schema.EntitySchema, sel *query.Select, filter map[string]interface{}) error {
	keys := make([]string, 0, len(filter))
	for key := range filter {
		if _, ok := entity.Field(key); !ok {
			return errors.ErrInvalidInput.WithReason(fmt.Sprintf("%s has no field %q", entity.Kind, key))
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sel.Eq(key, filter[key])
	}
	return nil
}
