package dynamic

import (
	"context"

	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// DynamicStore reads and writes rows of any described entity as column maps.
type DynamicStore interface {
	// Create inserts data and returns the primary key of the new row.
	Create(ctx context.Context, entity *schema.EntitySchema, data map[string]interface{}) (interface{}, error)
	Get(ctx context.Context, entity *schema.EntitySchema, id interface{}) (map[string]interface{}, error)
	Update(ctx context.Context, entity *schema.EntitySchema, id interface{}, data map[string]interface{}) error
	Delete(ctx context.Context, entity *schema.EntitySchema, id interface{}) error
	Exists(ctx context.Context, entity *schema.EntitySchema, id interface{}) (bool, error)

	// Query operations
	List(ctx context.Context, entity *schema.EntitySchema, opts ListOptions) ([]map[string]interface{}, error)
	Count(ctx context.Context, entity *schema.EntitySchema, filter map[string]interface{}) (int64, error)
	// Query runs a read-only statement outside the descriptor catalog.
	Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error)

	// Transaction support
	TransactionWithOptions(ctx context.Context, opts TransactionOptions, fn func(tx DynamicStore) error) error

	Close() error
}

// ListOptions filters, orders and pages a List call. Filter keys and OrderBy
// must name fields of the entity.
type ListOptions struct {
	Filter  map[string]interface{}
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

type TransactionOptions struct {
	IsolationLevel IsolationLevel
	ReadOnly       bool
}

type IsolationLevel int

const (
	DefaultIsolation IsolationLevel = iota
	ReadUncommitted
	ReadCommitted
	RepeatableRead
	Serializable
)
