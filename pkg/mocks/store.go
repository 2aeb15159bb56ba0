package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sukryu/gqpanel/pkg/store/dynamic"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// MockDynamicStore implements dynamic.DynamicStore with testify expectations.
type MockDynamicStore struct {
	mock.Mock
}

var _ dynamic.DynamicStore = (*MockDynamicStore)(nil)

func NewMockDynamicStore() *MockDynamicStore {
	return &MockDynamicStore{}
}

func (m *MockDynamicStore) Create(ctx context.Context, entity *schema.EntitySchema, data map[string]interface{}) (interface{}, error) {
	args := m.Called(ctx, entity, data)
	return args.Get(0), args.Error(1)
}

func (m *MockDynamicStore) Get(ctx context.Context, entity *schema.EntitySchema, id interface{}) (map[string]interface{}, error) {
	args := m.Called(ctx, entity, id)
	if row, ok := args.Get(0).(map[string]interface{}); ok {
		return row, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDynamicStore) Update(ctx context.Context, entity *schema.EntitySchema, id interface{}, data map[string]interface{}) error {
	args := m.Called(ctx, entity, id, data)
	return args.Error(0)
}

func (m *MockDynamicStore) Delete(ctx context.Context, entity *schema.EntitySchema, id interface{}) error {
	args := m.Called(ctx, entity, id)
	return args.Error(0)
}

func (m *MockDynamicStore) Exists(ctx context.Context, entity *schema.EntitySchema, id interface{}) (bool, error) {
	args := m.Called(ctx, entity, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDynamicStore) List(ctx context.Context, entity *schema.EntitySchema, opts dynamic.ListOptions) ([]map[string]interface{}, error) {
	args := m.Called(ctx, entity, opts)
	if rows, ok := args.Get(0).([]map[string]interface{}); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDynamicStore) Count(ctx context.Context, entity *schema.EntitySchema, filter map[string]interface{}) (int64, error) {
	args := m.Called(ctx, entity, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDynamicStore) Query(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	args := m.Called(ctx, query, params)
	if rows, ok := args.Get(0).([]map[string]interface{}); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

// TransactionWithOptions runs fn against the mock itself unless the
// expectation returns an error.
func (m *MockDynamicStore) TransactionWithOptions(ctx context.Context, opts dynamic.TransactionOptions, fn func(tx dynamic.DynamicStore) error) error {
	args := m.Called(ctx, opts, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *MockDynamicStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
