package controllers

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/audit"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/metrics"
	"github.com/sukryu/gqpanel/pkg/store/dynamic"
	"github.com/sukryu/gqpanel/pkg/store/schema"
	"github.com/sukryu/gqpanel/pkg/validation"
)

const (
	PanelPageSize   = 10
	maxPageLinks    = 10
	MaxOptions      = 100
	MaxRESTPageSize = 100
)

// Flash texts for successful mutations.
const (
	MessageCreated = "record created successfully"
	MessageUpdated = "record updated successfully"
	MessageDeleted = "record deleted successfully"
)

// AuditRecorder appends mutation history. Implementations must not fail the
// caller.
type AuditRecorder interface {
	Log(ctx context.Context, e audit.Entry)
}

// CRUDController runs create, update and delete against any entity of one
// catalog, plus the reads the panel and REST surfaces need. Every call takes
// the authenticated principal and is checked before any other work.
type CRUDController interface {
	Dispatch(ctx context.Context, principal *v1alpha1.Principal, req *v1alpha1.MutationRequest) (*v1alpha1.MutationResult, error)
	Create(ctx context.Context, principal *v1alpha1.Principal, table string, values map[string]string) (*v1alpha1.MutationResult, error)
	Update(ctx context.Context, principal *v1alpha1.Principal, table, recordID string, values map[string]string) (*v1alpha1.MutationResult, error)
	Delete(ctx context.Context, principal *v1alpha1.Principal, table, recordID string) (*v1alpha1.MutationResult, error)

	GetRecord(ctx context.Context, principal *v1alpha1.Principal, table, recordID string) (map[string]interface{}, error)
	Options(ctx context.Context, principal *v1alpha1.Principal, table string) ([]v1alpha1.Option, error)
	List(ctx context.Context, principal *v1alpha1.Principal, table string, q v1alpha1.ListQuery) (*v1alpha1.ListResult, error)
	ListPage(ctx context.Context, principal *v1alpha1.Principal, table string, page, pageSize int) (*v1alpha1.Page, error)
	// Tables lists the kinds of this catalog the principal may open.
	Tables(principal *v1alpha1.Principal) []string
}

type crudController struct {
	group    string
	registry *schema.Registry
	store    dynamic.DynamicStore
	recorder AuditRecorder
	rbac     RBACController
	logger   *zap.Logger
}

// NewCRUDController serves the entities of registry under the RBAC group.
func NewCRUDController(group string, registry *schema.Registry, store dynamic.DynamicStore, recorder AuditRecorder, rbac RBACController, logger *zap.Logger) CRUDController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &crudController{
		group:    group,
		registry: registry,
		store:    store,
		recorder: recorder,
		rbac:     rbac,
		logger:   logger.With(zap.String("catalog", group)),
	}
}

func (c *crudController) Dispatch(ctx context.Context, principal *v1alpha1.Principal, req *v1alpha1.MutationRequest) (*v1alpha1.MutationResult, error) {
	if req == nil {
		return nil, errors.ErrInvalidRequest.WithReason("request cannot be nil")
	}
	switch req.Action {
	case v1alpha1.ActionCreate:
		return c.Create(ctx, principal, req.Table, req.Values)
	case v1alpha1.ActionUpdate:
		return c.Update(ctx, principal, req.Table, req.RecordID, req.Values)
	case v1alpha1.ActionDelete:
		return c.Delete(ctx, principal, req.Table, req.RecordID)
	default:
		return nil, errors.ErrUnknownAction.WithReason(string(req.Action))
	}
}

func (c *crudController) Tables(principal *v1alpha1.Principal) []string {
	var out []string
	for _, kind := range c.registry.Kinds() {
		if principal.Permits(string(kind)) {
			out = append(out, string(kind))
		}
	}
	return out
}

// authorize resolves table and checks the principal may apply verb to it.
func (c *crudController) authorize(ctx context.Context, principal *v1alpha1.Principal, verb, table string) (*schema.EntitySchema, error) {
	if principal == nil {
		return nil, errors.ErrUnauthenticated
	}
	entity, ok := c.registry.Lookup(table)
	if !ok {
		return nil, errors.ErrUnknownTable.WithReason(table)
	}
	if !principal.Permits(table) {
		return nil, errors.ErrPermissionDenied.WithReason(fmt.Sprintf("no access to table %s", table))
	}
	switch verb {
	case v1alpha1.VerbCreate, v1alpha1.VerbUpdate, v1alpha1.VerbDelete:
		if entity.ReadOnly {
			return nil, errors.ErrReadOnly.WithReason(table)
		}
	}
	allowed, err := c.rbac.CheckAccess(ctx, principal, verb, table, c.group)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errors.ErrPermissionDenied.WithReason(fmt.Sprintf("%s on %s is not allowed", verb, table))
	}
	return entity, nil
}

func (c *crudController) Create(ctx context.Context, principal *v1alpha1.Principal, table string, values map[string]string) (*v1alpha1.MutationResult, error) {
	entity, err := c.authorize(ctx, principal, v1alpha1.VerbCreate, table)
	if err != nil {
		return nil, err
	}

	data, err := c.prepare(ctx, entity, values, v1alpha1.ActionCreate, nil)
	if err != nil {
		c.count(table, v1alpha1.ActionCreate, err)
		return nil, err
	}

	var row map[string]interface{}
	err = c.store.TransactionWithOptions(ctx, dynamic.TransactionOptions{}, func(tx dynamic.DynamicStore) error {
		id, err := tx.Create(ctx, entity, data)
		if err != nil {
			return err
		}
		row, err = tx.Get(ctx, entity, id)
		return err
	})
	if err != nil {
		err = c.storageError(err, entity, v1alpha1.ActionCreate)
		c.count(table, v1alpha1.ActionCreate, err)
		return nil, err
	}

	snapshot := audit.Snapshot(entity, row)
	c.recorder.Log(ctx, audit.Entry{
		Table:     entity.Table,
		RecordID:  audit.RecordID(entity, row),
		RecordKey: audit.RecordKey(entity, row),
		Operation: audit.OperationInsert,
		ActorID:   principal.ActorID(),
		New:       snapshot,
	})
	c.count(table, v1alpha1.ActionCreate, nil)

	return &v1alpha1.MutationResult{
		Table:     table,
		Action:    v1alpha1.ActionCreate,
		RecordKey: audit.RecordKey(entity, row),
		Record:    snapshot,
		Message:   MessageCreated,
	}, nil
}

func (c *crudController) Update(ctx context.Context, principal *v1alpha1.Principal, table, recordID string, values map[string]string) (*v1alpha1.MutationResult, error) {
	entity, err := c.authorize(ctx, principal, v1alpha1.VerbUpdate, table)
	if err != nil {
		return nil, err
	}
	key, err := c.recordKey(entity, recordID)
	if err != nil {
		return nil, err
	}

	existing, err := c.store.Get(ctx, entity, key)
	if err != nil {
		err = c.storageError(err, entity, v1alpha1.ActionUpdate)
		c.count(table, v1alpha1.ActionUpdate, err)
		return nil, err
	}

	data, err := c.prepare(ctx, entity, values, v1alpha1.ActionUpdate, existing)
	if err != nil {
		c.count(table, v1alpha1.ActionUpdate, err)
		return nil, err
	}

	var row map[string]interface{}
	err = c.store.TransactionWithOptions(ctx, dynamic.TransactionOptions{}, func(tx dynamic.DynamicStore) error {
		if err := tx.Update(ctx, entity, key, data); err != nil {
			return err
		}
		var err error
		row, err = tx.Get(ctx, entity, key)
		return err
	})
	if err != nil {
		err = c.storageError(err, entity, v1alpha1.ActionUpdate)
		c.count(table, v1alpha1.ActionUpdate, err)
		return nil, err
	}

	snapshot := audit.Snapshot(entity, row)
	c.recorder.Log(ctx, audit.Entry{
		Table:     entity.Table,
		RecordID:  audit.RecordID(entity, row),
		RecordKey: audit.RecordKey(entity, row),
		Operation: audit.OperationUpdate,
		ActorID:   principal.ActorID(),
		Old:       audit.Snapshot(entity, existing),
		New:       snapshot,
	})
	c.count(table, v1alpha1.ActionUpdate, nil)

	return &v1alpha1.MutationResult{
		Table:     table,
		Action:    v1alpha1.ActionUpdate,
		RecordKey: audit.RecordKey(entity, row),
		Record:    snapshot,
		Message:   MessageUpdated,
	}, nil
}

func (c *crudController) Delete(ctx context.Context, principal *v1alpha1.Principal, table, recordID string) (*v1alpha1.MutationResult, error) {
	entity, err := c.authorize(ctx, principal, v1alpha1.VerbDelete, table)
	if err != nil {
		return nil, err
	}
	key, err := c.recordKey(entity, recordID)
	if err != nil {
		return nil, err
	}

	var old map[string]interface{}
	err = c.store.TransactionWithOptions(ctx, dynamic.TransactionOptions{}, func(tx dynamic.DynamicStore) error {
		var err error
		if old, err = tx.Get(ctx, entity, key); err != nil {
			return err
		}
		return tx.Delete(ctx, entity, key)
	})
	if err != nil {
		err = c.storageError(err, entity, v1alpha1.ActionDelete)
		c.count(table, v1alpha1.ActionDelete, err)
		return nil, err
	}

	c.recorder.Log(ctx, audit.Entry{
		Table:     entity.Table,
		RecordID:  audit.RecordID(entity, old),
		RecordKey: audit.RecordKey(entity, old),
		Operation: audit.OperationDelete,
		ActorID:   principal.ActorID(),
		Old:       audit.Snapshot(entity, old),
	})
	c.count(table, v1alpha1.ActionDelete, nil)

	return &v1alpha1.MutationResult{
		Table:     table,
		Action:    v1alpha1.ActionDelete,
		RecordKey: audit.RecordKey(entity, old),
		Message:   MessageDeleted,
	}, nil
}

// prepare turns submitted text into column values: foreign keys are resolved,
// the values are validated, then coerced and secrets hashed. Blank values are
// left out so updates keep what is stored, except blank nullable foreign keys
// which are cleared.
func (c *crudController) prepare(ctx context.Context, entity *schema.EntitySchema, values map[string]string, action v1alpha1.Action, existing map[string]interface{}) (map[string]interface{}, error) {
	data := make(map[string]interface{}, len(values))

	for _, f := range entity.Fields {
		raw, present := values[f.Name]
		if !present || !f.IsForeignKey() {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			if f.Nullable {
				data[f.Name] = nil
			}
			continue
		}
		key, err := c.resolveReference(ctx, f, raw)
		if err != nil {
			return nil, err
		}
		data[f.Name] = key
	}

	msgs := validation.Validate(entity, values, action, existing)
	if action == v1alpha1.ActionCreate {
		msgs = append(msgs, validateNaturalKey(entity, values)...)
	}
	if len(msgs) > 0 {
		return nil, errors.ErrValidation.WithDetails(msgs)
	}

	for _, f := range entity.Fields {
		if f.IsForeignKey() || f.AutoNow || (f.PrimaryKey && (f.AutoIncrement || action != v1alpha1.ActionCreate)) {
			continue
		}
		raw := strings.TrimSpace(values[f.Name])
		if raw == "" {
			continue
		}
		if f.Secret {
			hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
			if err != nil {
				return nil, errors.ErrInternal.WithReason("failed to hash password")
			}
			data[f.Name] = string(hash)
			continue
		}
		v, err := f.Coerce(raw)
		if err != nil {
			return nil, errors.ErrValidation.WithDetails([]string{err.Error()})
		}
		data[f.Name] = v
	}
	return data, nil
}

// validateNaturalKey checks a caller-assigned primary key, which the field
// rules skip.
func validateNaturalKey(entity *schema.EntitySchema, values map[string]string) []string {
	pk := entity.PrimaryKeyField()
	if pk.AutoIncrement {
		return nil
	}
	path := field.NewPath(pk.Name)
	raw := strings.TrimSpace(values[pk.Name])
	switch {
	case raw == "":
		return []string{field.Required(path, "").Error()}
	case pk.MaxLength > 0 && len([]rune(raw)) > pk.MaxLength:
		return []string{field.TooLong(path, raw, pk.MaxLength).Error()}
	}
	return nil
}

func (c *crudController) resolveReference(ctx context.Context, f schema.FieldDef, raw string) (interface{}, error) {
	target, ok := c.registry.Lookup(string(f.Ref))
	if !ok {
		return nil, errors.ErrInternal.WithReason(fmt.Sprintf("%s references unknown kind %s", f.Name, f.Ref))
	}
	key, err := target.ParseKey(raw)
	if err != nil {
		return nil, errors.ErrReferenceNotFound.WithReason(f.Name)
	}
	exists, err := c.store.Exists(ctx, target, key)
	if err != nil {
		return nil, c.storageError(err, target, "load")
	}
	if !exists {
		return nil, errors.ErrReferenceNotFound.WithReason(f.Name)
	}
	return key, nil
}

func (c *crudController) recordKey(entity *schema.EntitySchema, recordID string) (interface{}, error) {
	if strings.TrimSpace(recordID) == "" {
		return nil, errors.ErrInvalidInput.WithReason("record id is required")
	}
	key, err := entity.ParseKey(recordID)
	if err != nil {
		return nil, errors.ErrNotFound.WithReason(err.Error())
	}
	return key, nil
}

// storageError keeps not-found and conflicts recognisable and hides every
// other storage failure behind a per-action message. The raw error is logged.
func (c *crudController) storageError(err error, entity *schema.EntitySchema, action v1alpha1.Action) error {
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		return errors.ErrNotFound.WithReason(string(entity.Kind))
	case errors.IsIntegrityViolation(err):
		c.logger.Info("integrity violation",
			zap.String("table", entity.Table),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return errors.ErrConflict
	}
	c.logger.Error("storage operation failed",
		zap.String("table", entity.Table),
		zap.String("action", string(action)),
		zap.Error(err),
	)
	return errors.ErrStorageOperation.WithReason(errors.FriendlyMessage(err, string(action)))
}

func (c *crudController) count(table string, action v1alpha1.Action, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeRejected
		var se *errors.StatusError
		if !stderrors.As(err, &se) || se.Code >= 500 {
			outcome = metrics.OutcomeError
		}
	}
	metrics.MutationsTotal.WithLabelValues(table, string(action), outcome).Inc()
}

func (c *crudController) GetRecord(ctx context.Context, principal *v1alpha1.Principal, table, recordID string) (map[string]interface{}, error) {
	entity, err := c.authorize(ctx, principal, v1alpha1.VerbGet, table)
	if err != nil {
		return nil, err
	}
	key, err := c.recordKey(entity, recordID)
	if err != nil {
		return nil, err
	}
	row, err := c.store.Get(ctx, entity, key)
	if err != nil {
		return nil, c.storageError(err, entity, "load")
	}
	return audit.Snapshot(entity, row), nil
}

func (c *crudController) Options(ctx context.Context, principal *v1alpha1.Principal, table string) ([]v1alpha1.Option, error) {
	entity, err := c.authorize(ctx, principal, v1alpha1.VerbList, table)
	if err != nil {
		return nil, err
	}
	rows, err := c.store.List(ctx, entity, dynamic.ListOptions{OrderBy: entity.PrimaryKey, Limit: MaxOptions})
	if err != nil {
		return nil, c.storageError(err, entity, "load")
	}

	options := make([]v1alpha1.Option, len(rows))
	for i, row := range rows {
		options[i] = v1alpha1.Option{Value: row[entity.PrimaryKey], Label: optionLabel(entity, row)}
	}
	return options, nil
}

func optionLabel(entity *schema.EntitySchema, row map[string]interface{}) string {
	if entity.OptionLabel != nil {
		return entity.OptionLabel(row)
	}
	return audit.RecordKey(entity, row)
}

func (c *crudController) List(ctx context.Context, principal *v1alpha1.Principal, table string, q v1alpha1.ListQuery) (*v1alpha1.ListResult, error) {
	entity, err := c.authorize(ctx, principal, v1alpha1.VerbList, table)
	if err != nil {
		return nil, err
	}

	sortBy := strings.TrimSpace(q.SortBy)
	order := strings.ToLower(q.Order)
	if order != "asc" && order != "desc" {
		order = "asc"
	}
	opts := dynamic.ListOptions{Limit: PanelPageSize}
	if sortBy != "" && entity.IsDisplayField(sortBy) {
		opts.OrderBy = sortBy
		opts.Desc = order == "desc"
	} else {
		sortBy, order = "", "asc"
	}

	total, err := c.store.Count(ctx, entity, nil)
	if err != nil {
		return nil, c.storageError(err, entity, "load")
	}
	numPages := int((total + PanelPageSize - 1) / PanelPageSize)
	if numPages < 1 {
		numPages = 1
	}
	page, err := strconv.Atoi(strings.TrimSpace(q.Page))
	switch {
	case err != nil:
		page = 1
	case page < 1 || page > numPages:
		page = numPages
	}
	opts.Offset = (page - 1) * PanelPageSize

	rows, err := c.store.List(ctx, entity, opts)
	if err != nil {
		return nil, c.storageError(err, entity, "load")
	}
	for i := range rows {
		rows[i] = audit.Snapshot(entity, rows[i])
	}

	return &v1alpha1.ListResult{
		Table:       table,
		Columns:     append([]string(nil), entity.DisplayFields...),
		Rows:        rows,
		SortBy:      sortBy,
		Order:       order,
		Page:        page,
		NumPages:    numPages,
		Total:       total,
		PageRange:   PageRange(page, numPages),
		HasPrevious: page > 1,
		HasNext:     page < numPages,
		ReadOnly:    entity.ReadOnly,
	}, nil
}

// PageRange returns at most ten page numbers around current.
func PageRange(current, numPages int) []int {
	start, end := 1, numPages
	if numPages > maxPageLinks {
		start = current - 4
		if start > numPages-maxPageLinks+1 {
			start = numPages - maxPageLinks + 1
		}
		if start < 1 {
			start = 1
		}
		end = start + maxPageLinks - 1
		if end > numPages {
			end = numPages
		}
	}
	out := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		out = append(out, p)
	}
	return out
}

func (c *crudController) ListPage(ctx context.Context, principal *v1alpha1.Principal, table string, page, pageSize int) (*v1alpha1.Page, error) {
	entity, err := c.authorize(ctx, principal, v1alpha1.VerbList, table)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 || pageSize > MaxRESTPageSize {
		pageSize = MaxRESTPageSize
	}
	if page < 1 {
		return nil, errors.ErrNotFound.WithReason("invalid page")
	}

	total, err := c.store.Count(ctx, entity, nil)
	if err != nil {
		return nil, c.storageError(err, entity, "load")
	}
	if offset := (page - 1) * pageSize; offset > 0 && int64(offset) >= total {
		return nil, errors.ErrNotFound.WithReason("invalid page")
	}

	rows, err := c.store.List(ctx, entity, dynamic.ListOptions{
		OrderBy: entity.PrimaryKey,
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
	})
	if err != nil {
		return nil, c.storageError(err, entity, "load")
	}
	results := make([]map[string]interface{}, len(rows))
	for i := range rows {
		results[i] = audit.Snapshot(entity, rows[i])
	}
	return &v1alpha1.Page{Count: total, Results: results}, nil
}
