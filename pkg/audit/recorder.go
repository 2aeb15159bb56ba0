package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/metrics"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// Entry is one change to append to the audit trail.
type Entry struct {
	Table     string
	RecordID  *int64
	RecordKey string
	Operation Operation
	ActorID   *int64
	Old       map[string]interface{}
	New       map[string]interface{}
}

// ListFilter narrows Recorder.List. Zero values match everything.
type ListFilter struct {
	Table     string
	RecordKey string
	Operation Operation
	Limit     int
	Offset    int
}

const defaultListLimit = 50

// Recorder appends to and reads from audit_log.
type Recorder struct {
	db       *gorm.DB
	accounts *schema.EntitySchema
	logger   *zap.Logger
	now      func() time.Time
}

// NewRecorder resolves acting accounts through the Account descriptor of reg.
func NewRecorder(db *gorm.DB, reg *schema.Registry, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		db:       db,
		accounts: reg.MustLookup(schema.KindAccount),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Log appends e. It never fails the caller: a failed write is logged and
// counted in gqpanel_audit_write_failures_total.
func (r *Recorder) Log(ctx context.Context, e Entry) {
	row := AuditLog{
		Table:     e.Table,
		RecordID:  e.RecordID,
		RecordKey: e.RecordKey,
		Operation: e.Operation,
		ChangedBy: r.resolveActor(ctx, e.ActorID),
		ChangedAt: r.now(),
	}

	var err error
	if row.OldData, err = encodeSnapshot(e.Old); err != nil {
		r.fail(e, err)
		return
	}
	if row.NewData, err = encodeSnapshot(e.New); err != nil {
		r.fail(e, err)
		return
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.fail(e, err)
		return
	}
	r.logger.Debug("audit record written",
		zap.String("table", e.Table),
		zap.String("record_key", e.RecordKey),
		zap.String("operation", string(e.Operation)),
		zap.Int64("id", row.ID),
	)
}

// resolveActor drops an actor id that no longer names an account.
func (r *Recorder) resolveActor(ctx context.Context, actorID *int64) *int64 {
	if actorID == nil {
		return nil
	}
	var n int64
	err := r.db.WithContext(ctx).
		Table(r.accounts.Table).
		Where(r.accounts.PrimaryKey+" = ?", *actorID).
		Count(&n).Error
	if err != nil || n == 0 {
		return nil
	}
	return actorID
}

func (r *Recorder) fail(e Entry, err error) {
	metrics.AuditWriteFailures.Inc()
	r.logger.Warn("failed to write audit record",
		zap.String("table", e.Table),
		zap.String("record_key", e.RecordKey),
		zap.String("operation", string(e.Operation)),
		zap.Error(err),
	)
}

// List returns matching entries, newest first, and the total match count.
func (r *Recorder) List(ctx context.Context, f ListFilter) ([]v1alpha1.AuditEntry, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if f.Table != "" {
			db = db.Where("table_name = ?", f.Table)
		}
		if f.RecordKey != "" {
			db = db.Where("record_key = ?", f.RecordKey)
		}
		if f.Operation != "" {
			db = db.Where("operation = ?", f.Operation)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&AuditLog{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	var rows []AuditLog
	err := r.db.WithContext(ctx).Scopes(filter).
		Order("changed_at DESC").Order("id_audit DESC").
		Limit(limit).Offset(f.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	entries := make([]v1alpha1.AuditEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToEntry()
	}
	return entries, total, nil
}

// ForRecord returns the full history of one record, oldest first, with the
// changed fields of each step filled in.
func (r *Recorder) ForRecord(ctx context.Context, table, recordKey string) ([]v1alpha1.AuditEntry, error) {
	var rows []AuditLog
	err := r.db.WithContext(ctx).
		Where("table_name = ? AND record_key = ?", table, recordKey).
		Order("changed_at ASC").Order("id_audit ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]v1alpha1.AuditEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToEntry()
		entries[i].Changes = Diff(entries[i].OldData, entries[i].NewData)
	}
	return entries, nil
}
