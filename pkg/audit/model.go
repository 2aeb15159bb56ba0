package audit

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
)

type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// AuditLog maps the audit_log table. Rows are append-only.
type AuditLog struct {
	ID        int64          `gorm:"column:id_audit;primaryKey;autoIncrement"`
	Table     string         `gorm:"column:table_name"`
	RecordID  *int64         `gorm:"column:record_id"`
	RecordKey string         `gorm:"column:record_key"`
	Operation Operation      `gorm:"column:operation"`
	OldData   datatypes.JSON `gorm:"column:old_data"`
	NewData   datatypes.JSON `gorm:"column:new_data"`
	ChangedBy *int64         `gorm:"column:changed_by"`
	ChangedAt time.Time      `gorm:"column:changed_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

func encodeSnapshot(snapshot map[string]interface{}) (datatypes.JSON, error) {
	if snapshot == nil {
		return nil, nil
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func decodeSnapshot(data datatypes.JSON) map[string]interface{} {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// ToEntry converts a stored row into its read model.
func (l *AuditLog) ToEntry() v1alpha1.AuditEntry {
	return v1alpha1.AuditEntry{
		ID:        l.ID,
		Table:     l.Table,
		RecordID:  l.RecordID,
		RecordKey: l.RecordKey,
		Operation: string(l.Operation),
		ChangedBy: l.ChangedBy,
		ChangedAt: l.ChangedAt,
		OldData:   decodeSnapshot(l.OldData),
		NewData:   decodeSnapshot(l.NewData),
	}
}
