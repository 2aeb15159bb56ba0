package v1alpha1

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the mutation requested by a panel form.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// MutationRequest is a generic CRUD submission against one table.
type MutationRequest struct {
	Table    string            `json:"table_name" form:"table_name"`
	Action   Action            `json:"action" form:"action"`
	RecordID string            `json:"record_id,omitempty" form:"record_id"`
	Values   map[string]string `json:"values,omitempty"`
}

// MutationResult describes a persisted change.
type MutationResult struct {
	Table     string                 `json:"table"`
	Action    Action                 `json:"action"`
	RecordKey string                 `json:"record_key"`
	Record    map[string]interface{} `json:"record,omitempty"`
	Message   string                 `json:"message"`
}

// Option is one entry of a foreign-key select list.
type Option struct {
	Value interface{} `json:"value"`
	Label string      `json:"text"`
}

// ListQuery carries the paging and sorting parameters of a panel list.
type ListQuery struct {
	SortBy string `form:"sort_by"`
	Order  string `form:"order"`
	Page   string `form:"page"`
}

// ListResult is one page of a panel list.
type ListResult struct {
	Table       string                   `json:"table"`
	Columns     []string                 `json:"columns"`
	Rows        []map[string]interface{} `json:"rows"`
	SortBy      string                   `json:"sort_by"`
	Order       string                   `json:"order"`
	Page        int                      `json:"page"`
	NumPages    int                      `json:"num_pages"`
	Total       int64                    `json:"total"`
	PageRange   []int                    `json:"page_range"`
	HasPrevious bool                     `json:"has_previous"`
	HasNext     bool                     `json:"has_next"`
	ReadOnly    bool                     `json:"read_only"`
}

// Page is the REST list envelope.
type Page struct {
	Count    int64                    `json:"count"`
	Next     *string                  `json:"next"`
	Previous *string                  `json:"previous"`
	Results  []map[string]interface{} `json:"results"`
}

// FlightFigures pairs the revenue and occupancy of one flight.
type FlightFigures struct {
	FlightID  int64           `json:"flight_id"`
	Revenue   decimal.Decimal `json:"revenue"`
	Occupancy decimal.Decimal `json:"occupancy"`
}

type StatusCount struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

type MonthRevenue struct {
	Month   time.Time       `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Statistics backs the manager dashboard and its CSV export.
type Statistics struct {
	GeneratedAt    time.Time      `json:"generated_at"`
	TicketStatuses []StatusCount  `json:"ticket_statuses"`
	MonthlyRevenue []MonthRevenue `json:"monthly_revenue"`
}

// AuditEntry is the read model of one audit_log row.
type AuditEntry struct {
	ID        int64                  `json:"id"`
	Table     string                 `json:"table_name"`
	RecordID  *int64                 `json:"record_id"`
	RecordKey string                 `json:"record_key"`
	Operation string                 `json:"operation"`
	ChangedBy *int64                 `json:"changed_by"`
	ChangedAt time.Time              `json:"changed_at"`
	OldData   map[string]interface{} `json:"old_data"`
	NewData   map[string]interface{} `json:"new_data"`
	Changes   []FieldChange          `json:"changes,omitempty"`
}

// FieldChange is one differing field between two snapshots.
type FieldChange struct {
	Name string      `json:"name"`
	Old  interface{} `json:"old"`
	New  interface{} `json:"new"`
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}
