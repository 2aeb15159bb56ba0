package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/audit"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// AuditReader is the read side of the audit recorder.
type AuditReader interface {
	List(ctx context.Context, f audit.ListFilter) ([]v1alpha1.AuditEntry, int64, error)
	ForRecord(ctx context.Context, table, recordKey string) ([]v1alpha1.AuditEntry, error)
}

type AuditHandler struct {
	reader   AuditReader
	registry *schema.Registry
}

func NewAuditHandler(reader AuditReader, registry *schema.Registry) *AuditHandler {
	return &AuditHandler{reader: reader, registry: registry}
}

// table accepts either a kind ("Flight") or a physical table ("flights").
func (h *AuditHandler) table(name string) string {
	if e, ok := h.registry.Lookup(name); ok {
		return e.Table
	}
	return name
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.Error(errors.ErrInvalidInput.WithReason(key + " must be a non-negative number"))
		return 0, false
	}
	return n, true
}

func (h *AuditHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	f := audit.ListFilter{
		Table:     h.table(c.Query("table")),
		RecordKey: c.Query("record_key"),
		Operation: audit.Operation(c.Query("operation")),
		Limit:     limit,
		Offset:    offset,
	}

	entries, total, err := h.reader.List(c.Request.Context(), f)
	if err != nil {
		c.Error(errors.ErrStorageOperation.WithReason(errors.FriendlyMessage(err, "load")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": total, "results": entries})
}

// History returns every change of one record, oldest first, each with the
// fields it changed.
func (h *AuditHandler) History(c *gin.Context) {
	entries, err := h.reader.ForRecord(c.Request.Context(), h.table(c.Param("table")), c.Param("key"))
	if err != nil {
		c.Error(errors.ErrStorageOperation.WithReason(errors.FriendlyMessage(err, "load")))
		return
	}
	if len(entries) == 0 {
		c.Error(errors.ErrNotFound.WithReason("no history for this record"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "results": entries})
}
