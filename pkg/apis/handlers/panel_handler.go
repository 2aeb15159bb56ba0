package handlers

import (
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/controllers"
	"github.com/sukryu/gqpanel/pkg/errors"
)

const maxFormMemory = 8 << 20

// reserved form keys that are not column values.
var reservedFormKeys = map[string]bool{
	"table_name":          true,
	"action":              true,
	"record_id":           true,
	"csrfmiddlewaretoken": true,
}

// PanelHandler serves the admin and manager panels over the airline catalog.
// Which tables a caller sees follows from its role.
type PanelHandler struct {
	crud   controllers.CRUDController
	logger *zap.Logger
}

func NewPanelHandler(crud controllers.CRUDController, logger *zap.Logger) *PanelHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PanelHandler{crud: crud, logger: logger}
}

// PanelPath is the landing page of the caller's panel.
func PanelPath(p *v1alpha1.Principal) string {
	return "/panel/" + strings.ToLower(p.Role)
}

func panelRedirect(p *v1alpha1.Principal, table string) string {
	if table == "" {
		return PanelPath(p)
	}
	return PanelPath(p) + "?table=" + url.QueryEscape(table)
}

// Home lists the caller's tables, consumes the pending flash and, with
// ?table=, includes the first list page of that table.
func (h *PanelHandler) Home(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	body := gin.H{
		"role":   p.Role,
		"tables": h.crud.Tables(p),
	}
	if f := takeFlash(c); f != nil {
		body["flash"] = f
	}
	if table := c.Query("table"); table != "" {
		list, err := h.crud.List(c.Request.Context(), p, table, v1alpha1.ListQuery{
			SortBy: c.Query("sort_by"),
			Order:  c.Query("order"),
			Page:   c.Query("page"),
		})
		if err != nil {
			c.Error(err)
			return
		}
		body["list"] = list
	}
	c.JSON(http.StatusOK, body)
}

// Crud applies one create, update or delete submitted as a form or as JSON.
func (h *PanelHandler) Crud(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	req, err := h.bindMutation(c)
	if err != nil {
		status, flash := errorFlash(h.logger, err, "")
		respondFlash(c, PanelPath(p), status, flash)
		return
	}

	redirect := panelRedirect(p, req.Table)
	res, err := h.crud.Dispatch(c.Request.Context(), p, req)
	if err != nil {
		status, flash := errorFlash(h.logger, err, string(req.Action))
		respondFlash(c, redirect, status, flash)
		return
	}
	respondFlash(c, redirect, http.StatusOK, Flash{Level: FlashSuccess, Messages: []string{res.Message}})
}

type jsonMutation struct {
	Table    string                 `json:"table_name"`
	Action   v1alpha1.Action        `json:"action"`
	RecordID interface{}            `json:"record_id"`
	Values   map[string]interface{} `json:"values"`
}

func (h *PanelHandler) bindMutation(c *gin.Context) (*v1alpha1.MutationRequest, error) {
	if c.ContentType() == gin.MIMEJSON {
		var body jsonMutation
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, errors.ErrInvalidRequest.WithReason("malformed JSON body")
		}
		return &v1alpha1.MutationRequest{
			Table:    strings.TrimSpace(body.Table),
			Action:   body.Action,
			RecordID: formValue(body.RecordID),
			Values:   formValues(body.Values),
		}, nil
	}

	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !stderrors.Is(err, http.ErrNotMultipart) {
		return nil, errors.ErrInvalidRequest.WithReason("malformed form")
	}
	req := &v1alpha1.MutationRequest{
		Table:    strings.TrimSpace(c.Request.PostForm.Get("table_name")),
		Action:   v1alpha1.Action(c.Request.PostForm.Get("action")),
		RecordID: c.Request.PostForm.Get("record_id"),
		Values:   make(map[string]string, len(c.Request.PostForm)),
	}
	for key, vals := range c.Request.PostForm {
		if reservedFormKeys[key] || len(vals) == 0 {
			continue
		}
		req.Values[key] = vals[0]
	}
	return req, nil
}

func (h *PanelHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var q v1alpha1.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(errors.ErrInvalidRequest.WithReason(err.Error()))
		return
	}
	res, err := h.crud.List(c.Request.Context(), p, c.Query("table"), q)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Record returns one row for the edit form.
func (h *PanelHandler) Record(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	row, err := h.crud.GetRecord(c.Request.Context(), p, c.Query("table"), c.Query("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": row})
}

// Options returns the select list for a foreign-key field.
func (h *PanelHandler) Options(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	options, err := h.crud.Options(c.Request.Context(), p, c.Query("table"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "options": options})
}
