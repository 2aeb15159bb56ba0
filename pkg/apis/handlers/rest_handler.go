package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sukryu/gqpanel/pkg/controllers"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

const DefaultRESTPageSize = 20

// RESTHandler exposes one catalog as /{entity} and /{entity}/{id}. A path
// segment names an entity by its table (without tablePrefix) or by its kind.
type RESTHandler struct {
	crud        controllers.CRUDController
	registry    *schema.Registry
	tablePrefix string
}

func NewRESTHandler(crud controllers.CRUDController, registry *schema.Registry, tablePrefix string) *RESTHandler {
	return &RESTHandler{crud: crud, registry: registry, tablePrefix: tablePrefix}
}

func (h *RESTHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/:entity", h.List)
	rg.POST("/:entity", h.Create)
	rg.GET("/:entity/:id", h.Get)
	rg.PUT("/:entity/:id", h.Update)
	rg.PATCH("/:entity/:id", h.Update)
	rg.DELETE("/:entity/:id", h.Delete)
}

func (h *RESTHandler) kind(c *gin.Context) (string, bool) {
	segment := strings.ToLower(c.Param("entity"))
	if e, ok := h.registry.ByTable(h.tablePrefix + segment); ok {
		return string(e.Kind), true
	}
	for _, k := range h.registry.Kinds() {
		if strings.ToLower(string(k)) == segment {
			return string(k), true
		}
	}
	c.Error(errors.ErrNotFound.WithReason("unknown resource " + c.Param("entity")))
	return "", false
}

func (h *RESTHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.Error(errors.ErrNotFound.WithReason("invalid page"))
			return
		}
		page = n
	}
	pageSize := DefaultRESTPageSize
	if raw := c.Query("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			pageSize = n
		}
	}
	if pageSize > controllers.MaxRESTPageSize {
		pageSize = controllers.MaxRESTPageSize
	}

	res, err := h.crud.ListPage(c.Request.Context(), p, kind, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	if int64(page*pageSize) < res.Count {
		next := pageURL(c, page+1)
		res.Next = &next
	}
	if page > 1 {
		prev := pageURL(c, page-1)
		res.Previous = &prev
	}
	c.JSON(http.StatusOK, res)
}

// pageURL rewrites the request URL to point at page. The first page drops the
// parameter.
func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	q := c.Request.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

func (h *RESTHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	row, err := h.crud.GetRecord(c.Request.Context(), p, kind, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *RESTHandler) bindValues(c *gin.Context) (map[string]string, bool) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errors.ErrInvalidRequest.WithReason("request body must be a JSON object"))
		return nil, false
	}
	return formValues(body), true
}

func (h *RESTHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	values, ok := h.bindValues(c)
	if !ok {
		return
	}
	res, err := h.crud.Create(c.Request.Context(), p, kind, values)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, res.Record)
}

// Update serves PUT and PATCH alike; fields left out keep their values.
func (h *RESTHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	values, ok := h.bindValues(c)
	if !ok {
		return
	}
	res, err := h.crud.Update(c.Request.Context(), p, kind, c.Param("id"), values)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res.Record)
}

func (h *RESTHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	if _, err := h.crud.Delete(c.Request.Context(), p, kind, c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
