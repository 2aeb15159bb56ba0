package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/middleware"
)

const (
	FlashCookie = "flash"
	flashMaxAge = 60

	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is the one-shot message set carried across a redirect.
type Flash struct {
	Level    string   `json:"level"`
	Messages []string `json:"messages"`
}

// wantsJSON reports whether the caller asked for a JSON reply instead of a
// redirect.
func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		c.ContentType() == gin.MIMEJSON
}

// respondFlash answers a form submission: JSON clients get
// {ok, messages, redirect}, browsers a 303 to redirect with a flash cookie.
func respondFlash(c *gin.Context, redirect string, status int, flash Flash) {
	if wantsJSON(c) {
		c.JSON(status, gin.H{
			"ok":       flash.Level == FlashSuccess,
			"messages": flash.Messages,
			"redirect": redirect,
		})
		return
	}
	if data, err := json.Marshal(flash); err == nil {
		c.SetCookie(FlashCookie, string(data), flashMaxAge, "/", "", false, true)
	}
	c.Redirect(http.StatusSeeOther, redirect)
}

// takeFlash returns and clears the pending flash, if any.
func takeFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(FlashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(FlashCookie, "", -1, "/", "", false, true)

	var f Flash
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil
	}
	return &f
}

// errorFlash turns an engine error into user-facing messages and a status.
// Validation errors keep their itemized details.
func errorFlash(logger *zap.Logger, err error, action string) (int, Flash) {
	var se *errors.StatusError
	if !stderrors.As(err, &se) {
		logger.Error("unexpected handler error", zap.String("action", action), zap.Error(err))
		return http.StatusInternalServerError, Flash{Level: FlashError, Messages: []string{errors.FriendlyMessage(err, action)}}
	}
	if se.Is(errors.ErrValidation) && len(se.Details) > 0 {
		return se.Code, Flash{Level: FlashError, Messages: se.Details}
	}
	msg := errors.FriendlyMessage(err, action)
	if se.Code < http.StatusInternalServerError && se.Reason != "" && !se.Is(errors.ErrConflict) && !se.Is(errors.ErrStorageOperation) {
		msg = se.Message + ": " + se.Reason
	}
	return se.Code, Flash{Level: FlashError, Messages: []string{msg}}
}

func principal(c *gin.Context) (*v1alpha1.Principal, bool) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		c.Error(errors.ErrUnauthenticated)
		return nil, false
	}
	return p, true
}

// formValue renders a decoded JSON value the way a form would submit it.
// null becomes blank; objects and arrays stay JSON.
func formValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	case float64:
		return cast.ToString(t)
	}
	return cast.ToString(v)
}

func formValues(body map[string]interface{}) map[string]string {
	out := make(map[string]string, len(body))
	for k, v := range body {
		out[k] = formValue(v)
	}
	return out
}
