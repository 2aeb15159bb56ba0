package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sukryu/gqpanel/pkg/errors"
)

// ErrorMiddleware renders the last error attached to the context. Only
// StatusError text reaches the client; anything else becomes a bare 500.
func ErrorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var e *errors.StatusError
		if !stderrors.As(err, &e) {
			logger.Error("unhandled request error",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    http.StatusInternalServerError,
					"message": "Internal server error",
				},
			})
			return
		}

		if e.Code >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(e))
		} else {
			logger.Debug("request rejected", zap.String("path", c.Request.URL.Path), zap.Error(e))
		}

		body := gin.H{
			"code":    e.Code,
			"message": e.Message,
		}
		if e.Reason != "" {
			body["reason"] = e.Reason
		}
		if len(e.Details) > 0 {
			body["details"] = e.Details
		}
		if e.RetryAfter > 0 {
			body["retryAfter"] = e.RetryAfter
		}
		c.JSON(e.Code, gin.H{"error": body})
	}
}
