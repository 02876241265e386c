package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"workoutauth/internal/pkg/logging"
	"workoutauth/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger attaches a request scoped logger to the request context and
// writes one line per request. It also recovers from panics.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)

		log := base.With("request_id", id)
		c.Request = c.Request.WithContext(logging.IntoContext(c.Request.Context(), log))

		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("panic while serving request",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"error", fmt.Sprintf("%v", recovered),
					"stack", string(debug.Stack()),
				)
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
			}

			status := c.Writer.Status()
			attrs := []any{
				"method", c.Request.Method,
				"path", c.FullPath(),
				"status", status,
				"client_ip", c.ClientIP(),
				"latency", time.Since(start),
			}
			if userID := c.GetString(CtxUserID); userID != "" {
				attrs = append(attrs, "user_id", userID)
			}
			for _, e := range c.Errors {
				attrs = append(attrs, "error", e.Error())
			}

			switch {
			case status >= http.StatusInternalServerError:
				log.Error("request failed", attrs...)
			case status >= http.StatusBadRequest:
				log.Warn("request rejected", attrs...)
			default:
				log.Info("request served", attrs...)
			}
		}()

		c.Next()
	}
}
