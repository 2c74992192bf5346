package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLog writes one structured line per request. Bodies and query
// strings are left out since they can carry passwords, codes or tokens.
func RequestLog(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		if id, ok := CurrentIdentity(c); ok {
			attrs = append(attrs, "roll", id.Roll, "role", id.Role)
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			logger.Error("request", attrs...)
		case status == 401 || status == 403:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}
