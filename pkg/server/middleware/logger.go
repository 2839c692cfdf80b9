package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/milan604/hr-console/pkg/logger"
)

const loggerKey = "hrconsole_logger"

// AppLoggerMiddleware stores a request-scoped logger in the gin context.
func AppLoggerMiddleware(l logger.LogManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(loggerKey, l.With("log_type", "application", "route", c.FullPath()))
		c.Next()
	}
}

// GetLogger returns the request-scoped logger, or a no-op logger when the
// middleware is not installed.
func GetLogger(c *gin.Context) logger.LogManager {
	if val, ok := c.Get(loggerKey); ok {
		if lm, yes := val.(logger.LogManager); yes {
			return lm
		}
	}
	return logger.NewNop()
}

// AccessLoggerMiddleware logs each request after completion. Session id
// and subject are included once the auth layer has bound them.
func AccessLoggerMiddleware(l logger.LogManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []interface{}{
			"log_type", "access",
			"ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"size", c.Writer.Size(),
		}
		ctx := c.Request.Context()
		if rid, ok := ctx.Value(logger.RequestIDKey).(string); ok {
			fields = append(fields, "request_id", rid)
		}
		if sid, ok := ctx.Value(logger.SessionIDKey).(string); ok {
			fields = append(fields, "session_id", sid)
		}
		if sub, ok := ctx.Value(logger.SubjectKey).(string); ok {
			fields = append(fields, "subject", sub)
		}

		entry := l.With(fields...)
		switch {
		case status >= 500:
			entry.ErrorF("%s %s", c.Request.Method, c.Request.URL.Path)
		case status >= 400:
			entry.WarnF("%s %s", c.Request.Method, c.Request.URL.Path)
		default:
			entry.InfoF("%s %s", c.Request.Method, c.Request.URL.Path)
		}
	}
}
