package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/milan604/hr-console/pkg/apperr"
	"github.com/milan604/hr-console/pkg/logger"
	"github.com/milan604/hr-console/pkg/response"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope and logs the
// stack.
func RecoveryMiddleware(l logger.LogManager) gin.HandlerFunc {
	if l == nil {
		l = logger.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				l.With("log_type", "panic", "path", c.Request.URL.Path).
					ErrorFCtx(c.Request.Context(), "panic recovered: %v\n%s", r, debug.Stack())
				response.Abort(c, apperr.New(apperr.ErrorCodeInternal))
			}
		}()
		c.Next()
	}
}
