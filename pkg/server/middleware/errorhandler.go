package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/milan604/hr-console/pkg/response"
)

// ErrorHandlerMiddleware turns the last c.Error into the response envelope.
// Handlers that already wrote a body are left alone.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		if last == nil || last.Err == nil {
			return
		}
		GetLogger(c).WarnFCtx(c.Request.Context(), "request error: %v", last.Err)
		response.HandleError(c, last.Err)
		c.Abort()
	}
}
