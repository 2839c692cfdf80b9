package middleware

import (
	"context"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/milan604/hr-console/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

type RequestIDConfig struct {
	HeaderName string
	// AllowIncoming reuses a well-formed id sent by the caller.
	AllowIncoming bool
}

func defaultRequestIDConfig() RequestIDConfig {
	return RequestIDConfig{
		HeaderName:    HeaderRequestID,
		AllowIncoming: true,
	}
}

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// RequestIDMiddleware puts a request id in the gin context, the request
// context (for ...FCtx logging) and the response header.
func RequestIDMiddleware(opts ...RequestIDConfig) gin.HandlerFunc {
	cfg := defaultRequestIDConfig()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	return func(c *gin.Context) {
		var reqID string
		if cfg.AllowIncoming {
			if in := c.GetHeader(cfg.HeaderName); requestIDPattern.MatchString(in) {
				reqID = in
			}
		}
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(string(logger.RequestIDKey), reqID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, reqID))
		c.Writer.Header().Set(cfg.HeaderName, reqID)
		c.Next()
	}
}
