package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/milan604/hr-console/pkg/logger"
	"github.com/milan604/hr-console/pkg/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// CtxAuthClaims holds the verified token claims on the login route.
	CtxAuthClaims ContextKey = "auth_claims"
	// CtxSessionReader holds the *session.Reader bound by RequireSession.
	CtxSessionReader ContextKey = "session_reader"
	// CtxSubject holds the signed-in subject.
	CtxSubject ContextKey = "session_subject"
)

// GetClaims retrieves the verified Claims from the request context.
func GetClaims(c *gin.Context) (Claims, bool) {
	val, exists := c.Get(string(CtxAuthClaims))
	if !exists {
		return Claims{}, false
	}
	claims, ok := val.(Claims)
	return claims, ok
}

// GetReader returns the session reader bound to the request, if any.
func GetReader(c *gin.Context) (*session.Reader, bool) {
	val, exists := c.Get(string(CtxSessionReader))
	if !exists {
		return nil, false
	}
	r, ok := val.(*session.Reader)
	return r, ok
}

// GetSubject returns the signed-in subject bound to the request.
func GetSubject(c *gin.Context) string {
	return c.GetString(string(CtxSubject))
}

func bindSession(c *gin.Context, r *session.Reader, subject string) {
	c.Set(string(CtxSessionReader), r)
	c.Set(string(CtxSubject), subject)
	ctx := context.WithValue(c.Request.Context(), logger.SessionIDKey, r.ID())
	ctx = context.WithValue(ctx, logger.SubjectKey, subject)
	c.Request = c.Request.WithContext(ctx)
}
