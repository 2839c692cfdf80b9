package auth

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/milan604/hr-console/pkg/apperr"
	"github.com/milan604/hr-console/pkg/logger"
	"github.com/milan604/hr-console/pkg/observability"
	"github.com/milan604/hr-console/pkg/permissions"
	"github.com/milan604/hr-console/pkg/rbac"
	"github.com/milan604/hr-console/pkg/response"
	"github.com/milan604/hr-console/pkg/session"
)

// HeaderSessionID carries the session id for clients that do not keep cookies.
const HeaderSessionID = "X-Session-ID"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Authorizer verifies identity-provider tokens, opens sessions and guards
// routes with RBAC checks evaluated against the live session.
type Authorizer struct {
	verifier  Verifier
	sessions  *session.Manager
	perms     *permissions.Store
	log       logger.LogManager
	cookie    CookieConfig
	known     func(role string) bool
	decisions *prometheus.CounterVec
}

type Option func(*Authorizer)

func WithLogger(l logger.LogManager) Option {
	return func(a *Authorizer) {
		if l != nil {
			a.log = l
		}
	}
}

func WithCookie(c CookieConfig) Option {
	return func(a *Authorizer) {
		if c.Name != "" {
			a.cookie = c
		}
	}
}

// WithKnownRoles keeps only token roles for which known returns true when a
// session is opened.
func WithKnownRoles(known func(role string) bool) Option {
	return func(a *Authorizer) { a.known = known }
}

// NewAuthorizer wires a verifier, the session manager and the permission store.
func NewAuthorizer(verifier Verifier, sessions *session.Manager, perms *permissions.Store, opts ...Option) *Authorizer {
	a := &Authorizer{
		verifier:  verifier,
		sessions:  sessions,
		perms:     perms,
		log:       logger.NewNop(),
		cookie:    CookieConfig{Name: "hr_session", Path: "/", SameSite: http.SameSiteLaxMode},
		decisions: newDecisionCounter(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Collector exposes the decision counter for registration on /metrics.
func (a *Authorizer) Collector() prometheus.Collector { return a.decisions }

type sessionView struct {
	SessionID string      `json:"session_id"`
	Subject   string      `json:"subject"`
	Status    rbac.Status `json:"status"`
	Roles     []string    `json:"roles"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func viewOf(s *session.Session) sessionView {
	return sessionView{SessionID: s.ID, Subject: s.Subject, Status: s.Status, Roles: s.Roles, ExpiresAt: s.ExpiresAt}
}

// Login verifies the bearer token and opens a session. A session whose
// directory roles could not be resolved is returned as pending with 202.
func (a *Authorizer) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.JSONError(c, apperr.New(apperr.ErrorCodeUnauthorized).Wrap(err))
			return
		}
		claims, err := a.verifier.Verify(ctx, token)
		if err != nil {
			a.log.WarnFCtx(ctx, "login rejected: %v", err)
			response.JSONError(c, apperr.Newf(apperr.ErrorCodeUnauthorized, "invalid token").Wrap(err))
			return
		}
		if claims.IsServiceToken() {
			a.log.WarnFCtx(ctx, "login rejected: service token for %s", claims.Subject)
			response.JSONError(c, apperr.Newf(apperr.ErrorCodeForbidden, "service tokens cannot open a session"))
			return
		}
		c.Set(string(CtxAuthClaims), claims)

		s, err := a.sessions.Create(ctx, claims.Subject, a.tokenRoles(claims))
		if s == nil {
			response.HandleError(c, err)
			return
		}
		a.setCookie(c, s)
		observability.AddSpanAttributes(ctx,
			observability.AttrSessionID.String(s.ID),
			observability.AttrSubject.String(s.Subject),
			observability.AttrSessionStatus.String(string(s.Status)),
		)
		if err != nil {
			a.log.WarnFCtx(ctx, "session %s for %s left pending: %v", s.ID, s.Subject, err)
			response.JSONSuccess(c, http.StatusAccepted, viewOf(s), nil)
			return
		}
		response.Created(c, viewOf(s))
	}
}

// Logout destroys the caller's session and clears the cookie.
func (a *Authorizer) Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := a.sessionID(c); id != "" {
			if err := a.sessions.Destroy(c.Request.Context(), id); err != nil {
				response.HandleError(c, err)
				return
			}
		}
		c.SetSameSite(a.cookie.SameSite)
		c.SetCookie(a.cookie.Name, "", -1, a.cookie.Path, a.cookie.Domain, a.cookie.Secure, true)
		c.Status(http.StatusNoContent)
	}
}

// RequireSession binds the caller's session to the request. Missing or
// expired sessions get 401; pending sessions get 401 with session_pending.
func (a *Authorizer) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := a.resolve(c, "session"); !ok {
			return
		}
		c.Next()
	}
}

// RequireRoles allows callers holding any role that contains one of roles.
// Blank roles are dropped since they would match every caller.
func (a *Authorizer) RequireRoles(roles ...rbac.Role) gin.HandlerFunc {
	required := make([]string, 0, len(roles))
	for _, r := range rbac.Strings(roles...) {
		if strings.TrimSpace(r) == "" {
			a.log.Warn("ignoring blank required role")
			continue
		}
		required = append(required, r)
	}
	return func(c *gin.Context) {
		a.guard(c, "roles", required)
	}
}

// RequirePermission gates a route on the roles registered for code. Codes
// missing from the permission store deny every caller.
func (a *Authorizer) RequirePermission(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			meta permissions.Metadata
			ok   bool
		)
		if a.perms != nil {
			meta, ok = a.perms.Lookup(code)
		}
		if !ok {
			a.record(c, code, resultUnregistered, nil)
			response.Abort(c, apperr.New(apperr.ErrorCodeUnknownAction))
			return
		}
		a.guard(c, code, meta.RequiredRoles)
	}
}

// Me returns the caller's session.
func (a *Authorizer) Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := GetReader(c)
		if !ok {
			if r, ok = a.resolve(c, "session"); !ok {
				return
			}
		}
		s, err := r.Session(c.Request.Context())
		if err != nil {
			response.JSONError(c, apperr.New(apperr.ErrorCodeSessionMissing))
			return
		}
		response.Success(c, viewOf(s))
	}
}

type accessRule struct {
	Code          string   `json:"code"`
	Name          string   `json:"name,omitempty"`
	RequiredRoles []string `json:"required_roles"`
}

// AccessRules lists the registered permission codes and their required roles.
func (a *Authorizer) AccessRules() gin.HandlerFunc {
	return func(c *gin.Context) {
		rules := make([]accessRule, 0)
		if a.perms != nil {
			for code, meta := range a.perms.Snapshot() {
				rules = append(rules, accessRule{Code: code, Name: meta.Name, RequiredRoles: meta.RequiredRoles})
			}
		}
		sort.Slice(rules, func(i, j int) bool { return rules[i].Code < rules[j].Code })
		response.Success(c, rules)
	}
}

func (a *Authorizer) tokenRoles(claims Claims) []string {
	if a.known == nil {
		return claims.Roles
	}
	out := make([]string, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		if a.known(r) {
			out = append(out, r)
		} else {
			a.log.DebugF("dropping unknown token role %q for %s", r, claims.Subject)
		}
	}
	return out
}

func (a *Authorizer) guard(c *gin.Context, guard string, required []string) {
	r, ok := GetReader(c)
	if !ok {
		if r, ok = a.resolve(c, guard); !ok {
			return
		}
	}
	check := rbac.NewCheck(r, required...)
	if !check.Allowed(c.Request.Context()) {
		a.record(c, guard, resultDenied, check.Required())
		a.log.InfoFCtx(c.Request.Context(), "access denied by %s guard on %s", guard, c.FullPath())
		response.Abort(c, apperr.New(apperr.ErrorCodePermissionDenied))
		return
	}
	a.record(c, guard, resultAllowed, check.Required())
	c.Next()
}

// resolve loads the caller's session and aborts unless it is authenticated.
func (a *Authorizer) resolve(c *gin.Context, guard string) (*session.Reader, bool) {
	ctx := c.Request.Context()
	r := session.NewReader(a.sessions.Store(), a.sessionID(c))

	switch r.AuthenticationStatus(ctx) {
	case rbac.StatusAuthenticated:
	case rbac.StatusPending:
		a.record(c, guard, resultPending, nil)
		response.Abort(c, apperr.New(apperr.ErrorCodeSessionPending))
		return nil, false
	default:
		a.record(c, guard, resultUnauthenticated, nil)
		response.Abort(c, apperr.New(apperr.ErrorCodeSessionMissing))
		return nil, false
	}

	s, err := r.Session(ctx)
	if err != nil {
		a.record(c, guard, resultUnauthenticated, nil)
		response.Abort(c, apperr.New(apperr.ErrorCodeSessionMissing))
		return nil, false
	}
	bindSession(c, r, s.Subject)
	observability.AddSpanAttributes(c.Request.Context(),
		observability.AttrSessionID.String(s.ID),
		observability.AttrSubject.String(s.Subject),
	)
	return r, true
}

func (a *Authorizer) sessionID(c *gin.Context) string {
	if id := c.GetHeader(HeaderSessionID); id != "" {
		return id
	}
	id, _ := c.Cookie(a.cookie.Name)
	return id
}

func (a *Authorizer) setCookie(c *gin.Context, s *session.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	c.SetSameSite(a.cookie.SameSite)
	c.SetCookie(a.cookie.Name, s.ID, maxAge, a.cookie.Path, a.cookie.Domain, a.cookie.Secure, true)
	c.Header(HeaderSessionID, s.ID)
}

func (a *Authorizer) record(c *gin.Context, guard, result string, required []string) {
	a.decisions.WithLabelValues(guard, result).Inc()
	observability.AddSpanAttributes(c.Request.Context(),
		observability.AttrGuard.String(guard),
		observability.AttrDecision.Bool(result == resultAllowed),
		observability.AttrRequiredRoles.StringSlice(required),
	)
}
