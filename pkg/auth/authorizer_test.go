package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milan604/hr-console/pkg/permissions"
	"github.com/milan604/hr-console/pkg/rbac"
	"github.com/milan604/hr-console/pkg/session"
)

type stubVerifier struct {
	claims Claims
	err    error
}

func (s stubVerifier) Verify(context.Context, string) (Claims, error) { return s.claims, s.err }

type fixture struct {
	engine  *gin.Engine
	store   *session.MemoryStore
	manager *session.Manager
	authz   *Authorizer
}

func newFixture(t *testing.T, verifier Verifier, resolver session.RoleResolver, opts ...Option) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewMemoryStore()
	manager := session.NewManager(store, resolver, session.WithTTL(time.Hour))
	perms := permissions.NewStore(nil)
	perms.Replace(map[string]permissions.Metadata{
		"hr-employees-read":   {RequiredRoles: []string{"hr", "admin"}},
		"hr-employees-delete": {RequiredRoles: []string{"admin"}},
	})
	authz := NewAuthorizer(verifier, manager, perms, opts...)

	r := gin.New()
	r.POST("/sessions", authz.Login())
	r.DELETE("/sessions", authz.Logout())
	api := r.Group("/api", authz.RequireSession())
	api.GET("/me", authz.Me())
	api.GET("/admin", authz.RequireRoles("admin"), func(c *gin.Context) { c.String(http.StatusOK, GetSubject(c)) })
	api.GET("/employees", authz.RequirePermission("hr-employees-read"), func(c *gin.Context) { c.Status(http.StatusOK) })
	api.GET("/payroll", authz.RequirePermission("hr-payroll-approve"), func(c *gin.Context) { c.Status(http.StatusOK) })
	api.GET("/rules", authz.RequireRoles("admin"), authz.AccessRules())
	api.GET("/blank", authz.RequireRoles("", " "), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/standalone", authz.RequireRoles("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	return &fixture{engine: r, store: store, manager: manager, authz: authz}
}

func (f *fixture) do(t *testing.T, method, path, sessionID string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "hr_session", Value: sessionID})
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *fixture) session(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	s, err := f.manager.Create(context.Background(), subject, roles)
	require.NoError(t, err)
	return s.ID
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestLoginCreatesAuthenticatedSession(t *testing.T) {
	resolver := session.RoleResolverFunc(func(context.Context, string) ([]string, error) {
		return []string{"hr-manager"}, nil
	})
	f := newFixture(t, stubVerifier{claims: Claims{Subject: "alice", Roles: []string{"employee"}}}, resolver)

	w := f.do(t, http.MethodPost, "/sessions", "", http.Header{"Authorization": {"Bearer token"}})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data sessionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.Data.Subject)
	assert.Equal(t, rbac.StatusAuthenticated, body.Data.Status)
	assert.Equal(t, []string{"employee", "hr-manager"}, body.Data.Roles)
	assert.Equal(t, body.Data.SessionID, w.Header().Get(HeaderSessionID))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "hr_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	me := f.do(t, http.MethodGet, "/api/me", cookies[0].Value, nil)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"subject":"alice"`)
}

func TestLoginRejectsBadTokens(t *testing.T) {
	f := newFixture(t, stubVerifier{err: ErrInvalidToken}, nil)

	w := f.do(t, http.MethodPost, "/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/sessions", "", http.Header{"Authorization": {"Bearer forged"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorCode(t, w))
}

func TestPendingSessionIsRejected(t *testing.T) {
	resolver := session.RoleResolverFunc(func(context.Context, string) ([]string, error) {
		return nil, errors.New("directory unavailable")
	})
	f := newFixture(t, stubVerifier{claims: Claims{Subject: "carol", Roles: []string{"admin"}}}, resolver)

	w := f.do(t, http.MethodPost, "/sessions", "", http.Header{"Authorization": {"Bearer token"}})
	require.Equal(t, http.StatusAccepted, w.Code)
	id := w.Header().Get(HeaderSessionID)
	require.NotEmpty(t, id)

	w = f.do(t, http.MethodGet, "/api/admin", "", http.Header{HeaderSessionID: {id}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "session_pending", errorCode(t, w))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.authz.decisions.WithLabelValues("session", resultPending)))
}

func TestRequireRolesUsesSubstringMatch(t *testing.T) {
	f := newFixture(t, stubVerifier{}, nil)

	tests := []struct {
		name   string
		roles  []string
		status int
	}{
		{"exact", []string{"admin"}, http.StatusOK},
		{"super-admin contains admin", []string{"super-admin"}, http.StatusOK},
		{"viewer", []string{"viewer"}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/admin", f.session(t, "dave", tt.roles...), nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, "permission_denied", errorCode(t, w))
			} else {
				assert.Equal(t, "dave", w.Body.String())
			}
		})
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(f.authz.decisions.WithLabelValues("roles", resultAllowed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.authz.decisions.WithLabelValues("roles", resultDenied)))
}

func TestMissingSessionIsUnauthenticated(t *testing.T) {
	f := newFixture(t, stubVerifier{}, nil)

	w := f.do(t, http.MethodGet, "/api/admin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "session_missing", errorCode(t, w))

	w = f.do(t, http.MethodGet, "/api/admin", "does-not-exist", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/standalone", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(t, http.MethodGet, "/standalone", f.session(t, "erin", "admin"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission(t *testing.T) {
	f := newFixture(t, stubVerifier{}, nil)

	w := f.do(t, http.MethodGet, "/api/employees", f.session(t, "frank", "hr-viewer"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/employees", f.session(t, "gina", "employee"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/api/payroll", f.session(t, "henry", "admin"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission_not_registered", errorCode(t, w))
}

func TestRoleChangesApplyBetweenRequests(t *testing.T) {
	f := newFixture(t, stubVerifier{}, nil)
	ctx := context.Background()
	id := f.session(t, "ivy", "employee")

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/admin", id, nil).Code)

	_, err := f.manager.SetRoles(ctx, "ivy", []string{"admin"}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/admin", id, nil).Code)

	_, err = f.manager.SetRoles(ctx, "ivy", nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/admin", id, nil).Code)
}

func TestLogout(t *testing.T) {
	f := newFixture(t, stubVerifier{}, nil)
	id := f.session(t, "jack", "admin")

	w := f.do(t, http.MethodDelete, "/sessions", id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/admin", id, nil).Code)
}

func TestExpiredSessionIsUnauthenticated(t *testing.T) {
	f := newFixture(t, stubVerifier{}, nil)
	require.NoError(t, f.store.Save(context.Background(), &session.Session{
		ID: "old", Subject: "kate", Roles: []string{"admin"}, Status: rbac.StatusAuthenticated,
		ExpiresAt: time.Now().Add(50 * time.Millisecond),
	}))
	time.Sleep(100 * time.Millisecond)
	w := f.do(t, http.MethodGet, "/api/admin", "old", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsServiceTokens(t *testing.T) {
	f := newFixture(t, stubVerifier{claims: Claims{Subject: "batch", Roles: []string{"admin"}, TokenUse: "service"}}, nil)

	w := f.do(t, http.MethodPost, "/sessions", "", http.Header{"Authorization": {"Bearer token"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorCode(t, w))
	ids, err := f.store.IDsForSubject(context.Background(), "batch")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoginDropsUnknownTokenRoles(t *testing.T) {
	known := func(r string) bool { return r == "employee" || r == "admin" }
	claims := Claims{Subject: "lola", Roles: []string{"employee", "realm-admin", "manage-users"}}
	f := newFixture(t, stubVerifier{claims: claims}, nil, WithKnownRoles(known))

	w := f.do(t, http.MethodPost, "/sessions", "", http.Header{"Authorization": {"Bearer token"}})
	require.Equal(t, http.StatusCreated, w.Code)
	id := w.Header().Get(HeaderSessionID)

	var body struct {
		Data sessionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"employee"}, body.Data.Roles)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/admin", id, nil).Code)
}

func TestRequireRolesIgnoresBlankRoles(t *testing.T) {
	f := newFixture(t, stubVerifier{}, nil)
	w := f.do(t, http.MethodGet, "/api/blank", f.session(t, "mona", "employee"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAccessRules(t *testing.T) {
	f := newFixture(t, stubVerifier{}, nil)

	w := f.do(t, http.MethodGet, "/api/rules", f.session(t, "nina", "hr-viewer"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/api/rules", f.session(t, "otto", "admin"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []accessRule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "hr-employees-delete", body.Data[0].Code)
	assert.Equal(t, []string{"hr", "admin"}, body.Data[1].RequiredRoles)
}
