package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/milan604/hr-console/pkg/auth"
	"github.com/milan604/hr-console/pkg/permissions"
	"github.com/milan604/hr-console/pkg/roles"
	"github.com/milan604/hr-console/pkg/session"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) List(ctx context.Context, q ListQuery) ([]Employee, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]Employee)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepo) Get(ctx context.Context, id uuid.UUID) (*Employee, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*Employee)
	return e, args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, e *Employee) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockRepo) Update(ctx context.Context, e *Employee) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type memoryRoles struct {
	catalog  *roles.Catalog
	assigned map[string][]string
}

func (r *memoryRoles) RolesFor(_ context.Context, subject string) ([]string, error) {
	return r.assigned[subject], nil
}

func (r *memoryRoles) Assign(_ context.Context, subject, role, _ string) ([]string, error) {
	if !r.catalog.Contains(role) {
		return nil, roles.ErrUnknownRole
	}
	r.assigned[subject] = append(r.assigned[subject], role)
	return r.assigned[subject], nil
}

func (r *memoryRoles) Revoke(_ context.Context, subject, role string) ([]string, error) {
	out := []string{}
	found := false
	for _, have := range r.assigned[subject] {
		if have == role {
			found = true
			continue
		}
		out = append(out, have)
	}
	if !found {
		return nil, roles.ErrAssignmentNotFound
	}
	r.assigned[subject] = out
	return out, nil
}

type env struct {
	engine  *gin.Engine
	repo    *mockRepo
	roles   *memoryRoles
	manager *session.Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	perms := permissions.NewStore(permissions.LoaderFromCatalog(Permissions()))
	_, err := perms.Load(context.Background())
	require.NoError(t, err)

	manager := session.NewManager(session.NewMemoryStore(), nil, session.WithTTL(time.Hour))
	authz := auth.NewAuthorizer(nil, manager, perms)
	repo := &mockRepo{}
	roleSvc := &memoryRoles{catalog: roles.DefaultCatalog(), assigned: map[string][]string{}}

	r := gin.New()
	NewHandler(repo, roleSvc, authz, nil, nil).Register(r.Group("/api/v1"))
	return &env{engine: r, repo: repo, roles: roleSvc, manager: manager}
}

func (e *env) login(t *testing.T, subject string, roleNames ...string) string {
	t.Helper()
	s, err := e.manager.Create(context.Background(), subject, roleNames)
	require.NoError(t, err)
	return s.ID
}

func (e *env) do(method, path, sessionID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(auth.HeaderSessionID, sessionID)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPermissionCodes(t *testing.T) {
	assert.Equal(t, "hr-employees-read", PermEmployeesRead)
	assert.Equal(t, "hr-employees-write", PermEmployeesWrite)
	assert.Equal(t, "hr-employees-delete", PermEmployeesDelete)
	assert.Equal(t, "hr-roles-manage", PermRolesManage)
	assert.ElementsMatch(t, []string{PermEmployeesRead, PermEmployeesWrite, PermEmployeesDelete, PermRolesManage}, Permissions().Codes())
}

func TestListEmployees(t *testing.T) {
	e := newEnv(t)
	want := ListQuery{Limit: 10, Offset: 0, Sort: "hired_at", Order: "desc", Department: "finance"}
	e.repo.On("List", mock.Anything, want).Return([]Employee{{ID: uuid.New(), FullName: "Ann Lee"}}, int64(11), nil)

	w := e.do(http.MethodGet, "/api/v1/employees?limit=10&sort=hired_at&order=desc&department=finance", e.login(t, "viewer", roles.HRViewer), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.True(t, body.Success)
	assert.Equal(t, float64(11), body.Meta["total"])
	assert.Equal(t, float64(10), body.Meta["limit"])
	e.repo.AssertExpectations(t)
}

func TestListRejectsUnknownSortColumn(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/api/v1/employees?sort=password", e.login(t, "viewer", roles.HRViewer), "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	e.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestEmployeeRoutesAreGuarded(t *testing.T) {
	e := newEnv(t)
	id := uuid.New()
	e.repo.On("Delete", mock.Anything, id).Return(nil)

	tests := []struct {
		name   string
		roles  []string
		method string
		path   string
		body   string
		status int
	}{
		{"no session", nil, http.MethodGet, "/api/v1/employees", "", http.StatusUnauthorized},
		{"employee cannot read", []string{roles.Employee}, http.MethodGet, "/api/v1/employees/" + id.String(), "", http.StatusForbidden},
		{"viewer cannot write", []string{roles.HRViewer}, http.MethodPost, "/api/v1/employees", `{}`, http.StatusForbidden},
		{"manager cannot delete", []string{roles.HRManager}, http.MethodDelete, "/api/v1/employees/" + id.String(), "", http.StatusForbidden},
		{"admin deletes", []string{roles.Admin}, http.MethodDelete, "/api/v1/employees/" + id.String(), "", http.StatusOK},
		{"payroll officer cannot manage roles", []string{roles.PayrollOfficer}, http.MethodGet, "/api/v1/admin/roles/alice", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sid := ""
			if tt.roles != nil {
				sid = e.login(t, "user-"+tt.name, tt.roles...)
			}
			w := e.do(tt.method, tt.path, sid, tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCreateEmployee(t *testing.T) {
	e := newEnv(t)
	e.repo.On("Create", mock.Anything, mock.MatchedBy(func(emp *Employee) bool {
		return emp.FullName == "Ann Lee" && emp.Status == StatusActive && emp.ID != uuid.Nil
	})).Return(nil)

	w := e.do(http.MethodPost, "/api/v1/employees", e.login(t, "mgr", roles.HRManager),
		`{"full_name":"Ann Lee","email":"ann@example.com","department":"finance"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var emp Employee
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &emp))
	assert.Equal(t, "ann@example.com", emp.Email)
	e.repo.AssertExpectations(t)
}

func TestCreateEmployeeValidationAndConflict(t *testing.T) {
	e := newEnv(t)
	sid := e.login(t, "mgr", roles.HRManager)

	w := e.do(http.MethodPost, "/api/v1/employees", sid, `{"full_name":"","email":"bad"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	e.repo.On("Create", mock.Anything, mock.Anything).Return(ErrDuplicate)
	w = e.do(http.MethodPost, "/api/v1/employees", sid, `{"full_name":"Ann","email":"ann@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetAndUpdateEmployee(t *testing.T) {
	e := newEnv(t)
	sid := e.login(t, "mgr", roles.HRManager)
	id := uuid.New()
	missing := uuid.New()

	e.repo.On("Get", mock.Anything, id).Return(&Employee{ID: id, FullName: "Ann"}, nil)
	e.repo.On("Get", mock.Anything, missing).Return(nil, ErrNotFound)
	e.repo.On("Update", mock.Anything, mock.MatchedBy(func(emp *Employee) bool { return emp.ID == id })).Return(nil)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/employees/"+id.String(), sid, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/v1/employees/"+missing.String(), sid, "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, e.do(http.MethodGet, "/api/v1/employees/not-a-uuid", sid, "").Code)

	w := e.do(http.MethodPut, "/api/v1/employees/"+id.String(), sid, `{"full_name":"Ann B","email":"ann@example.com","status":"on_leave"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateEmployeeReturnsStoredRow(t *testing.T) {
	e := newEnv(t)
	sid := e.login(t, "mgr", roles.HRManager)
	id := uuid.New()
	created := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

	e.repo.On("Update", mock.Anything, mock.MatchedBy(func(emp *Employee) bool { return emp.ID == id && emp.FullName == "Ben C" })).Return(nil)
	e.repo.On("Get", mock.Anything, id).Return(&Employee{ID: id, FullName: "Ben C", Email: "ben@example.com", Status: "active", CreatedAt: created, UpdatedAt: created.Add(time.Hour)}, nil)

	w := e.do(http.MethodPut, "/api/v1/employees/"+id.String(), sid, `{"full_name":"Ben C","email":"ben@example.com","status":"active"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data Employee `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.CreatedAt.Equal(created))
	assert.False(t, body.Data.UpdatedAt.IsZero())
	e.repo.AssertExpectations(t)
}

func TestRoleAdministration(t *testing.T) {
	e := newEnv(t)
	sid := e.login(t, "root", roles.Admin)

	w := e.do(http.MethodPost, "/api/v1/admin/roles/alice", sid, `{"role":"hr-manager"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"roles":["hr-manager"]`)

	w = e.do(http.MethodGet, "/api/v1/admin/roles/alice", sid, "")
	assert.Contains(t, w.Body.String(), `"hr-manager"`)

	w = e.do(http.MethodPost, "/api/v1/admin/roles/alice", sid, `{"role":"overlord"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(http.MethodDelete, "/api/v1/admin/roles/alice/hr-manager", sid, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"roles":[]`)

	w = e.do(http.MethodDelete, "/api/v1/admin/roles/alice/hr-manager", sid, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/api/v1/admin/roles/bob", sid, "")
	assert.Contains(t, w.Body.String(), `"roles":[]`)
}

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{Limit: 0, Offset: -3, Sort: "id; drop table", Order: "sideways"}.normalize()
	assert.Equal(t, ListQuery{Limit: defaultLimit, Offset: 0, Sort: "full_name", Order: "asc"}, q)
}
