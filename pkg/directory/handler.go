package directory

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/milan604/hr-console/pkg/apperr"
	"github.com/milan604/hr-console/pkg/auth"
	"github.com/milan604/hr-console/pkg/logger"
	"github.com/milan604/hr-console/pkg/response"
	"github.com/milan604/hr-console/pkg/roles"
	"github.com/milan604/hr-console/pkg/validator"
)

// RoleService is the role administration the handler delegates to.
type RoleService interface {
	RolesFor(ctx context.Context, subject string) ([]string, error)
	Assign(ctx context.Context, subject, role, grantedBy string) ([]string, error)
	Revoke(ctx context.Context, subject, role string) ([]string, error)
}

// Handler serves /employees and /admin/roles.
type Handler struct {
	repo  Repository
	roles RoleService
	authz *auth.Authorizer
	vi    *validator.Validator
	log   logger.LogManager
}

func NewHandler(repo Repository, roleSvc RoleService, authz *auth.Authorizer, vi *validator.Validator, log logger.LogManager) *Handler {
	if vi == nil {
		vi = validator.New()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{repo: repo, roles: roleSvc, authz: authz, vi: vi, log: log}
}

// Register mounts the routes on r. Every route requires a session.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("", h.authz.RequireSession())

	emp := g.Group("/employees")
	emp.GET("", h.authz.RequirePermission(PermEmployeesRead), h.list)
	emp.GET("/:id", h.authz.RequirePermission(PermEmployeesRead), h.get)
	emp.POST("", h.authz.RequirePermission(PermEmployeesWrite), h.create)
	emp.PUT("/:id", h.authz.RequirePermission(PermEmployeesWrite), h.update)
	emp.DELETE("/:id", h.authz.RequirePermission(PermEmployeesDelete), h.delete)

	adm := g.Group("/admin/roles", h.authz.RequirePermission(PermRolesManage))
	adm.GET("/:subject", h.listRoles)
	adm.POST("/:subject", h.assignRole)
	adm.DELETE("/:subject/:role", h.revokeRole)
}

type idURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type subjectURI struct {
	Subject string `uri:"subject" binding:"required,max=255"`
}

type roleURI struct {
	Subject string `uri:"subject" binding:"required,max=255"`
	Role    string `uri:"role" binding:"required,rolename"`
}

type assignBody struct {
	Role string `json:"role" binding:"required,rolename"`
}

type subjectRoles struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

func (h *Handler) list(c *gin.Context) {
	q, appErr := validator.BindQuery[ListQuery](h.vi, c)
	if appErr != nil {
		response.JSONError(c, appErr)
		return
	}
	norm := q.normalize()
	items, total, err := h.repo.List(c.Request.Context(), norm)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Page(c, items, total, norm.Limit, norm.Offset)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	e, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, e)
}

func (h *Handler) create(c *gin.Context) {
	in, appErr := validator.BindJSON[EmployeeInput](h.vi, c)
	if appErr != nil {
		response.JSONError(c, appErr)
		return
	}
	e := &Employee{ID: uuid.New()}
	in.apply(e)
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.fail(c, err)
		return
	}
	h.log.InfoFCtx(c.Request.Context(), "employee %s created by %s", e.ID, auth.GetSubject(c))
	response.Created(c, e)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	in, appErr := validator.BindJSON[EmployeeInput](h.vi, c)
	if appErr != nil {
		response.JSONError(c, appErr)
		return
	}
	e := &Employee{ID: id}
	in.apply(e)
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		h.fail(c, err)
		return
	}
	stored, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, stored)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.log.InfoFCtx(c.Request.Context(), "employee %s deleted by %s", id, auth.GetSubject(c))
	response.Success(c, gin.H{"id": id})
}

func (h *Handler) listRoles(c *gin.Context) {
	uri, appErr := validator.BindURI[subjectURI](h.vi, c)
	if appErr != nil {
		response.JSONError(c, appErr)
		return
	}
	current, err := h.roles.RolesFor(c.Request.Context(), uri.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, subjectRoles{Subject: uri.Subject, Roles: nonNil(current)})
}

func (h *Handler) assignRole(c *gin.Context) {
	body, uri, appErr := validator.BindJSONAndURI[assignBody, subjectURI](h.vi, c)
	if appErr != nil {
		response.JSONError(c, appErr)
		return
	}
	current, err := h.roles.Assign(c.Request.Context(), uri.Subject, body.Role, auth.GetSubject(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, subjectRoles{Subject: uri.Subject, Roles: nonNil(current)})
}

func (h *Handler) revokeRole(c *gin.Context) {
	uri, appErr := validator.BindURI[roleURI](h.vi, c)
	if appErr != nil {
		response.JSONError(c, appErr)
		return
	}
	current, err := h.roles.Revoke(c.Request.Context(), uri.Subject, uri.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, subjectRoles{Subject: uri.Subject, Roles: nonNil(current)})
}

func (h *Handler) bindID(c *gin.Context) (uuid.UUID, bool) {
	uri, appErr := validator.BindURI[idURI](h.vi, c)
	if appErr != nil {
		response.JSONError(c, appErr)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(uri.ID)
	if err != nil {
		response.JSONError(c, apperr.New(apperr.ErrorCodeInvalidInput))
		return uuid.Nil, false
	}
	return id, true
}

// fail maps domain errors onto the response envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, roles.ErrAssignmentNotFound):
		response.JSONError(c, apperr.New(apperr.ErrorCodeNotFound))
	case errors.Is(err, ErrDuplicate):
		response.JSONError(c, apperr.New(apperr.ErrorCodeConflict))
	case errors.Is(err, roles.ErrUnknownRole), errors.Is(err, roles.ErrInvalidSubject):
		response.JSONError(c, apperr.Newf(apperr.ErrorCodeInvalidInput, "%v", err))
	default:
		h.log.ErrorFCtx(c.Request.Context(), "request %s failed: %v", c.FullPath(), err)
		response.HandleError(c, err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
