// Package directory serves the HR administration surface: the employee
// directory and role administration, each guarded by a permission code.
package directory

import (
	"time"

	"github.com/google/uuid"
)

// Employee statuses.
const (
	StatusActive     = "active"
	StatusOnLeave    = "on_leave"
	StatusTerminated = "terminated"
)

// Employee is the employees table row.
type Employee struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FullName   string     `json:"full_name"`
	Email      string     `gorm:"uniqueIndex" json:"email"`
	Department string     `json:"department"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	HiredAt    *time.Time `gorm:"type:date" json:"hired_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Employee) TableName() string { return "employees" }

// EmployeeInput is the create and update body.
type EmployeeInput struct {
	FullName   string     `json:"full_name" binding:"required,max=255"`
	Email      string     `json:"email" binding:"required,email,max=255"`
	Department string     `json:"department" binding:"max=128"`
	Title      string     `json:"title" binding:"max=128"`
	Status     string     `json:"status" binding:"omitempty,oneof=active on_leave terminated"`
	HiredAt    *time.Time `json:"hired_at"`
}

func (in EmployeeInput) apply(e *Employee) {
	e.FullName = in.FullName
	e.Email = in.Email
	e.Department = in.Department
	e.Title = in.Title
	e.Status = in.Status
	if e.Status == "" {
		e.Status = StatusActive
	}
	e.HiredAt = in.HiredAt
}

// ListQuery selects a page of employees.
type ListQuery struct {
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset     int    `form:"offset" binding:"omitempty,min=0"`
	Sort       string `form:"sort" binding:"omitempty,oneof=full_name email department title hired_at created_at"`
	Order      string `form:"order" binding:"omitempty,oneof=asc desc"`
	Department string `form:"department" binding:"max=128"`
}

const defaultLimit = 50

// normalize fills defaults. Sort columns outside the whitelist fall back to
// full_name so the value can be used in ORDER BY.
func (q ListQuery) normalize() ListQuery {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if _, ok := sortColumns[q.Sort]; !ok {
		q.Sort = "full_name"
	}
	if q.Order != "desc" {
		q.Order = "asc"
	}
	return q
}

var sortColumns = map[string]struct{}{
	"full_name":  {},
	"email":      {},
	"department": {},
	"title":      {},
	"hired_at":   {},
	"created_at": {},
}
