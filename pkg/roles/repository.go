package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/milan604/hr-console/pkg/observability"
)

var ErrAssignmentNotFound = errors.New("roles: assignment not found")

// Repository persists role definitions and subject assignments.
type Repository interface {
	EnsureDefinitions(ctx context.Context, defs []Definition) error
	RolesFor(ctx context.Context, subject string) ([]string, error)
	Assign(ctx context.Context, subject, role, grantedBy string) error
	Revoke(ctx context.Context, subject, role string) error
}

// Role is the roles table row.
type Role struct {
	Name        string `gorm:"primaryKey;size:64"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Role) TableName() string { return "roles" }

// Assignment is the role_assignments table row.
type Assignment struct {
	Subject   string `gorm:"primaryKey;size:255"`
	Role      string `gorm:"primaryKey;size:64"`
	GrantedBy string
	CreatedAt time.Time
}

func (Assignment) TableName() string { return "role_assignments" }

// GormRepository implements Repository on Postgres.
type GormRepository struct {
	db  *gorm.DB
	obs observability.ObservabilityIface
}

func NewGormRepository(db *gorm.DB, obs observability.ObservabilityIface) *GormRepository {
	return &GormRepository{db: db, obs: obs}
}

// EnsureDefinitions upserts every definition, refreshing descriptions.
func (r *GormRepository) EnsureDefinitions(ctx context.Context, defs []Definition) error {
	if len(defs) == 0 {
		return nil
	}
	ctx, span := observability.TraceDBOperation(ctx, r.obs, "roles", "upsert")
	defer span.End()

	rows := make([]Role, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, Role{Name: d.Name, Description: d.Description})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		observability.RecordSpanError(ctx, err)
		return fmt.Errorf("roles: upsert definitions: %w", err)
	}
	return nil
}

func (r *GormRepository) RolesFor(ctx context.Context, subject string) ([]string, error) {
	ctx, span := observability.TraceDBOperation(ctx, r.obs, "role_assignments", "select")
	defer span.End()

	var names []string
	err := r.db.WithContext(ctx).Model(&Assignment{}).
		Where("subject = ?", subject).
		Order("role").
		Pluck("role", &names).Error
	if err != nil {
		observability.RecordSpanError(ctx, err)
		return nil, fmt.Errorf("roles: load assignments for %s: %w", subject, err)
	}
	return names, nil
}

func (r *GormRepository) Assign(ctx context.Context, subject, role, grantedBy string) error {
	ctx, span := observability.TraceDBOperation(ctx, r.obs, "role_assignments", "insert")
	defer span.End()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Assignment{Subject: subject, Role: role, GrantedBy: grantedBy}).Error
	if err != nil {
		observability.RecordSpanError(ctx, err)
		return fmt.Errorf("roles: assign %s to %s: %w", role, subject, err)
	}
	return nil
}

func (r *GormRepository) Revoke(ctx context.Context, subject, role string) error {
	ctx, span := observability.TraceDBOperation(ctx, r.obs, "role_assignments", "delete")
	defer span.End()

	res := r.db.WithContext(ctx).Where("subject = ? AND role = ?", subject, role).Delete(&Assignment{})
	if res.Error != nil {
		observability.RecordSpanError(ctx, res.Error)
		return fmt.Errorf("roles: revoke %s from %s: %w", role, subject, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}
