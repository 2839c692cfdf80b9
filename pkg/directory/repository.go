package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/milan604/hr-console/pkg/observability"
)

var (
	ErrNotFound  = errors.New("directory: employee not found")
	ErrDuplicate = errors.New("directory: email already in use")
)

// Repository stores employees.
type Repository interface {
	List(ctx context.Context, q ListQuery) ([]Employee, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*Employee, error)
	Create(ctx context.Context, e *Employee) error
	Update(ctx context.Context, e *Employee) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GormRepository implements Repository on Postgres.
type GormRepository struct {
	db  *gorm.DB
	obs observability.ObservabilityIface
}

func NewGormRepository(db *gorm.DB, obs observability.ObservabilityIface) *GormRepository {
	return &GormRepository{db: db, obs: obs}
}

func (r *GormRepository) List(ctx context.Context, q ListQuery) ([]Employee, int64, error) {
	ctx, span := observability.TraceDBOperation(ctx, r.obs, "employees", "select")
	defer span.End()

	q = q.normalize()
	tx := r.db.WithContext(ctx).Model(&Employee{})
	if q.Department != "" {
		tx = tx.Where("department = ?", q.Department)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		observability.RecordSpanError(ctx, err)
		return nil, 0, fmt.Errorf("directory: count employees: %w", err)
	}

	var out []Employee
	err := tx.Order(q.Sort + " " + q.Order).Order("id").
		Limit(q.Limit).Offset(q.Offset).
		Find(&out).Error
	if err != nil {
		observability.RecordSpanError(ctx, err)
		return nil, 0, fmt.Errorf("directory: list employees: %w", err)
	}
	return out, total, nil
}

func (r *GormRepository) Get(ctx context.Context, id uuid.UUID) (*Employee, error) {
	ctx, span := observability.TraceDBOperation(ctx, r.obs, "employees", "select")
	defer span.End()

	var e Employee
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		observability.RecordSpanError(ctx, err)
		return nil, fmt.Errorf("directory: get employee %s: %w", id, err)
	}
	return &e, nil
}

func (r *GormRepository) Create(ctx context.Context, e *Employee) error {
	ctx, span := observability.TraceDBOperation(ctx, r.obs, "employees", "insert")
	defer span.End()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return r.writeError(ctx, err)
	}
	return nil
}

func (r *GormRepository) Update(ctx context.Context, e *Employee) error {
	ctx, span := observability.TraceDBOperation(ctx, r.obs, "employees", "update")
	defer span.End()

	res := r.db.WithContext(ctx).Model(&Employee{ID: e.ID}).Select(
		"full_name", "email", "department", "title", "status", "hired_at",
	).Updates(e)
	if res.Error != nil {
		return r.writeError(ctx, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := observability.TraceDBOperation(ctx, r.obs, "employees", "delete")
	defer span.End()

	res := r.db.WithContext(ctx).Delete(&Employee{}, "id = ?", id)
	if res.Error != nil {
		observability.RecordSpanError(ctx, res.Error)
		return fmt.Errorf("directory: delete employee %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) writeError(ctx context.Context, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	observability.RecordSpanError(ctx, err)
	return fmt.Errorf("directory: write employee: %w", err)
}
