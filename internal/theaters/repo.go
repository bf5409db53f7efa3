package theaters

import (
	"context"

	"github.com/angelmondragon/ticketbooth-backend/internal/repo"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles theater persistence. Every read is scoped to theaters
// that are not soft-deleted.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to theater operations.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

func (r *Repository) active(ctx context.Context) *gorm.DB {
	return r.Active(ctx, &models.Theater{})
}

// Create persists a new theater row.
func (r *Repository) Create(ctx context.Context, theater *models.Theater) error {
	return translateUnique(r.DB(ctx).Create(theater).Error)
}

// Save writes every column of the theater.
func (r *Repository) Save(ctx context.Context, theater *models.Theater) error {
	return translateUnique(r.DB(ctx).Save(theater).Error)
}

// FindActiveByID loads a non-deleted theater.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Theater, error) {
	var theater models.Theater
	if err := r.active(ctx).Where("id = ?", id).First(&theater).Error; err != nil {
		return nil, err
	}
	return &theater, nil
}

// FindActiveByManagerID loads the theater a manager runs.
func (r *Repository) FindActiveByManagerID(ctx context.Context, managerID uuid.UUID) (*models.Theater, error) {
	var theater models.Theater
	if err := r.active(ctx).Where("manager_id = ?", managerID).First(&theater).Error; err != nil {
		return nil, err
	}
	return &theater, nil
}

// NameTaken reports whether a non-deleted theater in the system scope already
// uses name. A nil systemID is the unaffiliated scope.
func (r *Repository) NameTaken(ctx context.Context, name string, systemID *uuid.UUID, exclude *uuid.UUID) (bool, error) {
	q := r.active(ctx).Where("theater_name = ?", name)
	if systemID == nil {
		q = q.Where("theater_system_id IS NULL")
	} else {
		q = q.Where("theater_system_id = ?", *systemID)
	}
	return count(q, exclude)
}

// ManagerAssigned reports whether the manager already runs a non-deleted theater.
func (r *Repository) ManagerAssigned(ctx context.Context, managerID uuid.UUID, exclude *uuid.UUID) (bool, error) {
	return count(r.active(ctx).Where("manager_id = ?", managerID), exclude)
}

// AssignSystem points the theater at a system without touching other columns.
func (r *Repository) AssignSystem(ctx context.Context, id, systemID uuid.UUID) error {
	return translateUnique(r.DB(ctx).Model(&models.Theater{}).
		Where("id = ?", id).
		Update("theater_system_id", systemID).Error)
}

// SoftDelete flags the theater as deleted and reports the affected row count.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.active(ctx).Where("id = ?", id).Update("is_deleted", true)
	return res.RowsAffected, res.Error
}

// SoftDeleteBySystem flags every theater of a system as deleted.
func (r *Repository) SoftDeleteBySystem(ctx context.Context, systemID uuid.UUID) (int64, error) {
	res := r.active(ctx).Where("theater_system_id = ?", systemID).Update("is_deleted", true)
	return res.RowsAffected, res.Error
}

// List returns one page of theaters, newest first.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.Theater, error) {
	q, err := repo.Keyset(r.active(ctx), params)
	if err != nil {
		return nil, err
	}

	var rows []models.Theater
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func count(q *gorm.DB, exclude *uuid.UUID) (bool, error) {
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func translateUnique(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "ux_theaters_manager_active"), db.IsUniqueViolation(err, "theaters.manager_id"):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "manager already assigned to another theater")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "theater name already exists in this theater system")
	default:
		return err
	}
}
