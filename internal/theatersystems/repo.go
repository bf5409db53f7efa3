package theatersystems

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

// Repository handles theater system persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to theater system operations.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Create persists a new system row.
func (r *Repository) Create(ctx context.Context, system *models.TheaterSystem) error {
	return translateUnique(r.DB(ctx).Create(system).Error)
}

// Save writes every column of the system.
func (r *Repository) Save(ctx context.Context, system *models.TheaterSystem) error {
	return translateUnique(r.DB(ctx).Save(system).Error)
}

// Delete removes the row outright and reports how many rows went away.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.TheaterSystem{})
	return res.RowsAffected, res.Error
}

// FindByID loads a system by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TheaterSystem, error) {
	var system models.TheaterSystem
	if err := r.DB(ctx).Where("id = ?", id).First(&system).Error; err != nil {
		return nil, err
	}
	return &system, nil
}

// FindByCode matches the code case-insensitively.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.TheaterSystem, error) {
	var system models.TheaterSystem
	if err := r.DB(ctx).Where("code = ?", NormalizeCode(code)).First(&system).Error; err != nil {
		return nil, err
	}
	return &system, nil
}

// NameTaken reports whether another system already uses name.
func (r *Repository) NameTaken(ctx context.Context, name string, exclude *uuid.UUID) (bool, error) {
	return r.exists(ctx, "name = ?", name, exclude)
}

// CodeTaken reports whether another system already uses code.
func (r *Repository) CodeTaken(ctx context.Context, code string, exclude *uuid.UUID) (bool, error) {
	return r.exists(ctx, "code = ?", NormalizeCode(code), exclude)
}

func (r *Repository) exists(ctx context.Context, cond string, value any, exclude *uuid.UUID) (bool, error) {
	q := r.DB(ctx).Model(&models.TheaterSystem{}).Where(cond, value)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns one page of systems, newest first.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.TheaterSystem, error) {
	q, err := repo.Keyset(r.DB(ctx).Model(&models.TheaterSystem{}), params)
	if err != nil {
		return nil, err
	}

	var rows []models.TheaterSystem
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func translateUnique(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "ux_theater_systems_code"), db.IsUniqueViolation(err, "theater_systems.code"):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "theater system code already exists")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "theater system name already exists")
	default:
		return err
	}
}
