package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByRole(ctx context.Context, role enums.UserRole, params pagination.Params) ([]models.User, error)
}

// Service exposes read operations over accounts for admin tooling.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	ListManagers(ctx context.Context, params pagination.Params) (pagination.Page[UserDTO], error)
}

type service struct {
	repo usersRepository
}

// NewService builds a users service.
func NewService(repo usersRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}

// ListManagers pages through every active theater-manager account.
func (s *service) ListManagers(ctx context.Context, params pagination.Params) (pagination.Page[UserDTO], error) {
	rows, err := s.repo.ListByRole(ctx, enums.UserRoleTheaterManager, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return pagination.Page[UserDTO]{}, err
		}
		return pagination.Page[UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list managers")
	}
	page := pagination.BuildPage(rows, params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	return pagination.MapPage(page, func(u models.User) UserDTO { return *FromModel(&u) }), nil
}
