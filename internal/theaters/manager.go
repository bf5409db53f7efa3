package theaters

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// managerInput describes the manager a theater should point at.
type managerInput struct {
	Email    string
	UserName string
	Password string
}

// stores bundles the repositories bound to one unit of work.
type stores struct {
	users    *users.Repository
	theaters *Repository
	hash     func(password string) (string, error)
}

// createManager provisions a verified theater-manager. The email must be free.
// The password is only hashed once a new account is certain.
func (st stores) createManager(ctx context.Context, in managerInput) (*models.User, error) {
	email := users.NormalizeEmail(in.Email)
	if _, err := st.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "manager email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check manager email")
	}
	if in.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "managerPassword is required to create a manager")
	}
	hash, err := st.hash(in.Password)
	if err != nil {
		return nil, err
	}

	userName := strings.TrimSpace(in.UserName)
	if userName == "" {
		userName = users.LocalPart(email)
	}
	manager, err := st.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		UserName:     userName,
		PasswordHash: hash,
		Role:         enums.UserRoleTheaterManager,
		IsVerified:   true,
	})
	if err != nil {
		return nil, wrapInternal(err, "create manager")
	}
	return manager, nil
}

// resolveManager reuses an existing theater-manager account or provisions a
// new one, then checks it does not already run another theater.
func (st stores) resolveManager(ctx context.Context, in managerInput, exclude *uuid.UUID) (*models.User, error) {
	email := users.NormalizeEmail(in.Email)
	existing, err := st.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != enums.UserRoleTheaterManager {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user with this email is not a theater manager")
		}
		if err := st.ensureManagerFree(ctx, existing.ID, exclude); err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup manager")
	}

	manager, err := st.createManager(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := st.ensureManagerFree(ctx, manager.ID, exclude); err != nil {
		return nil, err
	}
	return manager, nil
}

func (st stores) ensureManagerFree(ctx context.Context, managerID uuid.UUID, exclude *uuid.UUID) error {
	assigned, err := st.theaters.ManagerAssigned(ctx, managerID, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check manager assignment")
	}
	if assigned {
		return pkgerrors.New(pkgerrors.CodeConflict, "manager already assigned to another theater")
	}
	return nil
}

func (st stores) ensureNameFree(ctx context.Context, name string, systemID *uuid.UUID, exclude *uuid.UUID) error {
	taken, err := st.theaters.NameTaken(ctx, name, systemID, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check theater name")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "theater name already exists in this theater system")
	}
	return nil
}
