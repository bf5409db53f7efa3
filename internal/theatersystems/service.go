package theatersystems

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TheaterStore is the slice of theater persistence the system workflows touch.
type TheaterStore interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Theater, error)
	NameTaken(ctx context.Context, name string, systemID *uuid.UUID, exclude *uuid.UUID) (bool, error)
	AssignSystem(ctx context.Context, id, systemID uuid.UUID) error
	SoftDeleteBySystem(ctx context.Context, systemID uuid.UUID) (int64, error)
}

// TheaterStoreFactory binds a TheaterStore to a transaction or the base connection.
type TheaterStoreFactory func(conn *gorm.DB) TheaterStore

// Service defines theater system management.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*SystemDTO, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*SystemDTO, error)
	Delete(ctx context.Context, id string) (*DeleteResult, error)
	Get(ctx context.Context, idOrCode string) (*SystemDTO, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[SystemDTO], error)
	AddTheater(ctx context.Context, req AddTheaterRequest) (*AddTheaterResult, error)
}

// DeleteResult reports the removed system and how many theaters were cascaded.
type DeleteResult struct {
	ID              uuid.UUID `json:"id"`
	TheatersDeleted int64     `json:"theatersDeleted"`
}

// AddTheaterResult echoes the new assignment.
type AddTheaterResult struct {
	TheaterID       uuid.UUID `json:"theaterId"`
	TheaterSystemID uuid.UUID `json:"theaterSystemId"`
}

// ServiceParams bundles the dependencies of the theater system service.
type ServiceParams struct {
	DB       *gorm.DB
	Tx       db.TxRunner
	Theaters TheaterStoreFactory
	Policy   config.PolicyConfig
}

type service struct {
	db       *gorm.DB
	tx       db.TxRunner
	theaters TheaterStoreFactory
	policy   config.PolicyConfig
}

// NewService builds the theater system service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Theaters == nil {
		return nil, fmt.Errorf("theater store factory is required")
	}
	return &service{db: params.DB, tx: params.Tx, theaters: params.Theaters, policy: params.Policy}, nil
}

func (s *service) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return s.db
	}
	return tx
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*SystemDTO, error) {
	system := req.toModel()
	if system.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if system.Code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}

	_, err := s.tx.RunOptionalTx(ctx, func(tx *gorm.DB) error {
		systems := NewRepository(s.conn(tx))
		if err := ensureUnique(ctx, systems, system.Name, system.Code, nil); err != nil {
			return err
		}
		system.ID = uuid.Nil
		return wrapInternal(systems.Create(ctx, system), "create theater system")
	})
	if err != nil {
		return nil, err
	}
	return FromModel(system), nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*SystemDTO, error) {
	systemID, err := parseID(id, "theater system id")
	if err != nil {
		return nil, err
	}

	var updated *models.TheaterSystem
	_, err = s.tx.RunOptionalTx(ctx, func(tx *gorm.DB) error {
		systems := NewRepository(s.conn(tx))
		system, err := systems.FindByID(ctx, systemID)
		if err != nil {
			return lookupError(err)
		}

		next := *system
		if req.Name != nil {
			next.Name = strings.TrimSpace(*req.Name)
			if next.Name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
		}
		if req.Code != nil {
			next.Code = NormalizeCode(*req.Code)
			if next.Code == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "code cannot be empty")
			}
		}
		if req.Logo != nil {
			next.Logo = strings.TrimSpace(*req.Logo)
			if next.Logo == "" {
				next.Logo = DefaultLogo
			}
		}
		if req.Description != nil {
			next.Description = strings.TrimSpace(*req.Description)
			if next.Description == "" {
				next.Description = DefaultDescription
			}
		}

		if err := ensureUnique(ctx, systems, next.Name, next.Code, &system.ID); err != nil {
			return err
		}
		if err := systems.Save(ctx, &next); err != nil {
			return wrapInternal(err, "update theater system")
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Delete removes the system row. Its theaters keep their dangling reference
// unless the cascade policy is on, in which case they are soft-deleted too.
func (s *service) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	systemID, err := parseID(id, "theater system id")
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{ID: systemID}
	_, err = s.tx.RunOptionalTx(ctx, func(tx *gorm.DB) error {
		result.TheatersDeleted = 0
		conn := s.conn(tx)
		removed, err := NewRepository(conn).Delete(ctx, systemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete theater system")
		}
		if removed == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "theater system not found")
		}
		if !s.policy.CascadeSystemDelete {
			return nil
		}
		n, err := s.theaters(conn).SoftDeleteBySystem(ctx, systemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete theaters of system")
		}
		result.TheatersDeleted = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get accepts either the system id or its code.
func (s *service) Get(ctx context.Context, idOrCode string) (*SystemDTO, error) {
	value := strings.TrimSpace(idOrCode)
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "theater system id is required")
	}
	system, err := Resolve(ctx, NewRepository(s.db), Reference{ID: value, Code: value})
	if err != nil {
		return nil, err
	}
	return FromModel(system), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (pagination.Page[SystemDTO], error) {
	rows, err := NewRepository(s.db).List(ctx, params)
	if err != nil {
		return pagination.Page[SystemDTO]{}, wrapInternal(err, "list theater systems")
	}
	page := pagination.BuildPage(rows, params.Limit, func(m models.TheaterSystem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return pagination.MapPage(page, func(m models.TheaterSystem) SystemDTO { return *FromModel(&m) }), nil
}

// AddTheater writes the system reference onto the theater. The name is only
// re-checked against the new scope when the recheck policy is on.
func (s *service) AddTheater(ctx context.Context, req AddTheaterRequest) (*AddTheaterResult, error) {
	theaterID, err := parseID(req.TheaterID, "theater id")
	if err != nil {
		return nil, err
	}
	systemID, err := parseID(req.TheaterSystemID, "theater system id")
	if err != nil {
		return nil, err
	}

	_, err = s.tx.RunOptionalTx(ctx, func(tx *gorm.DB) error {
		conn := s.conn(tx)
		if _, err := NewRepository(conn).FindByID(ctx, systemID); err != nil {
			return lookupError(err)
		}
		theaters := s.theaters(conn)
		theater, err := theaters.FindActiveByID(ctx, theaterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "theater not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup theater")
		}
		if s.policy.RecheckNameOnAssign {
			taken, err := theaters.NameTaken(ctx, theater.TheaterName, &systemID, &theater.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check theater name")
			}
			if taken {
				return pkgerrors.New(pkgerrors.CodeConflict, "theater name already exists in this theater system")
			}
		}
		return wrapInternal(theaters.AssignSystem(ctx, theater.ID, systemID), "assign theater to system")
	})
	if err != nil {
		return nil, err
	}
	return &AddTheaterResult{TheaterID: theaterID, TheaterSystemID: systemID}, nil
}

func ensureUnique(ctx context.Context, systems *Repository, name, code string, exclude *uuid.UUID) error {
	taken, err := systems.NameTaken(ctx, name, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check theater system name")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "theater system name already exists")
	}
	taken, err = systems.CodeTaken(ctx, code, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check theater system code")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "theater system code already exists")
	}
	return nil
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field)
	}
	return id, nil
}

// wrapInternal passes typed errors through and wraps everything else as internal.
func wrapInternal(err error, msg string) error {
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
