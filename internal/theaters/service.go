package theaters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/ticketbooth-backend/internal/theatersystems"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pagination"
	"github.com/angelmondragon/ticketbooth-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines theater provisioning and lookups.
type Service interface {
	CreateTheaterAndManager(ctx context.Context, req CreateTheaterAndManagerRequest) (*ProvisionResult, error)
	CreateTheater(ctx context.Context, req CreateTheaterRequest) (*ProvisionResult, error)
	UpdateTheater(ctx context.Context, id string, req UpdateTheaterRequest) (*TheaterDTO, error)
	DeleteTheater(ctx context.Context, id string) error
	List(ctx context.Context, params pagination.Params) (pagination.Page[TheaterDTO], error)
	GetByID(ctx context.Context, id string) (*TheaterDTO, error)
	GetByManagerID(ctx context.Context, managerID string) (*TheaterDTO, error)
}

// ServiceParams bundles the dependencies of the theater service.
type ServiceParams struct {
	DB             *gorm.DB
	Tx             db.TxRunner
	PasswordConfig config.PasswordConfig
}

type service struct {
	db          *gorm.DB
	tx          db.TxRunner
	passwordCfg config.PasswordConfig
}

// NewService builds the theater service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{db: params.DB, tx: params.Tx, passwordCfg: params.PasswordConfig}, nil
}

// StoreFor adapts the repository to the theater system workflows.
func StoreFor(conn *gorm.DB) theatersystems.TheaterStore {
	return NewRepository(conn)
}

func (s *service) bind(tx *gorm.DB) (stores, *theatersystems.Repository) {
	conn := s.db
	if tx != nil {
		conn = tx
	}
	st := stores{users: users.NewRepository(conn), theaters: NewRepository(conn), hash: s.hashPassword}
	return st, theatersystems.NewRepository(conn)
}

func (s *service) hashPassword(password string) (string, error) {
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

func (s *service) CreateTheaterAndManager(ctx context.Context, req CreateTheaterAndManagerRequest) (*ProvisionResult, error) {
	name := strings.TrimSpace(req.TheaterName)
	location := strings.TrimSpace(req.Location)
	email := users.NormalizeEmail(req.ManagerEmail)
	userName := strings.TrimSpace(req.ManagerUserName)
	if name == "" || location == "" || email == "" || userName == "" || req.ManagerPassword == "" || strings.TrimSpace(req.TheaterSystemID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "theaterName, location, theaterSystemId, managerEmail, managerUserName and managerPassword are required")
	}
	systemID, err := uuid.Parse(strings.TrimSpace(req.TheaterSystemID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid theater system id")
	}

	var result *ProvisionResult
	_, err = s.tx.RunOptionalTx(ctx, func(tx *gorm.DB) error {
		st, systems := s.bind(tx)
		system, err := theatersystems.Resolve(ctx, systems, theatersystems.Reference{ID: systemID.String()})
		if err != nil {
			return err
		}
		if err := st.ensureNameFree(ctx, name, &system.ID, nil); err != nil {
			return err
		}
		manager, err := st.createManager(ctx, managerInput{Email: email, UserName: userName, Password: req.ManagerPassword})
		if err != nil {
			return err
		}
		if err := st.ensureManagerFree(ctx, manager.ID, nil); err != nil {
			return err
		}

		theater := &models.Theater{
			TheaterName:     name,
			Location:        location,
			TheaterSystemID: &system.ID,
			ManagerID:       &manager.ID,
		}
		if err := st.theaters.Create(ctx, theater); err != nil {
			return wrapInternal(err, "create theater")
		}
		result = &ProvisionResult{Theater: FromModel(theater), Manager: users.FromModel(manager)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) CreateTheater(ctx context.Context, req CreateTheaterRequest) (*ProvisionResult, error) {
	name := strings.TrimSpace(req.TheaterName)
	location := strings.TrimSpace(req.Location)
	if name == "" || location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "theaterName and location are required")
	}

	var result *ProvisionResult
	_, err := s.tx.RunOptionalTx(ctx, func(tx *gorm.DB) error {
		st, systems := s.bind(tx)
		system, err := theatersystems.Resolve(ctx, systems, theatersystems.Reference{ID: req.TheaterSystemID, Code: req.TheaterSystemCode})
		if err != nil {
			return err
		}
		var systemID *uuid.UUID
		if system != nil {
			systemID = &system.ID
		}
		if err := st.ensureNameFree(ctx, name, systemID, nil); err != nil {
			return err
		}

		theater := &models.Theater{TheaterName: name, Location: location, TheaterSystemID: systemID}
		var manager *models.User
		if users.NormalizeEmail(req.ManagerEmail) != "" {
			manager, err = st.resolveManager(ctx, managerInput{
				Email:    req.ManagerEmail,
				UserName: req.ManagerUserName,
				Password: req.ManagerPassword,
			}, nil)
			if err != nil {
				return err
			}
			theater.ManagerID = &manager.ID
		}

		if err := st.theaters.Create(ctx, theater); err != nil {
			return wrapInternal(err, "create theater")
		}
		result = &ProvisionResult{Theater: FromModel(theater), Manager: users.FromModel(manager)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateTheater applies every change to a working copy and saves it once.
// System and manager fields are only considered when their keys were sent.
func (s *service) UpdateTheater(ctx context.Context, id string, req UpdateTheaterRequest) (*TheaterDTO, error) {
	theaterID, err := parseID(id, "theater id")
	if err != nil {
		return nil, err
	}
	if req.TheaterName.Valid && req.TheaterName.Blank() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "theaterName cannot be empty")
	}
	if req.Location.Valid && req.Location.Blank() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location cannot be empty")
	}

	var updated *models.Theater
	_, err = s.tx.RunOptionalTx(ctx, func(tx *gorm.DB) error {
		st, systems := s.bind(tx)
		current, err := st.theaters.FindActiveByID(ctx, theaterID)
		if err != nil {
			return theaterLookupError(err)
		}
		next := *current

		systemSent := req.TheaterSystemCode.Valid || req.TheaterSystemID.Valid
		if systemSent {
			system, err := theatersystems.Resolve(ctx, systems, theatersystems.Reference{
				ID:   req.TheaterSystemID.Trimmed(),
				Code: req.TheaterSystemCode.Trimmed(),
			})
			if err != nil {
				return err
			}
			next.TheaterSystemID = nil
			if system != nil {
				next.TheaterSystemID = &system.ID
			}
		}
		if req.TheaterName.Valid {
			next.TheaterName = req.TheaterName.Trimmed()
		}
		if req.Location.Valid {
			next.Location = req.Location.Trimmed()
		}
		if req.TheaterName.Valid || systemSent {
			if err := st.ensureNameFree(ctx, next.TheaterName, next.TheaterSystemID, &current.ID); err != nil {
				return err
			}
		}

		if req.ManagerEmail.Valid {
			if req.ManagerEmail.Blank() {
				next.ManagerID = nil
			} else {
				manager, err := st.resolveManager(ctx, managerInput{
					Email:    req.ManagerEmail.Trimmed(),
					UserName: req.ManagerUserName.Trimmed(),
					Password: req.ManagerPassword.Raw(),
				}, &current.ID)
				if err != nil {
					return err
				}
				next.ManagerID = &manager.ID
			}
		}

		if err := st.theaters.Save(ctx, &next); err != nil {
			return wrapInternal(err, "update theater")
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// DeleteTheater soft-deletes with a single write, outside any transaction.
func (s *service) DeleteTheater(ctx context.Context, id string) error {
	theaterID, err := parseID(id, "theater id")
	if err != nil {
		return err
	}
	n, err := NewRepository(s.db).SoftDelete(ctx, theaterID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete theater")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "theater not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (pagination.Page[TheaterDTO], error) {
	rows, err := NewRepository(s.db).List(ctx, params)
	if err != nil {
		return pagination.Page[TheaterDTO]{}, wrapInternal(err, "list theaters")
	}
	page := pagination.BuildPage(rows, params.Limit, func(t models.Theater) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return pagination.MapPage(page, func(t models.Theater) TheaterDTO { return *FromModel(&t) }), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*TheaterDTO, error) {
	theaterID, err := parseID(id, "theater id")
	if err != nil {
		return nil, err
	}
	theater, err := NewRepository(s.db).FindActiveByID(ctx, theaterID)
	if err != nil {
		return nil, theaterLookupError(err)
	}
	return FromModel(theater), nil
}

func (s *service) GetByManagerID(ctx context.Context, managerID string) (*TheaterDTO, error) {
	id, err := parseID(managerID, "manager id")
	if err != nil {
		return nil, err
	}
	theater, err := NewRepository(s.db).FindActiveByManagerID(ctx, id)
	if err != nil {
		return nil, theaterLookupError(err)
	}
	return FromModel(theater), nil
}

func theaterLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "theater not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup theater")
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field)
	}
	return id, nil
}

func wrapInternal(err error, msg string) error {
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
