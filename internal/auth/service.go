package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/ticketbooth-backend/internal/notifications"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	pkgAuth "github.com/angelmondragon/ticketbooth-backend/pkg/auth"
	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
	"github.com/angelmondragon/ticketbooth-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	forgotPasswordMessage     = "if an account exists for that email, a reset link has been sent"
	resendMessage             = "if an unverified account exists for that email, a verification link has been sent"
	dummyPassword             = "ticketbooth-dummy-password"
	backgroundTimeout         = 30 * time.Second
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResult, error)
	Signin(ctx context.Context, req SigninRequest) (*SessionResponse, error)
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*SessionResponse, error)
	ResendVerification(ctx context.Context, req EmailRequest) (string, error)
	ForgotPassword(ctx context.Context, req EmailRequest) (string, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Signout(ctx context.Context, accessID string) error
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type sessionRegistry interface {
	Register(ctx context.Context, accessID string, userID uuid.UUID) error
	Revoke(ctx context.Context, accessID string) error
}

type service struct {
	db          *gorm.DB
	tx          db.TxRunner
	sessions    sessionRegistry
	notifier    notifications.Notifier
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	tokenCfg    config.TokenConfig
	logg        *logger.Logger
	dummyHash   string
	now         func() time.Time
	pending     sync.WaitGroup
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             *gorm.DB
	Tx             db.TxRunner
	Sessions       sessionRegistry
	Notifier       notifications.Notifier
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	TokenConfig    config.TokenConfig
	Logger         *logger.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	dummyHash, err := security.HashPassword(dummyPassword, params.PasswordConfig)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:          params.DB,
		tx:          params.Tx,
		sessions:    params.Sessions,
		notifier:    params.Notifier,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		tokenCfg:    params.TokenConfig,
		logg:        params.Logger,
		dummyHash:   dummyHash,
		now:         now,
	}, nil
}

// usersFor binds a repository to the active transaction, or the base connection when there is none.
func (s *service) usersFor(tx *gorm.DB) *users.Repository {
	if tx == nil {
		return users.NewRepository(s.db)
	}
	return users.NewRepository(tx)
}

// Signin always runs one password comparison so unknown, unverified and
// wrong-password attempts cost the same and return the same error.
func (s *service) Signin(ctx context.Context, req SigninRequest) (*SessionResponse, error) {
	email := users.NormalizeEmail(req.Email)

	var user *models.User
	if email != "" {
		found, err := s.usersFor(nil).FindByEmail(ctx, email)
		switch {
		case err == nil:
			user = found
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
		}
	}

	hash := s.dummyHash
	if user != nil && user.IsVerified {
		hash = user.PasswordHash
	}
	valid, err := security.VerifyPassword(req.Password, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if user == nil || !user.IsVerified || !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		s.upgradeHash(ctx, user, req.Password)
	}

	return s.issueSession(ctx, user)
}

// upgradeHash re-hashes a password stored under an older cost. The signin
// goes ahead even when the upgrade fails.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		s.warn(ctx, "rehash password", err)
		return
	}
	user.PasswordHash = hash
	if err := s.usersFor(nil).Save(ctx, user); err != nil {
		s.warn(ctx, "store upgraded password hash", err)
	}
}

func (s *service) Signout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	accounts, err := users.NewService(s.usersFor(nil))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return accounts.GetByID(ctx, userID)
}

// issueSession mints a token, registers its jti and stamps the login time.
func (s *service) issueSession(ctx context.Context, user *models.User) (*SessionResponse, error) {
	now := s.now().UTC()
	token, claims, err := pkgAuth.MintSessionToken(s.jwtCfg, now, pkgAuth.SessionPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if err := s.sessions.Register(ctx, claims.ID, user.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register session")
	}
	if err := s.usersFor(nil).UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	return &SessionResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      users.FromModel(user),
	}, nil
}

// background runs fn detached from the request, bounded by backgroundTimeout.
func (s *service) background(ctx context.Context, fn func(context.Context)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
		defer cancel()
		fn(bgCtx)
	}()
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
