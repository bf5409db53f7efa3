package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/ticketbooth-backend/internal/notifications"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/security"
	"gorm.io/gorm"
)

const invalidVerificationMessage = "invalid or expired verification token"

// Signup persists an unverified customer and only then mails the verification
// link. A delivery failure keeps the account and is reported through
// NotificationSent so the client can offer a resend.
func (s *service) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		userName = users.LocalPart(email)
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	token, err := security.GenerateToken(security.DefaultTokenBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
	}
	expiresAt := s.now().UTC().Add(s.tokenCfg.VerificationTTL)

	var created *models.User
	_, err = s.tx.RunOptionalTx(ctx, func(tx *gorm.DB) error {
		repo := s.usersFor(tx)
		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := repo.Create(ctx, users.CreateUserDTO{
			Email:              email,
			UserName:           userName,
			PasswordHash:       passwordHash,
			Role:               enums.UserRoleCustomer,
			VerifyKey:          &token,
			VerifyKeyExpiresAt: &expiresAt,
		})
		if err != nil {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &SignupResult{User: users.FromModel(created)}
	recipient := notifications.Recipient{Email: created.Email, UserName: created.UserName}
	if err := s.notifier.SendVerification(ctx, recipient, token); err != nil {
		s.warn(ctx, "verification email not sent after signup", err)
		return result, nil
	}
	result.NotificationSent = true
	return result, nil
}

// VerifyEmail requires the address, a matching unexpired token and an
// unverified account. Every mismatch returns the same validation error.
func (s *service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*SessionResponse, error) {
	email := users.NormalizeEmail(req.Email)
	token := strings.TrimSpace(req.Token)
	if email == "" || token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and token are required")
	}

	repo := s.usersFor(nil)
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, invalidVerificationMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if user.IsVerified || user.VerifyKey == nil || user.VerifyKeyExpiresAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, invalidVerificationMessage)
	}
	if !security.TokensEqual(*user.VerifyKey, token) || !s.now().UTC().Before(*user.VerifyKeyExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, invalidVerificationMessage)
	}

	user.IsVerified = true
	user.VerifyKey = nil
	user.VerifyKeyExpiresAt = nil
	if err := repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark user verified")
	}

	return s.issueSession(ctx, user)
}

// ResendVerification rotates the verification token of an unverified account.
// Unknown addresses get the same reply as known ones.
func (s *service) ResendVerification(ctx context.Context, req EmailRequest) (string, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	repo := s.usersFor(nil)
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resendMessage, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if user.IsVerified {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email already verified")
	}

	token, err := security.GenerateToken(security.DefaultTokenBytes)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
	}
	expiresAt := s.now().UTC().Add(s.tokenCfg.VerificationTTL)
	user.VerifyKey = &token
	user.VerifyKeyExpiresAt = &expiresAt
	if err := repo.Save(ctx, user); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification token")
	}

	recipient := notifications.Recipient{Email: user.Email, UserName: user.UserName}
	if err := s.notifier.SendVerification(ctx, recipient, token); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification email")
	}
	return resendMessage, nil
}
