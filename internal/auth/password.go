package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/ticketbooth-backend/internal/notifications"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/security"
	"gorm.io/gorm"
)

const invalidResetMessage = "invalid or expired reset token"

// ForgotPassword answers with the same message whether or not the address is
// registered. Token issue and delivery run off the request path, so a known
// address costs the caller the same as an unknown one.
func (s *service) ForgotPassword(ctx context.Context, req EmailRequest) (string, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.usersFor(nil).FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.warn(ctx, "forgot password lookup failed", err)
		}
		return forgotPasswordMessage, nil
	}

	s.background(ctx, func(ctx context.Context) {
		s.issueResetToken(ctx, user)
	})
	return forgotPasswordMessage, nil
}

// issueResetToken stores a fresh reset token and mails it. Failures are logged
// only; the caller already has its answer.
func (s *service) issueResetToken(ctx context.Context, user *models.User) {
	token, err := security.GenerateToken(security.DefaultTokenBytes)
	if err != nil {
		s.warn(ctx, "generate reset token", err)
		return
	}
	expiresAt := s.now().UTC().Add(s.tokenCfg.PasswordResetTTL)
	user.ResetToken = &token
	user.ResetTokenExpiresAt = &expiresAt
	if err := s.usersFor(nil).Save(ctx, user); err != nil {
		s.warn(ctx, "store reset token", err)
		return
	}

	recipient := notifications.Recipient{Email: user.Email, UserName: user.UserName}
	if err := s.notifier.SendPasswordReset(ctx, recipient, token); err != nil {
		s.warn(ctx, "password reset email not sent", err)
	}
}

// ResetPassword consumes a reset token. The token is cleared on success so it
// cannot be replayed.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	if req.NewPassword == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password is required")
	}

	repo := s.usersFor(nil)
	user, err := repo.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
	}
	if user.ResetTokenExpiresAt == nil || !s.now().UTC().Before(*user.ResetTokenExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user.PasswordHash = hash
	user.ResetToken = nil
	user.ResetTokenExpiresAt = nil
	if err := repo.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}
