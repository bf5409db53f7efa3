package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/mailer"
)

// Recipient identifies who an account email goes to.
type Recipient struct {
	Email    string
	UserName string
}

// Notifier sends the out-of-band messages of the account lifecycle.
type Notifier interface {
	SendVerification(ctx context.Context, to Recipient, token string) error
	SendPasswordReset(ctx context.Context, to Recipient, token string) error
}

type service struct {
	sender          mailer.Sender
	baseURL         string
	verificationTTL time.Duration
	resetTTL        time.Duration
}

// NewService wires the notifier to a mail sender.
func NewService(sender mailer.Sender, app config.AppConfig, tokens config.TokenConfig) (Notifier, error) {
	if sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mail sender required")
	}
	return &service{
		sender:          sender,
		baseURL:         app.PublicBaseURL,
		verificationTTL: tokens.VerificationTTL,
		resetTTL:        tokens.PasswordResetTTL,
	}, nil
}

func (s *service) SendVerification(ctx context.Context, to Recipient, token string) error {
	msg, err := buildVerificationMessage(s.baseURL, to, token, s.verificationTTL)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, msg)
}

func (s *service) SendPasswordReset(ctx context.Context, to Recipient, token string) error {
	msg, err := buildResetMessage(s.baseURL, to, token, s.resetTTL)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, msg)
}
