package auth

import (
	"time"

	"github.com/angelmondragon/ticketbooth-backend/internal/users"
)

// SignupRequest is the self-service registration payload.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	UserName string `json:"userName" validate:"omitempty,max=100"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// SigninRequest captures the credentials sent to the signin endpoint.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyEmailRequest pairs the address with the token mailed to it.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

// EmailRequest carries a single address, used by resend and forgot-password.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest consumes a reset token and sets a new password.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

// SignupResult reports the created account and whether the verification email left the service.
type SignupResult struct {
	User             *users.UserDTO `json:"user"`
	NotificationSent bool           `json:"notificationSent"`
}

// SessionResponse is returned whenever a session token is issued.
type SessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      *users.UserDTO `json:"user"`
}
