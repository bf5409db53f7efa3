package auth

import (
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionPayload captures the data available when minting a session token.
type SessionPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// JTI identifies the server-side session. Generated when empty.
	JTI string
}

// SessionClaims represents the typed JWT issued to clients.
type SessionClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
