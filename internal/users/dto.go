package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials and one-time tokens.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	UserName    string         `json:"userName"`
	Role        enums.UserRole `json:"role"`
	IsVerified  bool           `json:"isVerified"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email              string
	UserName           string
	PasswordHash       string
	Role               enums.UserRole
	IsVerified         bool
	VerifyKey          *string
	VerifyKeyExpiresAt *time.Time
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		UserName:    u.UserName,
		Role:        u.Role,
		IsVerified:  u.IsVerified,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		Email:              NormalizeEmail(c.Email),
		UserName:           strings.TrimSpace(c.UserName),
		PasswordHash:       c.PasswordHash,
		Role:               role,
		IsVerified:         c.IsVerified,
		VerifyKey:          c.VerifyKey,
		VerifyKeyExpiresAt: c.VerifyKeyExpiresAt,
	}
}

// NormalizeEmail lower-cases and trims an address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LocalPart returns the part of an address before the @, used as a default user name.
func LocalPart(email string) string {
	email = NormalizeEmail(email)
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
