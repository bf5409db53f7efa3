package models

import (
	"time"

	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents every account on the platform: customers, admins and theater managers.
type User struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Email               string         `gorm:"column:email;type:text;not null;uniqueIndex:ux_users_email_active,where:is_deleted = false"`
	UserName            string         `gorm:"column:user_name;not null"`
	PasswordHash        string         `gorm:"column:password_hash;not null"`
	Role                enums.UserRole `gorm:"column:role;type:text;not null;index"`
	IsDeleted           bool           `gorm:"column:is_deleted;not null;default:false"`
	IsVerified          bool           `gorm:"column:is_verified;not null;default:false"`
	VerifyKey           *string        `gorm:"column:verify_key"`
	VerifyKeyExpiresAt  *time.Time     `gorm:"column:verify_key_expires_at"`
	ResetToken          *string        `gorm:"column:reset_token"`
	ResetTokenExpiresAt *time.Time     `gorm:"column:reset_token_expires_at"`
	LastLoginAt         *time.Time     `gorm:"column:last_login_at"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
