package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Theater is a single venue. A nil TheaterSystemID places it in the unaffiliated scope.
type Theater struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TheaterName     string     `gorm:"column:theater_name;not null;index:ix_theaters_name_scope"`
	Location        string     `gorm:"column:location;not null"`
	TheaterSystemID *uuid.UUID `gorm:"column:theater_system_id;type:uuid;index:ix_theaters_name_scope"`
	ManagerID       *uuid.UUID `gorm:"column:manager_id;type:uuid;uniqueIndex:ux_theaters_manager_active,where:manager_id IS NOT NULL AND is_deleted = false"`
	IsDeleted       bool       `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Theater) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// All lists the models in dependency order for AutoMigrate callers.
func All() []any {
	return []any{&User{}, &TheaterSystem{}, &Theater{}}
}
