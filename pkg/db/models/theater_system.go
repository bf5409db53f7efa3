package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TheaterSystem is a cinema chain. Name and code are globally unique; code is stored upper-case.
type TheaterSystem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:ux_theater_systems_name"`
	Code        string    `gorm:"column:code;not null;uniqueIndex:ux_theater_systems_code"`
	Logo        string    `gorm:"column:logo;not null"`
	Description string    `gorm:"column:description;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *TheaterSystem) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
