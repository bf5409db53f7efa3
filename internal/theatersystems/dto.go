package theatersystems

import (
	"strings"
	"time"

	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	"github.com/google/uuid"
)

const (
	DefaultLogo        = "https://placehold.co/256x256?text=Cinema"
	DefaultDescription = "No description provided."
)

// SystemDTO is the response shape of a theater system.
type SystemDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Logo        string    `json:"logo"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateRequest registers a new theater system.
type CreateRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Code        string `json:"code" validate:"required,alphanum,max=20"`
	Logo        string `json:"logo" validate:"omitempty,url"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// UpdateRequest carries the fields to change; nil leaves a field untouched.
type UpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=150"`
	Code        *string `json:"code" validate:"omitempty,alphanum,max=20"`
	Logo        *string `json:"logo" validate:"omitempty,url"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// AddTheaterRequest moves a theater into a system.
type AddTheaterRequest struct {
	TheaterID       string `json:"theaterId" validate:"required"`
	TheaterSystemID string `json:"theaterSystemId" validate:"required"`
}

// Reference points at a system either by id or by code. Both blank means no system.
type Reference struct {
	ID   string
	Code string
}

// Blank reports whether neither the id nor the code carries a value.
func (r Reference) Blank() bool {
	return strings.TrimSpace(r.ID) == "" && strings.TrimSpace(r.Code) == ""
}

func FromModel(s *models.TheaterSystem) *SystemDTO {
	if s == nil {
		return nil
	}
	return &SystemDTO{
		ID:          s.ID,
		Name:        s.Name,
		Code:        s.Code,
		Logo:        s.Logo,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// NormalizeCode trims and upper-cases a system code for storage and lookups.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r CreateRequest) toModel() *models.TheaterSystem {
	logo := strings.TrimSpace(r.Logo)
	if logo == "" {
		logo = DefaultLogo
	}
	description := strings.TrimSpace(r.Description)
	if description == "" {
		description = DefaultDescription
	}
	return &models.TheaterSystem{
		Name:        strings.TrimSpace(r.Name),
		Code:        NormalizeCode(r.Code),
		Logo:        logo,
		Description: description,
	}
}
