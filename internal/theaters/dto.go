package theaters

import (
	"time"

	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	"github.com/angelmondragon/ticketbooth-backend/pkg/types"
	"github.com/google/uuid"
)

// TheaterDTO is the response shape of a theater.
type TheaterDTO struct {
	ID              uuid.UUID  `json:"id"`
	TheaterName     string     `json:"theaterName"`
	Location        string     `json:"location"`
	TheaterSystemID *uuid.UUID `json:"theaterSystemId"`
	ManagerID       *uuid.UUID `json:"managerId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CreateTheaterAndManagerRequest always provisions a brand-new manager account.
type CreateTheaterAndManagerRequest struct {
	TheaterName     string `json:"theaterName" validate:"required,max=150"`
	Location        string `json:"location" validate:"required,max=300"`
	TheaterSystemID string `json:"theaterSystemId" validate:"required"`
	ManagerEmail    string `json:"managerEmail" validate:"required,email"`
	ManagerUserName string `json:"managerUserName" validate:"required,max=100"`
	ManagerPassword string `json:"managerPassword" validate:"required,min=8,max=128"`
}

// CreateTheaterRequest creates a theater with an optional system and manager.
type CreateTheaterRequest struct {
	TheaterName       string `json:"theaterName" validate:"required,max=150"`
	Location          string `json:"location" validate:"required,max=300"`
	TheaterSystemCode string `json:"theaterSystemCode" validate:"omitempty,max=20"`
	TheaterSystemID   string `json:"theaterSystemId"`
	ManagerEmail      string `json:"managerEmail" validate:"omitempty,email"`
	ManagerUserName   string `json:"managerUserName" validate:"omitempty,max=100"`
	ManagerPassword   string `json:"managerPassword" validate:"omitempty,min=8,max=128"`
}

// UpdateTheaterRequest distinguishes an absent key from a key sent as null or "".
type UpdateTheaterRequest struct {
	TheaterName       types.NullableString `json:"theaterName"`
	Location          types.NullableString `json:"location"`
	ManagerEmail      types.NullableString `json:"managerEmail"`
	ManagerUserName   types.NullableString `json:"managerUserName"`
	ManagerPassword   types.NullableString `json:"managerPassword"`
	TheaterSystemCode types.NullableString `json:"theaterSystemCode"`
	TheaterSystemID   types.NullableString `json:"theaterSystemId"`
}

// updateTheaterFields carries the create rules for the keys an update sends.
// Blank values skip validation; the service decides what blank means.
type updateTheaterFields struct {
	TheaterName       string `json:"theaterName" validate:"omitempty,max=150"`
	Location          string `json:"location" validate:"omitempty,max=300"`
	TheaterSystemCode string `json:"theaterSystemCode" validate:"omitempty,max=20"`
	ManagerEmail      string `json:"managerEmail" validate:"omitempty,email"`
	ManagerUserName   string `json:"managerUserName" validate:"omitempty,max=100"`
	ManagerPassword   string `json:"managerPassword" validate:"omitempty,min=8,max=128"`
}

// ValidationFields exposes the update as a plain struct the request validator can check.
func (r UpdateTheaterRequest) ValidationFields() any {
	return updateTheaterFields{
		TheaterName:       r.TheaterName.Trimmed(),
		Location:          r.Location.Trimmed(),
		TheaterSystemCode: r.TheaterSystemCode.Trimmed(),
		ManagerEmail:      r.ManagerEmail.Trimmed(),
		ManagerUserName:   r.ManagerUserName.Trimmed(),
		ManagerPassword:   r.ManagerPassword.Raw(),
	}
}

// ProvisionResult carries the created theater and its redacted manager.
type ProvisionResult struct {
	Theater *TheaterDTO    `json:"theater"`
	Manager *users.UserDTO `json:"manager,omitempty"`
}

func FromModel(t *models.Theater) *TheaterDTO {
	if t == nil {
		return nil
	}
	return &TheaterDTO{
		ID:              t.ID,
		TheaterName:     t.TheaterName,
		Location:        t.Location,
		TheaterSystemID: t.TheaterSystemID,
		ManagerID:       t.ManagerID,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}
