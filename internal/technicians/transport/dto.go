package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateTechnicianRequest is the request body for registering a technician.
type CreateTechnicianRequest struct {
	Name   string   `json:"name" validate:"required,min=1,max=200"`
	Email  string   `json:"email" validate:"required,email"`
	Phone  string   `json:"phone,omitempty" validate:"max=30"`
	Skills []string `json:"skills,omitempty" validate:"max=20,dive,min=1,max=100"`
}

// UpdateAvailabilityRequest toggles a technician's availability.
type UpdateAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// ListTechniciansRequest is the query parameters for listing technicians.
type ListTechniciansRequest struct {
	AvailableOnly bool   `form:"availableOnly"`
	Skill         string `form:"skill"`
}

// TechnicianResponse is the response body for a technician.
type TechnicianResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Skills    []string  `json:"skills"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"createdAt"`
}
