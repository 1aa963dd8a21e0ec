package transport

import (
	"time"

	"github.com/google/uuid"
)

// Intervention statuses. The set is closed; unknown values are rejected at
// the boundary.
const (
	StatusPlanned    = "planned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// CreateInterventionRequest is the request body for scheduling an intervention.
type CreateInterventionRequest struct {
	ComplaintID  uuid.UUID `json:"complaintId" validate:"required"`
	TechnicianID uuid.UUID `json:"technicianId" validate:"required"`
	ScheduledAt  time.Time `json:"scheduledAt" validate:"required"`
	Description  string    `json:"description" validate:"required,min=1,max=2000"`
	CostCents    *int64    `json:"costCents,omitempty" validate:"omitempty,min=0"`
}

// UpdateStatusRequest is the request body for a status transition.
type UpdateStatusRequest struct {
	Status      string     `json:"status" validate:"required,oneof=planned in_progress completed cancelled"`
	PerformedAt *time.Time `json:"performedAt,omitempty"`
}

// ListInterventionsRequest is the query parameters for listing interventions.
type ListInterventionsRequest struct {
	TechnicianID  *uuid.UUID `form:"technicianId"`
	Status        string     `form:"status" validate:"omitempty,oneof=planned in_progress completed cancelled"`
	ScheduledFrom *time.Time `form:"scheduledFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	ScheduledTo   *time.Time `form:"scheduledTo" time_format:"2006-01-02T15:04:05Z07:00"`
	FreeOnly      bool       `form:"freeOnly"`
	BillableOnly  bool       `form:"billableOnly"`
}

// InterventionResponse is the response body for an intervention.
type InterventionResponse struct {
	ID              uuid.UUID  `json:"id"`
	ComplaintID     uuid.UUID  `json:"complaintId"`
	TechnicianID    uuid.UUID  `json:"technicianId"`
	ScheduledAt     time.Time  `json:"scheduledAt"`
	PerformedAt     *time.Time `json:"performedAt,omitempty"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	CostCents       int64      `json:"costCents"`
	WarrantyCovered bool       `json:"warrantyCovered"`
	Billable        bool       `json:"billable"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// StatusChangeResponse reports a transition and, when completing a billable
// intervention, the invoice it produced.
type StatusChangeResponse struct {
	Intervention *InterventionResponse `json:"intervention"`
	InvoiceID    *uuid.UUID            `json:"invoiceId,omitempty"`
}
