// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"aftersales_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Intervention Domain Events
// =============================================================================

// InterventionCreated is published when an intervention passes reference
// validation and the billing decision is frozen.
type InterventionCreated struct {
	BaseEvent
	InterventionID  uuid.UUID `json:"interventionId"`
	ComplaintID     uuid.UUID `json:"complaintId"`
	TechnicianID    uuid.UUID `json:"technicianId"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	Description     string    `json:"description"`
	Billable        bool      `json:"billable"`
	WarrantyCovered bool      `json:"warrantyCovered"`
	CostCents       int64     `json:"costCents"`
}

func (e InterventionCreated) EventName() string { return "interventions.created" }

// InterventionStatusChanged is published on every status transition,
// whatever the outcome of downstream side effects.
type InterventionStatusChanged struct {
	BaseEvent
	InterventionID uuid.UUID `json:"interventionId"`
	ComplaintID    uuid.UUID `json:"complaintId"`
	TechnicianID   uuid.UUID `json:"technicianId"`
	OldStatus      string    `json:"oldStatus"`
	NewStatus      string    `json:"newStatus"`
}

func (e InterventionStatusChanged) EventName() string { return "interventions.status.changed" }

// InterventionReminderDue is published by the scheduler worker when a
// scheduled intervention is approaching.
type InterventionReminderDue struct {
	BaseEvent
	InterventionID uuid.UUID `json:"interventionId"`
	ComplaintID    uuid.UUID `json:"complaintId"`
	TechnicianID   uuid.UUID `json:"technicianId"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	Description    string    `json:"description"`
}

func (e InterventionReminderDue) EventName() string { return "interventions.reminder.due" }

// =============================================================================
// Invoice Domain Events
// =============================================================================

// InvoiceCreated is published when an invoice is generated for a completed
// billable intervention (or created directly).
type InvoiceCreated struct {
	BaseEvent
	InvoiceID      uuid.UUID `json:"invoiceId"`
	InterventionID uuid.UUID `json:"interventionId"`
	ComplaintID    uuid.UUID `json:"complaintId"`
	Number         string    `json:"number"`
	NetCents       int64     `json:"netCents"`
	TaxCents       int64     `json:"taxCents"`
	GrossCents     int64     `json:"grossCents"`
}

func (e InvoiceCreated) EventName() string { return "invoices.created" }

// InvoicePaid is published when a payment confirmation (direct or
// processor-originated) marks an invoice paid.
type InvoicePaid struct {
	BaseEvent
	InvoiceID      uuid.UUID `json:"invoiceId"`
	InterventionID uuid.UUID `json:"interventionId"`
	ComplaintID    uuid.UUID `json:"complaintId"`
	Number         string    `json:"number"`
	GrossCents     int64     `json:"grossCents"`
	PaymentMethod  string    `json:"paymentMethod"`
	PaymentDate    time.Time `json:"paymentDate"`
}

func (e InvoicePaid) EventName() string { return "invoices.paid" }
