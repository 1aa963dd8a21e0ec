package transport

import (
	"time"

	"github.com/google/uuid"
)

// Invoice statuses. paid is only reachable through payment confirmation.
const (
	StatusUnpaid    = "unpaid"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// CreateInvoiceRequest is the request body for invoicing an intervention
// directly.
type CreateInvoiceRequest struct {
	InterventionID uuid.UUID `json:"interventionId" validate:"required"`
}

// UpdateStatusRequest is the request body for an invoice status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=unpaid paid cancelled"`
}

// ListInvoicesRequest is the query parameters for listing invoices.
type ListInvoicesRequest struct {
	Status        string     `form:"status" validate:"omitempty,oneof=unpaid paid cancelled"`
	UnpaidOnly    bool       `form:"unpaidOnly"`
	IssuedFrom    *time.Time `form:"issuedFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	IssuedTo      *time.Time `form:"issuedTo" time_format:"2006-01-02T15:04:05Z07:00"`
	GrossMinCents *int64     `form:"grossMinCents" validate:"omitempty,min=0"`
	GrossMaxCents *int64     `form:"grossMaxCents" validate:"omitempty,min=0"`
}

// CheckoutRequest asks the payment processor for a payment intent on an
// unpaid invoice.
type CheckoutRequest struct {
	InvoiceID uuid.UUID `json:"invoiceId" validate:"required"`
}

// CheckoutResponse carries what the front end needs to collect the payment.
type CheckoutResponse struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	AmountCents     int64  `json:"amountCents"`
	Currency        string `json:"currency"`
}

// ConfirmProcessorPaymentRequest reports a processor payment back to the
// service. Only the intent id is trusted; everything else is re-read from
// the processor.
type ConfirmProcessorPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required,max=255"`
}

// InvoiceResponse is the response body for an invoice.
type InvoiceResponse struct {
	ID             uuid.UUID  `json:"id"`
	InterventionID uuid.UUID  `json:"interventionId"`
	Number         string     `json:"number"`
	NetCents       int64      `json:"netCents"`
	TaxCents       int64      `json:"taxCents"`
	GrossCents     int64      `json:"grossCents"`
	Status         string     `json:"status"`
	IssuedAt       time.Time  `json:"issuedAt"`
	PaymentDate    *time.Time `json:"paymentDate,omitempty"`
	PaymentMethod  *string    `json:"paymentMethod,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
