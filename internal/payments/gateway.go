// Package payments abstracts the card payment processor behind a small
// gateway interface so the invoicing flow stays testable offline.
package payments

import (
	"context"

	"aftersales_backend/platform/apperr"
)

// Intent is the processor-neutral view of a payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	Currency     string
	Metadata     map[string]string
}

// StatusSucceeded is the only intent status accepted as proof of payment.
const StatusSucceeded = "succeeded"

// Gateway creates and retrieves payment intents at the processor.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// Disabled is the gateway used when no processor credentials are configured.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, int64, string, map[string]string) (*Intent, error) {
	return nil, apperr.Unavailable("payment processor not configured")
}

func (Disabled) GetIntent(context.Context, string) (*Intent, error) {
	return nil, apperr.Unavailable("payment processor not configured")
}

var _ Gateway = Disabled{}
