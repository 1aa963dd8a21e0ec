package payments

import (
	"context"

	"aftersales_backend/platform/apperr"
	"aftersales_backend/platform/config"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct{}

// NewStripeGateway configures the Stripe client from the secret key.
func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	stripe.Key = cfg.GetStripeSecretKey()
	return &StripeGateway{}
}

// NewGateway returns the Stripe gateway when a secret key is configured and
// the disabled gateway otherwise.
func NewGateway(cfg config.PaymentConfig) Gateway {
	if cfg.IsStripeEnabled() {
		return NewStripeGateway(cfg)
	}
	return Disabled{}
}

// CreateIntent opens a payment intent at Stripe.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "payment processor error", err)
	}

	return fromStripe(pi), nil
}

// GetIntent retrieves a payment intent from Stripe. The processor-reported
// status is authoritative; client-claimed outcomes are never trusted.
func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.HTTPStatusCode == 404 {
			return nil, apperr.NotFound("payment intent not found")
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "payment processor error", err)
	}

	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

var _ Gateway = (*StripeGateway)(nil)
