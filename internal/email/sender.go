// Package email provides outbound email delivery for notifications.
package email

import (
	"context"

	"aftersales_backend/platform/config"
)

// Sender delivers the notification emails of the after-sales domain.
// Implementations must be safe for concurrent use.
type Sender interface {
	SendInterventionScheduledEmail(ctx context.Context, toEmail, customerName, scheduledDate, description string) error
	SendInterventionStatusEmail(ctx context.Context, toEmail, customerName, description, newStatus string) error
	SendInterventionReminderEmail(ctx context.Context, toEmail, recipientName, scheduledDate, description string) error
	SendInvoiceIssuedEmail(ctx context.Context, toEmail, customerName, invoiceNumber string, grossCents int64, paymentURL string) error
	SendPaymentReceiptEmail(ctx context.Context, toEmail, customerName, invoiceNumber string, grossCents int64, paymentDate string) error
}

// NoopSender is used when email delivery is not configured.
type NoopSender struct{}

func (NoopSender) SendInterventionScheduledEmail(ctx context.Context, toEmail, customerName, scheduledDate, description string) error {
	return nil
}

func (NoopSender) SendInterventionStatusEmail(ctx context.Context, toEmail, customerName, description, newStatus string) error {
	return nil
}

func (NoopSender) SendInterventionReminderEmail(ctx context.Context, toEmail, recipientName, scheduledDate, description string) error {
	return nil
}

func (NoopSender) SendInvoiceIssuedEmail(ctx context.Context, toEmail, customerName, invoiceNumber string, grossCents int64, paymentURL string) error {
	return nil
}

func (NoopSender) SendPaymentReceiptEmail(ctx context.Context, toEmail, customerName, invoiceNumber string, grossCents int64, paymentDate string) error {
	return nil
}

// NewSender returns the configured Sender: SMTP when email is enabled,
// otherwise a no-op.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
