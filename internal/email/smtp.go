package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendInterventionScheduledEmail(ctx context.Context, toEmail, customerName, scheduledDate, description string) error {
	content, err := renderEmailTemplate("intervention_scheduled.html", interventionScheduledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Intervention planifiée",
			Heading: "Votre intervention est planifiée",
		},
		CustomerName:  customerName,
		ScheduledDate: scheduledDate,
		Description:   description,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectInterventionScheduled, content)
}

func (s *SMTPSender) SendInterventionStatusEmail(ctx context.Context, toEmail, customerName, description, newStatus string) error {
	content, err := renderEmailTemplate("intervention_status.html", interventionStatusEmailData{
		baseEmailData: baseEmailData{
			Title:   "Mise à jour de votre intervention",
			Heading: "Mise à jour de votre intervention",
		},
		CustomerName: customerName,
		Description:  description,
		NewStatus:    newStatus,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectInterventionStatusFmt, newStatus), content)
}

func (s *SMTPSender) SendInterventionReminderEmail(ctx context.Context, toEmail, recipientName, scheduledDate, description string) error {
	content, err := renderEmailTemplate("intervention_reminder.html", interventionReminderEmailData{
		baseEmailData: baseEmailData{
			Title:   "Rappel d'intervention",
			Heading: "Rappel d'intervention",
		},
		RecipientName: recipientName,
		ScheduledDate: scheduledDate,
		Description:   description,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectInterventionReminder, content)
}

func (s *SMTPSender) SendInvoiceIssuedEmail(ctx context.Context, toEmail, customerName, invoiceNumber string, grossCents int64, paymentURL string) error {
	content, err := renderEmailTemplate("invoice_issued.html", invoiceIssuedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Nouvelle facture",
			Heading:  "Votre facture est disponible",
			CTALabel: "Régler la facture",
			CTAURL:   paymentURL,
		},
		CustomerName:   customerName,
		InvoiceNumber:  invoiceNumber,
		TotalFormatted: formatCurrencyEUR(grossCents),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectInvoiceIssuedFmt, invoiceNumber), content)
}

func (s *SMTPSender) SendPaymentReceiptEmail(ctx context.Context, toEmail, customerName, invoiceNumber string, grossCents int64, paymentDate string) error {
	content, err := renderEmailTemplate("payment_receipt.html", paymentReceiptEmailData{
		baseEmailData: baseEmailData{
			Title:   "Paiement reçu",
			Heading: "Nous avons bien reçu votre paiement",
		},
		CustomerName:   customerName,
		InvoiceNumber:  invoiceNumber,
		TotalFormatted: formatCurrencyEUR(grossCents),
		PaymentDate:    paymentDate,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectPaymentReceiptFmt, invoiceNumber), content)
}

// Compile-time check that SMTPSender implements Sender.
var _ Sender = (*SMTPSender)(nil)
