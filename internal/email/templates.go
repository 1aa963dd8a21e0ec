package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type interventionScheduledEmailData struct {
	baseEmailData
	CustomerName  string
	ScheduledDate string
	Description   string
}

type interventionStatusEmailData struct {
	baseEmailData
	CustomerName string
	Description  string
	NewStatus    string
}

type interventionReminderEmailData struct {
	baseEmailData
	RecipientName string
	ScheduledDate string
	Description   string
}

type invoiceIssuedEmailData struct {
	baseEmailData
	CustomerName   string
	InvoiceNumber  string
	TotalFormatted string
}

type paymentReceiptEmailData struct {
	baseEmailData
	CustomerName   string
	InvoiceNumber  string
	TotalFormatted string
	PaymentDate    string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyEUR(cents int64) string {
	return fmt.Sprintf("%.2f €", float64(cents)/100)
}
