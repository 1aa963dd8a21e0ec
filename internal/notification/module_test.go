package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"aftersales_backend/internal/clients/complaints"
	"aftersales_backend/internal/clients/customers"
	"aftersales_backend/internal/events"
	"aftersales_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSender struct {
	err       error
	scheduled int
	status    int
	reminder  int
	invoice   int
	receipt   int
}

func (f *fakeSender) SendInterventionScheduledEmail(ctx context.Context, toEmail, customerName, scheduledDate, description string) error {
	f.scheduled++
	return f.err
}

func (f *fakeSender) SendInterventionStatusEmail(ctx context.Context, toEmail, customerName, description, newStatus string) error {
	f.status++
	return f.err
}

func (f *fakeSender) SendInterventionReminderEmail(ctx context.Context, toEmail, recipientName, scheduledDate, description string) error {
	f.reminder++
	return f.err
}

func (f *fakeSender) SendInvoiceIssuedEmail(ctx context.Context, toEmail, customerName, invoiceNumber string, grossCents int64, paymentURL string) error {
	f.invoice++
	return f.err
}

func (f *fakeSender) SendPaymentReceiptEmail(ctx context.Context, toEmail, customerName, invoiceNumber string, grossCents int64, paymentDate string) error {
	f.receipt++
	return f.err
}

type fakeComplaints struct {
	err error
}

func (f *fakeComplaints) GetComplaint(ctx context.Context, id uuid.UUID) (*complaints.Complaint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &complaints.Complaint{ID: id, CustomerID: uuid.New()}, nil
}

type fakeCustomers struct {
	err   error
	email string
}

func (f *fakeCustomers) GetCustomer(ctx context.Context, id uuid.UUID) (*customers.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &customers.Customer{ID: id, Name: "Marie Lefevre", Email: f.email, Phone: "06 12 34 56 78"}, nil
}

type fakeTechnicians struct {
	err error
}

func (f *fakeTechnicians) Contact(ctx context.Context, id uuid.UUID) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return "Paul Martin", "paul@example.fr", nil
}

type fakeNotifConfig struct{}

func (fakeNotifConfig) GetAppBaseURL() string { return "https://sav.example.fr" }

type fixture struct {
	module      *Module
	sender      *fakeSender
	complaints  *fakeComplaints
	customers   *fakeCustomers
	technicians *fakeTechnicians
}

func newFixture() *fixture {
	f := &fixture{
		sender:      &fakeSender{},
		complaints:  &fakeComplaints{},
		customers:   &fakeCustomers{email: "marie@example.fr"},
		technicians: &fakeTechnicians{},
	}
	f.module = NewModule(f.sender, f.complaints, f.customers, f.technicians, fakeNotifConfig{}, logger.New("test"))
	return f
}

func interventionCreated() events.InterventionCreated {
	return events.InterventionCreated{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: uuid.New(),
		ComplaintID:    uuid.New(),
		TechnicianID:   uuid.New(),
		ScheduledAt:    time.Now().Add(48 * time.Hour),
		Description:    "remplacement du compresseur",
	}
}

func TestHandle_InterventionCreated_NotifiesCustomerAndTechnician(t *testing.T) {
	f := newFixture()

	if err := f.module.Handle(context.Background(), interventionCreated()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sender.scheduled != 1 {
		t.Fatalf("expected 1 customer email, got %d", f.sender.scheduled)
	}
	if f.sender.reminder != 1 {
		t.Fatalf("expected 1 technician email, got %d", f.sender.reminder)
	}
}

func TestHandle_SendFailure_NeverPropagates(t *testing.T) {
	f := newFixture()
	f.sender.err = errors.New("smtp connection refused")

	if err := f.module.Handle(context.Background(), interventionCreated()); err != nil {
		t.Fatalf("expected send failures to be swallowed, got %v", err)
	}
}

func TestHandle_RecipientResolutionFailure_NeverPropagates(t *testing.T) {
	cases := []struct {
		name string
		prep func(f *fixture)
	}{
		{"complaint lookup fails", func(f *fixture) { f.complaints.err = errors.New("service down") }},
		{"customer lookup fails", func(f *fixture) { f.customers.err = errors.New("service down") }},
		{"customer has no email", func(f *fixture) { f.customers.email = "" }},
		{"technician lookup fails", func(f *fixture) { f.technicians.err = errors.New("not found") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			tc.prep(f)

			if err := f.module.Handle(context.Background(), interventionCreated()); err != nil {
				t.Fatalf("expected resolution failure to be swallowed, got %v", err)
			}
		})
	}
}

func TestHandle_InvoiceCreated_SendsPaymentLink(t *testing.T) {
	f := newFixture()

	err := f.module.Handle(context.Background(), events.InvoiceCreated{
		BaseEvent:      events.NewBaseEvent(),
		InvoiceID:      uuid.New(),
		InterventionID: uuid.New(),
		ComplaintID:    uuid.New(),
		Number:         "FACT-2026-0001",
		GrossCents:     14400,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sender.invoice != 1 {
		t.Fatalf("expected 1 invoice email, got %d", f.sender.invoice)
	}
}

func TestHandle_InvoicePaid_SendsReceipt(t *testing.T) {
	f := newFixture()

	err := f.module.Handle(context.Background(), events.InvoicePaid{
		BaseEvent:     events.NewBaseEvent(),
		InvoiceID:     uuid.New(),
		ComplaintID:   uuid.New(),
		Number:        "FACT-2026-0001",
		GrossCents:    14400,
		PaymentMethod: "card",
		PaymentDate:   time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sender.receipt != 1 {
		t.Fatalf("expected 1 receipt email, got %d", f.sender.receipt)
	}
}

func TestHandle_StatusChanged_NotifiesCustomer(t *testing.T) {
	f := newFixture()

	err := f.module.Handle(context.Background(), events.InterventionStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: uuid.New(),
		ComplaintID:    uuid.New(),
		TechnicianID:   uuid.New(),
		OldStatus:      "planned",
		NewStatus:      "in_progress",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sender.status != 1 {
		t.Fatalf("expected 1 status email, got %d", f.sender.status)
	}
}
