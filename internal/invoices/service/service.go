// Package service contains the invoicing logic: sequential numbering, amount
// calculation, payment confirmation and the processor checkout flow.
package service

import (
	"context"
	"fmt"
	"time"

	"aftersales_backend/internal/clients/complaints"
	"aftersales_backend/internal/clients/customers"
	"aftersales_backend/internal/events"
	intervsvc "aftersales_backend/internal/interventions/service"
	"aftersales_backend/internal/invoices/repository"
	"aftersales_backend/internal/invoices/transport"
	"aftersales_backend/internal/payments"
	"aftersales_backend/platform/apperr"
	"aftersales_backend/platform/config"
	"aftersales_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	// PaymentMethodInternal marks a payment confirmed without a processor.
	PaymentMethodInternal = "internal-simulated"
	// PaymentMethodCard marks a processor-confirmed card payment.
	PaymentMethodCard = "card"

	checkoutCurrency = "eur"
)

// Repository defines the persistence operations the service needs.
type Repository interface {
	NextInvoiceNumber(ctx context.Context, q repository.DBTX, year int) (int64, error)
	Insert(ctx context.Context, q repository.DBTX, inv *repository.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Invoice, error)
	GetByInterventionID(ctx context.Context, interventionID uuid.UUID) (*repository.Invoice, error)
	ExistsForIntervention(ctx context.Context, interventionID uuid.UUID) (bool, error)
	GetInterventionSnapshot(ctx context.Context, interventionID uuid.UUID) (*repository.InterventionSnapshot, error)
	List(ctx context.Context, filters repository.ListFilters) ([]repository.Invoice, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentDate time.Time, paymentMethod string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ComplaintReader resolves complaint references for checkout metadata.
type ComplaintReader interface {
	GetComplaint(ctx context.Context, id uuid.UUID) (*complaints.Complaint, error)
}

// CustomerReader resolves customer references for checkout metadata.
type CustomerReader interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*customers.Customer, error)
}

// Service implements invoice business logic
type Service struct {
	repo       Repository
	gateway    payments.Gateway
	complaints ComplaintReader
	customers  CustomerReader
	bus        events.Bus
	cfg        config.InvoicingConfig
	appBaseURL string
	log        *logger.Logger
}

// New creates a new invoices service
func New(
	repo Repository,
	gateway payments.Gateway,
	complaintReader ComplaintReader,
	customerReader CustomerReader,
	bus events.Bus,
	cfg config.InvoicingConfig,
	notifCfg config.NotificationConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		gateway:    gateway,
		complaints: complaintReader,
		customers:  customerReader,
		bus:        bus,
		cfg:        cfg,
		appBaseURL: notifCfg.GetAppBaseURL(),
		log:        log,
	}
}

// CreateForIntervention invoices an intervention directly. The intervention
// must exist, be billable, and not be invoiced yet; the unique constraint on
// intervention_id settles concurrent attempts.
func (s *Service) CreateForIntervention(ctx context.Context, interventionID uuid.UUID) (*transport.InvoiceResponse, error) {
	snap, err := s.repo.GetInterventionSnapshot(ctx, interventionID)
	if err != nil {
		return nil, err
	}
	if !snap.Billable {
		return nil, apperr.Conflict("intervention is not billable")
	}

	inv, err := s.insertWithNumber(ctx, nil, interventionID, snap.CostCents)
	if err != nil {
		return nil, err
	}
	inv.ComplaintID = snap.ComplaintID

	s.publishCreated(ctx, inv)
	return toResponse(inv), nil
}

// IssueForIntervention creates the invoice inside the intervention
// completion transaction. The caller publishes the events after commit.
func (s *Service) IssueForIntervention(ctx context.Context, tx pgx.Tx, interventionID uuid.UUID, costCents int64) (*intervsvc.IssuedInvoice, error) {
	inv, err := s.insertWithNumber(ctx, tx, interventionID, costCents)
	if err != nil {
		return nil, err
	}

	return &intervsvc.IssuedInvoice{
		ID:         inv.ID,
		Number:     inv.Number,
		NetCents:   inv.NetCents,
		TaxCents:   inv.TaxCents,
		GrossCents: inv.GrossCents,
	}, nil
}

// ExistsForIntervention reports whether the intervention is already invoiced.
func (s *Service) ExistsForIntervention(ctx context.Context, interventionID uuid.UUID) (bool, error) {
	return s.repo.ExistsForIntervention(ctx, interventionID)
}

// insertWithNumber draws a sequence number and writes the invoice. On the
// pool path a number collision gets one retry with a fresh number. Inside a
// caller-owned transaction a unique violation aborts the whole transaction,
// so there the collision is returned as-is; the intervention_id constraint is
// never retried.
func (s *Service) insertWithNumber(ctx context.Context, tx pgx.Tx, interventionID uuid.UUID, costCents int64) (*repository.Invoice, error) {
	now := time.Now()
	netCents := costCents
	taxCents := netCents * s.cfg.GetInvoiceTaxRateBps() / 10000

	var q repository.DBTX
	attempts := 2
	if tx != nil {
		q = tx
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		seq, err := s.repo.NextInvoiceNumber(ctx, q, now.Year())
		if err != nil {
			return nil, err
		}

		inv := &repository.Invoice{
			ID:             uuid.New(),
			InterventionID: interventionID,
			Number:         fmt.Sprintf("%s-%d-%04d", s.cfg.GetInvoicePrefix(), now.Year(), seq),
			NetCents:       netCents,
			TaxCents:       taxCents,
			GrossCents:     netCents + taxCents,
			Status:         transport.StatusUnpaid,
			IssuedAt:       now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		err = s.repo.Insert(ctx, q, inv)
		if err == nil {
			return inv, nil
		}
		if err != repository.ErrNumberCollision {
			return nil, err
		}
	}

	return nil, apperr.Internal("could not allocate a unique invoice number")
}

// GetByID returns a single invoice
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.InvoiceResponse, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(inv), nil
}

// List returns invoices matching the filters
func (s *Service) List(ctx context.Context, req transport.ListInvoicesRequest) ([]transport.InvoiceResponse, error) {
	invoices, err := s.repo.List(ctx, repository.ListFilters{
		Status:        req.Status,
		UnpaidOnly:    req.UnpaidOnly,
		IssuedFrom:    req.IssuedFrom,
		IssuedTo:      req.IssuedTo,
		GrossMinCents: req.GrossMinCents,
		GrossMaxCents: req.GrossMaxCents,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]transport.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, *toResponse(&invoices[i]))
	}
	return responses, nil
}

// ChangeStatus applies an administrative status change. Paid is only
// reachable through payment confirmation, and paid invoices are immutable.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req transport.UpdateStatusRequest) (*transport.InvoiceResponse, error) {
	if req.Status == transport.StatusPaid {
		return nil, apperr.Validation("paid is set through payment confirmation")
	}

	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == transport.StatusPaid {
		return nil, apperr.Conflict("paid invoices are immutable")
	}

	if inv.Status != req.Status {
		if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
			return nil, err
		}
		inv.Status = req.Status
	}

	return toResponse(inv), nil
}

// ConfirmPaymentDirect marks an invoice paid without a processor, recording
// the agent who confirmed it. A second confirmation is rejected and leaves
// the original payment fields untouched.
func (s *Service) ConfirmPaymentDirect(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*transport.InvoiceResponse, error) {
	resp, err := s.confirmPayment(ctx, id, PaymentMethodInternal)
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice payment confirmed manually",
		"invoiceId", id,
		"number", resp.Number,
		"actorId", actorID,
	)
	return resp, nil
}

// CreateCheckout opens a payment intent at the processor for an unpaid
// invoice. The intent metadata links it back to the invoice; customer
// details are added best-effort.
func (s *Service) CreateCheckout(ctx context.Context, req transport.CheckoutRequest) (*transport.CheckoutResponse, error) {
	inv, err := s.repo.GetByID(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != transport.StatusUnpaid {
		return nil, apperr.Conflict("invoice is " + inv.Status)
	}

	metadata := map[string]string{
		"invoiceId":     inv.ID.String(),
		"invoiceNumber": inv.Number,
	}
	s.addCustomerMetadata(ctx, inv.ComplaintID, metadata)

	intent, err := s.gateway.CreateIntent(ctx, inv.GrossCents, checkoutCurrency, metadata)
	if err != nil {
		return nil, err
	}

	return &transport.CheckoutResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     intent.AmountCents,
		Currency:        intent.Currency,
	}, nil
}

// ConfirmPaymentFromProcessor settles an invoice from a processor callback.
// The intent is re-read from the processor and must report succeeded; the
// invoice is identified through the intent metadata only.
func (s *Service) ConfirmPaymentFromProcessor(ctx context.Context, req transport.ConfirmProcessorPaymentRequest) (*transport.InvoiceResponse, error) {
	intent, err := s.gateway.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}

	if intent.Status != payments.StatusSucceeded {
		return nil, apperr.BadRequest("processor reports failure")
	}

	invoiceID, err := uuid.Parse(intent.Metadata["invoiceId"])
	if err != nil {
		return nil, apperr.BadRequest("payment intent is not linked to an invoice")
	}

	return s.confirmPayment(ctx, invoiceID, PaymentMethodCard)
}

// PaymentLink returns the customer-facing payment URL for an invoice.
func (s *Service) PaymentLink(ctx context.Context, id uuid.UUID) (string, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/invoices/%s/pay", s.appBaseURL, inv.ID), nil
}

func (s *Service) confirmPayment(ctx context.Context, id uuid.UUID, method string) (*transport.InvoiceResponse, error) {
	paymentDate := time.Now()
	if err := s.repo.MarkPaid(ctx, id, paymentDate, method); err != nil {
		return nil, err
	}

	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.InvoicePaid{
		BaseEvent:      events.NewBaseEvent(),
		InvoiceID:      inv.ID,
		InterventionID: inv.InterventionID,
		ComplaintID:    inv.ComplaintID,
		Number:         inv.Number,
		GrossCents:     inv.GrossCents,
		PaymentMethod:  method,
		PaymentDate:    paymentDate,
	})

	return toResponse(inv), nil
}

func (s *Service) addCustomerMetadata(ctx context.Context, complaintID uuid.UUID, metadata map[string]string) {
	complaint, err := s.complaints.GetComplaint(ctx, complaintID)
	if err != nil {
		s.log.Warn("checkout metadata: complaint lookup failed", "complaintId", complaintID, "error", err.Error())
		return
	}

	customer, err := s.customers.GetCustomer(ctx, complaint.CustomerID)
	if err != nil {
		s.log.Warn("checkout metadata: customer lookup failed", "customerId", complaint.CustomerID, "error", err.Error())
		return
	}

	metadata["customerName"] = customer.Name
	metadata["customerEmail"] = customer.Email
}

func (s *Service) publishCreated(ctx context.Context, inv *repository.Invoice) {
	s.bus.Publish(ctx, events.InvoiceCreated{
		BaseEvent:      events.NewBaseEvent(),
		InvoiceID:      inv.ID,
		InterventionID: inv.InterventionID,
		ComplaintID:    inv.ComplaintID,
		Number:         inv.Number,
		NetCents:       inv.NetCents,
		TaxCents:       inv.TaxCents,
		GrossCents:     inv.GrossCents,
	})
}

func toResponse(inv *repository.Invoice) *transport.InvoiceResponse {
	return &transport.InvoiceResponse{
		ID:             inv.ID,
		InterventionID: inv.InterventionID,
		Number:         inv.Number,
		NetCents:       inv.NetCents,
		TaxCents:       inv.TaxCents,
		GrossCents:     inv.GrossCents,
		Status:         inv.Status,
		IssuedAt:       inv.IssuedAt,
		PaymentDate:    inv.PaymentDate,
		PaymentMethod:  inv.PaymentMethod,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}
