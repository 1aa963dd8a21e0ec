// Package service contains the orchestration logic for interventions:
// reference validation against the collaborator services, the warranty and
// cost decision, the status lifecycle, and invoice generation on completion.
package service

import (
	"context"
	"time"

	"aftersales_backend/internal/clients/complaints"
	"aftersales_backend/internal/clients/customers"
	"aftersales_backend/internal/events"
	"aftersales_backend/internal/interventions/repository"
	"aftersales_backend/internal/interventions/transport"
	"aftersales_backend/platform/apperr"
	"aftersales_backend/platform/config"
	"aftersales_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines the persistence operations the service needs.
type Repository interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, iv *repository.Intervention) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Intervention, error)
	List(ctx context.Context, filters repository.ListFilters) ([]repository.Intervention, error)
	UpdateStatus(ctx context.Context, q repository.DBTX, id uuid.UUID, status string, performedAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ComplaintReader resolves complaint references at the complaint collaborator.
type ComplaintReader interface {
	GetComplaint(ctx context.Context, id uuid.UUID) (*complaints.Complaint, error)
}

// CustomerReader resolves customer references at the customer collaborator.
type CustomerReader interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*customers.Customer, error)
}

// WarrantyChecker answers whether an article is under warranty.
type WarrantyChecker interface {
	IsUnderWarranty(ctx context.Context, articleID uuid.UUID) (bool, error)
}

// TechnicianDirectory checks technician assignability.
type TechnicianDirectory interface {
	IsAssignable(ctx context.Context, id uuid.UUID) (bool, error)
}

// IssuedInvoice is what invoice issuance reports back to the lifecycle.
type IssuedInvoice struct {
	ID         uuid.UUID
	Number     string
	NetCents   int64
	TaxCents   int64
	GrossCents int64
}

// InvoiceIssuer creates the invoice for a completed billable intervention
// inside the completion transaction.
type InvoiceIssuer interface {
	ExistsForIntervention(ctx context.Context, interventionID uuid.UUID) (bool, error)
	IssueForIntervention(ctx context.Context, tx pgx.Tx, interventionID uuid.UUID, costCents int64) (*IssuedInvoice, error)
}

// ReminderScheduler enqueues an intervention reminder task.
type ReminderScheduler interface {
	ScheduleInterventionReminder(ctx context.Context, interventionID uuid.UUID, scheduledAt time.Time) error
}

// allowedTransitions is the closed lifecycle: planned and in_progress can be
// cancelled, completed and cancelled are terminal.
var allowedTransitions = map[string][]string{
	transport.StatusPlanned:    {transport.StatusInProgress, transport.StatusCancelled},
	transport.StatusInProgress: {transport.StatusCompleted, transport.StatusCancelled},
}

// Service implements intervention business logic
type Service struct {
	repo        Repository
	complaints  ComplaintReader
	customers   CustomerReader
	warranty    WarrantyChecker
	technicians TechnicianDirectory
	invoices    InvoiceIssuer
	reminders   ReminderScheduler
	bus         events.Bus
	cfg         config.InvoicingConfig
	log         *logger.Logger
}

// New creates a new interventions service. reminders may be nil when no
// scheduler backend is configured.
func New(
	repo Repository,
	complaintReader ComplaintReader,
	customerReader CustomerReader,
	warranty WarrantyChecker,
	technicians TechnicianDirectory,
	invoices InvoiceIssuer,
	reminders ReminderScheduler,
	bus events.Bus,
	cfg config.InvoicingConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:        repo,
		complaints:  complaintReader,
		customers:   customerReader,
		warranty:    warranty,
		technicians: technicians,
		invoices:    invoices,
		reminders:   reminders,
		bus:         bus,
		cfg:         cfg,
		log:         log,
	}
}

// Create validates the complaint and technician references, freezes the
// warranty and cost decision, and stores the intervention as planned.
func (s *Service) Create(ctx context.Context, req transport.CreateInterventionRequest) (*transport.InterventionResponse, error) {
	complaint, err := s.validateReferences(ctx, req.ComplaintID)
	if err != nil {
		return nil, err
	}

	if err := s.checkTechnician(ctx, req.TechnicianID); err != nil {
		return nil, err
	}

	costCents, billable, warrantyCovered, err := s.decideBilling(ctx, complaint.ArticleID, req.CostCents)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	iv := &repository.Intervention{
		ID:              uuid.New(),
		ComplaintID:     req.ComplaintID,
		TechnicianID:    req.TechnicianID,
		ScheduledAt:     req.ScheduledAt,
		Description:     req.Description,
		Status:          transport.StatusPlanned,
		CostCents:       costCents,
		WarrantyCovered: warrantyCovered,
		Billable:        billable,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, iv); err != nil {
		return nil, err
	}

	s.scheduleReminder(ctx, iv)

	s.bus.Publish(ctx, events.InterventionCreated{
		BaseEvent:       events.NewBaseEvent(),
		InterventionID:  iv.ID,
		ComplaintID:     iv.ComplaintID,
		TechnicianID:    iv.TechnicianID,
		ScheduledAt:     iv.ScheduledAt,
		Description:     iv.Description,
		Billable:        iv.Billable,
		WarrantyCovered: iv.WarrantyCovered,
		CostCents:       iv.CostCents,
	})

	return toResponse(iv), nil
}

// validateReferences resolves the complaint at the collaborator. A missing
// complaint is a validation error; an unreachable collaborator stays
// Unavailable so the caller can retry. The customer behind the complaint is
// checked best-effort: a failure is logged and never blocks creation.
func (s *Service) validateReferences(ctx context.Context, complaintID uuid.UUID) (*complaints.Complaint, error) {
	complaint, err := s.complaints.GetComplaint(ctx, complaintID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Validation("unknown complaint reference")
		}
		return nil, err
	}

	if _, err := s.customers.GetCustomer(ctx, complaint.CustomerID); err != nil {
		s.log.Warn("customer reference check failed, continuing",
			"complaintId", complaintID,
			"customerId", complaint.CustomerID,
			"error", err.Error(),
		)
	}

	return complaint, nil
}

// decideBilling freezes the billing decision at creation time. Under
// warranty the intervention is free; otherwise it is billable at the
// requested cost, falling back to the configured default. A warranty lookup
// failure aborts creation rather than guessing.
func (s *Service) decideBilling(ctx context.Context, articleID uuid.UUID, requestedCents *int64) (costCents int64, billable, warrantyCovered bool, err error) {
	underWarranty, err := s.warranty.IsUnderWarranty(ctx, articleID)
	if err != nil {
		return 0, false, false, err
	}

	if underWarranty {
		return 0, false, true, nil
	}

	costCents = s.cfg.GetDefaultInterventionCostCents()
	if requestedCents != nil {
		costCents = *requestedCents
	}

	return costCents, costCents > 0, false, nil
}

func (s *Service) checkTechnician(ctx context.Context, id uuid.UUID) error {
	assignable, err := s.technicians.IsAssignable(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Validation("unknown technician reference")
		}
		return err
	}
	if !assignable {
		return apperr.Validation("technician is not available")
	}
	return nil
}

// GetByID returns a single intervention
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.InterventionResponse, error) {
	iv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(iv), nil
}

// List returns interventions matching the filters
func (s *Service) List(ctx context.Context, req transport.ListInterventionsRequest) ([]transport.InterventionResponse, error) {
	if req.FreeOnly && req.BillableOnly {
		return nil, apperr.Validation("freeOnly and billableOnly are mutually exclusive")
	}

	interventions, err := s.repo.List(ctx, repository.ListFilters{
		TechnicianID:  req.TechnicianID,
		Status:        req.Status,
		ScheduledFrom: req.ScheduledFrom,
		ScheduledTo:   req.ScheduledTo,
		FreeOnly:      req.FreeOnly,
		BillableOnly:  req.BillableOnly,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]transport.InterventionResponse, 0, len(interventions))
	for i := range interventions {
		responses = append(responses, *toResponse(&interventions[i]))
	}
	return responses, nil
}

// ChangeStatus applies a lifecycle transition. Completing a billable,
// uninvoiced intervention creates its invoice in the same transaction, so an
// invoice failure rejects the transition.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req transport.UpdateStatusRequest) (*transport.StatusChangeResponse, error) {
	iv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(iv.Status, req.Status) {
		return nil, apperr.Conflict("cannot transition from " + iv.Status + " to " + req.Status)
	}

	var performedAt *time.Time
	if req.Status == transport.StatusCompleted {
		at := time.Now()
		if req.PerformedAt != nil {
			at = *req.PerformedAt
		}
		performedAt = &at
	}

	var issued *IssuedInvoice
	if req.Status == transport.StatusCompleted && iv.Billable {
		issued, err = s.completeWithInvoice(ctx, iv, performedAt)
	} else {
		err = s.repo.UpdateStatus(ctx, nil, id, req.Status, performedAt)
	}
	if err != nil {
		return nil, err
	}

	oldStatus := iv.Status
	iv.Status = req.Status
	if performedAt != nil {
		iv.PerformedAt = performedAt
	}

	s.bus.Publish(ctx, events.InterventionStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: iv.ID,
		ComplaintID:    iv.ComplaintID,
		TechnicianID:   iv.TechnicianID,
		OldStatus:      oldStatus,
		NewStatus:      iv.Status,
	})

	resp := &transport.StatusChangeResponse{Intervention: toResponse(iv)}
	if issued != nil {
		resp.InvoiceID = &issued.ID
		s.bus.Publish(ctx, events.InvoiceCreated{
			BaseEvent:      events.NewBaseEvent(),
			InvoiceID:      issued.ID,
			InterventionID: iv.ID,
			ComplaintID:    iv.ComplaintID,
			Number:         issued.Number,
			NetCents:       issued.NetCents,
			TaxCents:       issued.TaxCents,
			GrossCents:     issued.GrossCents,
		})
	}

	return resp, nil
}

// completeWithInvoice writes the completed status and the invoice atomically.
// When a concurrent completion already invoiced the intervention, the unique
// constraint makes the second writer fail with a conflict and the whole
// transition rolls back.
func (s *Service) completeWithInvoice(ctx context.Context, iv *repository.Intervention, performedAt *time.Time) (*IssuedInvoice, error) {
	alreadyInvoiced, err := s.invoices.ExistsForIntervention(ctx, iv.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.repo.UpdateStatus(ctx, tx, iv.ID, transport.StatusCompleted, performedAt); err != nil {
		return nil, err
	}

	var issued *IssuedInvoice
	if !alreadyInvoiced {
		issued, err = s.invoices.IssueForIntervention(ctx, tx, iv.ID, iv.CostCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return issued, nil
}

// Delete removes a cancelled intervention. Invoiced or active interventions
// are kept. The acting agent is recorded in the log.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	iv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if iv.Status != transport.StatusCancelled {
		return apperr.Conflict("only cancelled interventions can be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("intervention deleted", "interventionId", id, "actorId", actorID)
	return nil
}

// ReminderContext returns the data the scheduler worker needs to decide
// whether a due reminder should still go out.
func (s *Service) ReminderContext(ctx context.Context, id uuid.UUID) (*transport.InterventionResponse, error) {
	return s.GetByID(ctx, id)
}

func (s *Service) scheduleReminder(ctx context.Context, iv *repository.Intervention) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.ScheduleInterventionReminder(ctx, iv.ID, iv.ScheduledAt); err != nil {
		s.log.Warn("failed to schedule intervention reminder",
			"interventionId", iv.ID,
			"error", err.Error(),
		)
	}
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func toResponse(iv *repository.Intervention) *transport.InterventionResponse {
	return &transport.InterventionResponse{
		ID:              iv.ID,
		ComplaintID:     iv.ComplaintID,
		TechnicianID:    iv.TechnicianID,
		ScheduledAt:     iv.ScheduledAt,
		PerformedAt:     iv.PerformedAt,
		Description:     iv.Description,
		Status:          iv.Status,
		CostCents:       iv.CostCents,
		WarrantyCovered: iv.WarrantyCovered,
		Billable:        iv.Billable,
		CreatedAt:       iv.CreatedAt,
		UpdatedAt:       iv.UpdatedAt,
	}
}
