// Package notification provides event handlers for customer and technician
// notifications. The module subscribes to domain events so the lifecycle and
// invoicing modules never touch email providers or templates, and a delivery
// problem can never reach them.
package notification

import (
	"context"

	"aftersales_backend/internal/clients/complaints"
	"aftersales_backend/internal/clients/customers"
	"aftersales_backend/internal/email"
	"aftersales_backend/internal/events"
	"aftersales_backend/platform/config"
	"aftersales_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	dateLayout = "02/01/2006 15:04"

	// maxConcurrentSends bounds the per-event fan-out.
	maxConcurrentSends = 4
)

// ComplaintReader resolves complaints at the complaint collaborator.
type ComplaintReader interface {
	GetComplaint(ctx context.Context, id uuid.UUID) (*complaints.Complaint, error)
}

// CustomerReader resolves customers at the customer collaborator.
type CustomerReader interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*customers.Customer, error)
}

// TechnicianContactReader resolves technician contact details locally.
type TechnicianContactReader interface {
	Contact(ctx context.Context, id uuid.UUID) (name, email string, err error)
}

// recipient is a resolved notification target.
type recipient struct {
	Name  string
	Email string
}

// Module handles all notification event subscriptions.
type Module struct {
	sender      email.Sender
	complaints  ComplaintReader
	customers   CustomerReader
	technicians TechnicianContactReader
	appBaseURL  string
	log         *logger.Logger
}

// NewModule creates the notification module.
func NewModule(
	sender email.Sender,
	complaintReader ComplaintReader,
	customerReader CustomerReader,
	technicians TechnicianContactReader,
	cfg config.NotificationConfig,
	log *logger.Logger,
) *Module {
	return &Module{
		sender:      sender,
		complaints:  complaintReader,
		customers:   customerReader,
		technicians: technicians,
		appBaseURL:  cfg.GetAppBaseURL(),
		log:         log,
	}
}

// RegisterHandlers subscribes the module to the domain events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.InterventionCreated{}.EventName(), m)
	bus.Subscribe(events.InterventionStatusChanged{}.EventName(), m)
	bus.Subscribe(events.InterventionReminderDue{}.EventName(), m)
	bus.Subscribe(events.InvoiceCreated{}.EventName(), m)
	bus.Subscribe(events.InvoicePaid{}.EventName(), m)
}

// Handle dispatches a domain event to its notification flow. Delivery is
// best-effort and at-most-once: every failure is logged and swallowed.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.InterventionCreated:
		m.handleInterventionCreated(ctx, e)
	case events.InterventionStatusChanged:
		m.handleInterventionStatusChanged(ctx, e)
	case events.InterventionReminderDue:
		m.handleInterventionReminderDue(ctx, e)
	case events.InvoiceCreated:
		m.handleInvoiceCreated(ctx, e)
	case events.InvoicePaid:
		m.handleInvoicePaid(ctx, e)
	}
	return nil
}

func (m *Module) handleInterventionCreated(ctx context.Context, e events.InterventionCreated) {
	scheduled := e.ScheduledAt.Format(dateLayout)

	g := m.group(ctx)
	if customer, ok := m.resolveCustomer(ctx, e.EventName(), e.ComplaintID); ok {
		g.Go(func() error {
			m.send(e.EventName(), customer.Email, m.sender.SendInterventionScheduledEmail(ctx, customer.Email, customer.Name, scheduled, e.Description))
			return nil
		})
	}
	if tech, ok := m.resolveTechnician(ctx, e.EventName(), e.TechnicianID); ok {
		g.Go(func() error {
			m.send(e.EventName(), tech.Email, m.sender.SendInterventionReminderEmail(ctx, tech.Email, tech.Name, scheduled, e.Description))
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Module) handleInterventionStatusChanged(ctx context.Context, e events.InterventionStatusChanged) {
	customer, ok := m.resolveCustomer(ctx, e.EventName(), e.ComplaintID)
	if !ok {
		return
	}
	detail := "Statut précédent : " + e.OldStatus
	m.send(e.EventName(), customer.Email,
		m.sender.SendInterventionStatusEmail(ctx, customer.Email, customer.Name, detail, e.NewStatus))
}

func (m *Module) handleInterventionReminderDue(ctx context.Context, e events.InterventionReminderDue) {
	scheduled := e.ScheduledAt.Format(dateLayout)

	g := m.group(ctx)
	if customer, ok := m.resolveCustomer(ctx, e.EventName(), e.ComplaintID); ok {
		g.Go(func() error {
			m.send(e.EventName(), customer.Email, m.sender.SendInterventionReminderEmail(ctx, customer.Email, customer.Name, scheduled, e.Description))
			return nil
		})
	}
	if tech, ok := m.resolveTechnician(ctx, e.EventName(), e.TechnicianID); ok {
		g.Go(func() error {
			m.send(e.EventName(), tech.Email, m.sender.SendInterventionReminderEmail(ctx, tech.Email, tech.Name, scheduled, e.Description))
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Module) handleInvoiceCreated(ctx context.Context, e events.InvoiceCreated) {
	customer, ok := m.resolveCustomer(ctx, e.EventName(), e.ComplaintID)
	if !ok {
		return
	}

	paymentURL := m.appBaseURL + "/invoices/" + e.InvoiceID.String() + "/pay"
	m.send(e.EventName(), customer.Email,
		m.sender.SendInvoiceIssuedEmail(ctx, customer.Email, customer.Name, e.Number, e.GrossCents, paymentURL))
}

func (m *Module) handleInvoicePaid(ctx context.Context, e events.InvoicePaid) {
	customer, ok := m.resolveCustomer(ctx, e.EventName(), e.ComplaintID)
	if !ok {
		return
	}
	m.send(e.EventName(), customer.Email,
		m.sender.SendPaymentReceiptEmail(ctx, customer.Email, customer.Name, e.Number, e.GrossCents, e.PaymentDate.Format("02/01/2006")))
}

// resolveCustomer walks complaint to customer at the collaborators. Any hop
// failure is logged and drops the recipient.
func (m *Module) resolveCustomer(ctx context.Context, event string, complaintID uuid.UUID) (recipient, bool) {
	complaint, err := m.complaints.GetComplaint(ctx, complaintID)
	if err != nil {
		m.log.NotificationFailure(event, "complaint:"+complaintID.String(), err)
		return recipient{}, false
	}

	customer, err := m.customers.GetCustomer(ctx, complaint.CustomerID)
	if err != nil {
		m.log.NotificationFailure(event, "customer:"+complaint.CustomerID.String(), err)
		return recipient{}, false
	}
	if customer.Email == "" {
		m.log.NotificationFailure(event, "customer:"+complaint.CustomerID.String(), errNoEmail)
		return recipient{}, false
	}

	return recipient{Name: customer.Name, Email: customer.Email}, true
}

func (m *Module) resolveTechnician(ctx context.Context, event string, technicianID uuid.UUID) (recipient, bool) {
	name, address, err := m.technicians.Contact(ctx, technicianID)
	if err != nil {
		m.log.NotificationFailure(event, "technician:"+technicianID.String(), err)
		return recipient{}, false
	}
	return recipient{Name: name, Email: address}, true
}

func (m *Module) send(event, address string, err error) {
	if err != nil {
		m.log.NotificationFailure(event, address, err)
	}
}

func (m *Module) group(ctx context.Context) *errgroup.Group {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)
	return g
}

// Compile-time check that Module implements events.Handler
var _ events.Handler = (*Module)(nil)

var errNoEmail = noEmailError{}

type noEmailError struct{}

func (noEmailError) Error() string { return "customer has no email address" }
