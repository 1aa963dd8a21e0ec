// Package interventions provides the intervention lifecycle domain module.
package interventions

import (
	"aftersales_backend/internal/events"
	apphttp "aftersales_backend/internal/http"
	"aftersales_backend/internal/interventions/handler"
	"aftersales_backend/internal/interventions/repository"
	"aftersales_backend/internal/interventions/service"
	"aftersales_backend/platform/config"
	"aftersales_backend/platform/logger"
	"aftersales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the interventions domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new interventions module with all dependencies wired.
// The collaborator clients, the invoice issuer and the reminder scheduler are
// injected as capabilities so the composition root owns the wiring.
func NewModule(
	pool *pgxpool.Pool,
	val *validator.Validator,
	complaintReader service.ComplaintReader,
	customerReader service.CustomerReader,
	warranty service.WarrantyChecker,
	technicians service.TechnicianDirectory,
	invoices service.InvoiceIssuer,
	reminders service.ReminderScheduler,
	bus events.Bus,
	cfg config.InvoicingConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, complaintReader, customerReader, warranty, technicians, invoices, reminders, bus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "interventions"
}

// RegisterRoutes registers the module's routes under /api/v1/interventions
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	interventions := ctx.Protected.Group("/interventions")
	m.handler.RegisterRoutes(interventions)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
