// Package invoices provides the invoicing domain module.
package invoices

import (
	"aftersales_backend/internal/events"
	apphttp "aftersales_backend/internal/http"
	"aftersales_backend/internal/invoices/handler"
	"aftersales_backend/internal/invoices/repository"
	"aftersales_backend/internal/invoices/service"
	"aftersales_backend/internal/payments"
	"aftersales_backend/platform/config"
	"aftersales_backend/platform/logger"
	"aftersales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the invoices domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new invoices module with all dependencies wired
func NewModule(
	pool *pgxpool.Pool,
	val *validator.Validator,
	gateway payments.Gateway,
	complaintReader service.ComplaintReader,
	customerReader service.CustomerReader,
	bus events.Bus,
	cfg config.InvoicingConfig,
	notifCfg config.NotificationConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, gateway, complaintReader, customerReader, bus, cfg, notifCfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "invoices"
}

// RegisterRoutes registers the module's routes under /api/v1/invoices
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	invoices := ctx.Protected.Group("/invoices")
	m.handler.RegisterRoutes(invoices)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
