// Package technicians provides the technicians domain module.
package technicians

import (
	apphttp "aftersales_backend/internal/http"
	"aftersales_backend/internal/technicians/handler"
	"aftersales_backend/internal/technicians/repository"
	"aftersales_backend/internal/technicians/service"
	"aftersales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the technicians domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new technicians module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "technicians"
}

// RegisterRoutes registers the module's routes under /api/v1/technicians
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	technicians := ctx.Protected.Group("/technicians")
	m.handler.RegisterRoutes(technicians)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
