package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aftersales_backend/internal/clients/catalog"
	"aftersales_backend/internal/clients/complaints"
	"aftersales_backend/internal/clients/customers"
	"aftersales_backend/internal/email"
	"aftersales_backend/internal/events"
	apphttp "aftersales_backend/internal/http"
	"aftersales_backend/internal/http/router"
	"aftersales_backend/internal/interventions"
	interventionsvc "aftersales_backend/internal/interventions/service"
	"aftersales_backend/internal/invoices"
	"aftersales_backend/internal/notification"
	"aftersales_backend/internal/payments"
	"aftersales_backend/internal/scheduler"
	"aftersales_backend/internal/technicians"
	"aftersales_backend/migrations"
	"aftersales_backend/platform/config"
	"aftersales_backend/platform/db"
	"aftersales_backend/platform/logger"
	"aftersales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Collaborator clients for the complaint, customer and catalog services
	complaintClient := complaints.New(cfg, log)
	customerClient := customers.New(cfg, log)
	catalogClient := catalog.New(cfg, log)

	// Payment processor gateway (disabled without credentials)
	gateway := payments.NewGateway(cfg)
	if cfg.IsStripeEnabled() {
		log.Info("payment processor gateway initialized")
	} else {
		log.Warn("STRIPE_SECRET_KEY not configured; processor checkout disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	techniciansModule := technicians.NewModule(pool, val)

	invoicesModule := invoices.NewModule(pool, val, gateway, complaintClient, customerClient, eventBus, cfg, cfg, log)

	interventionsModule := interventions.NewModule(
		pool, val,
		complaintClient, customerClient, catalogClient,
		techniciansModule.Service,
		invoicesModule.Service,
		reminderScheduler,
		eventBus, cfg, log,
	)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.NewModule(sender, complaintClient, customerClient, techniciansModule.Service, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			techniciansModule,
			interventionsModule,
			invoicesModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (interventionsvc.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; intervention reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
