// The worker binary runs the asynq task processor for intervention
// reminders. It shares the API's database, event bus and notification
// wiring so a due reminder fans out exactly like any other domain event.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"aftersales_backend/internal/clients/complaints"
	"aftersales_backend/internal/clients/customers"
	"aftersales_backend/internal/email"
	"aftersales_backend/internal/events"
	"aftersales_backend/internal/notification"
	"aftersales_backend/internal/scheduler"
	"aftersales_backend/internal/technicians"
	"aftersales_backend/platform/config"
	"aftersales_backend/platform/db"
	"aftersales_backend/platform/logger"
	"aftersales_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	complaintClient := complaints.New(cfg, log)
	customerClient := customers.New(cfg, log)
	techniciansModule := technicians.NewModule(pool, validator.New())

	notificationModule := notification.NewModule(sender, complaintClient, customerClient, techniciansModule.Service, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, pool, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	log.Info("worker listening for tasks")
	worker.Run(ctx)
	eventBus.Wait()
	log.Info("worker stopped")
}
