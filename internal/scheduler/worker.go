package scheduler

import (
	"context"
	"fmt"

	"aftersales_backend/internal/events"
	"aftersales_backend/internal/interventions/repository"
	"aftersales_backend/internal/interventions/transport"
	"aftersales_backend/platform/apperr"
	"aftersales_backend/platform/config"
	"aftersales_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   *repository.Repository
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   repository.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskInterventionReminder, w.handleInterventionReminder)

	return w, nil
}

// handleInterventionReminder re-reads the intervention when the task fires.
// An intervention that was cancelled, completed or deleted in the meantime
// makes the reminder a logged no-op.
func (w *Worker) handleInterventionReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseInterventionReminderPayload(task)
	if err != nil {
		return err
	}

	interventionID, err := uuid.Parse(payload.InterventionID)
	if err != nil {
		return err
	}

	iv, err := w.repo.GetByID(ctx, interventionID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			w.log.Info("reminder skipped, intervention gone", "interventionId", interventionID)
			return nil
		}
		return err
	}

	if iv.Status == transport.StatusCancelled || iv.Status == transport.StatusCompleted {
		w.log.Info("reminder skipped", "interventionId", interventionID, "status", iv.Status)
		return nil
	}

	return w.bus.PublishSync(ctx, events.InterventionReminderDue{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: iv.ID,
		ComplaintID:    iv.ComplaintID,
		TechnicianID:   iv.TechnicianID,
		ScheduledAt:    iv.ScheduledAt,
		Description:    iv.Description,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
