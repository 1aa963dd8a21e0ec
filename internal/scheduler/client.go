// Package scheduler enqueues and processes delayed background tasks through
// asynq on Redis.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"aftersales_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client   *asynq.Client
	queue    string
	leadTime time.Duration
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client:   asynq.NewClient(opt),
		queue:    queue,
		leadTime: cfg.GetReminderLeadTime(),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleInterventionReminder enqueues the reminder task to run at the
// configured lead time before the scheduled slot. A slot closer than the
// lead time gets the reminder immediately.
func (c *Client) ScheduleInterventionReminder(ctx context.Context, interventionID uuid.UUID, scheduledAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewInterventionReminderTask(InterventionReminderPayload{
		InterventionID: interventionID.String(),
	})
	if err != nil {
		return err
	}

	runAt := scheduledAt.Add(-c.leadTime)
	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
