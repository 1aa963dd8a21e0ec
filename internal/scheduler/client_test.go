package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string                { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool          { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string          { return "default" }
func (c testSchedulerConfig) GetAsynqConcurrency() int           { return 1 }
func (c testSchedulerConfig) GetReminderLeadTime() time.Duration { return 24 * time.Hour }

func TestScheduleInterventionReminder_EnqueuesAtLeadTime(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	interventionID := uuid.New()
	scheduledAt := time.Now().Add(48 * time.Hour)

	if err := client.ScheduleInterventionReminder(context.Background(), interventionID, scheduledAt); err != nil {
		t.Fatalf("failed to schedule reminder: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListScheduledTasks("default")
	if err != nil {
		t.Fatalf("failed to list scheduled tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskInterventionReminder {
		t.Fatalf("expected task type %q, got %q", TaskInterventionReminder, tasks[0].Type)
	}

	var payload InterventionReminderPayload
	if err := json.Unmarshal(tasks[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.InterventionID != interventionID.String() {
		t.Fatalf("expected intervention %s, got %s", interventionID, payload.InterventionID)
	}

	wantRunAt := scheduledAt.Add(-24 * time.Hour)
	if diff := tasks[0].NextProcessAt.Sub(wantRunAt); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected task to run around %v, got %v", wantRunAt, tasks[0].NextProcessAt)
	}
}

func TestNewClient_RequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{redisURL: ""}); err == nil {
		t.Fatal("expected an error without a redis url")
	}
}

func TestReminderPayloadRoundTrip(t *testing.T) {
	task, err := NewInterventionReminderTask(InterventionReminderPayload{InterventionID: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload, err := ParseInterventionReminderPayload(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.InterventionID != "abc" {
		t.Fatalf("expected abc, got %s", payload.InterventionID)
	}
}
