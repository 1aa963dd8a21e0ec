package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskInterventionReminder = "interventions.reminder"

type InterventionReminderPayload struct {
	InterventionID string `json:"interventionId"`
}

func NewInterventionReminderTask(payload InterventionReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInterventionReminder, data), nil
}

func ParseInterventionReminderPayload(task *asynq.Task) (InterventionReminderPayload, error) {
	var payload InterventionReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return InterventionReminderPayload{}, err
	}
	return payload, nil
}
