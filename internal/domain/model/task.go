package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// TaskType discriminates asynchronous work items.
type TaskType string

const (
	TaskWebhook     TaskType = "webhook"
	TaskFulfillment TaskType = "fulfillment"
	TaskStatusCheck TaskType = "status_check"
)

// Task is a queued unit of work.
type Task struct {
	Type       TaskType        `json:"type"`
	Data       json.RawMessage `json:"data,omitempty"`
	Deliveries int             `json:"deliveries,omitempty"`
}

// WebhookTaskData points a webhook task at its audit record.
type WebhookTaskData struct {
	WebhookID uuid.UUID     `json:"webhook_id"`
	Source    WebhookSource `json:"source"`
}

// FulfillmentTaskData asks for one order to be processed.
type FulfillmentTaskData struct {
	OrderID uuid.UUID `json:"order_id"`
}

// NewTask encodes data into a task of the given type.
func NewTask(taskType TaskType, data any) (Task, error) {
	task := Task{Type: taskType}
	if data == nil {
		return task, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Task{}, err
	}
	task.Data = raw
	return task, nil
}
