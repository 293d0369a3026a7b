package model

import (
	"encoding/json"
	"time"
)

// Job names understood by the worker.
const (
	JobCreateTasks = "create_tasks"
	JobMoveTask    = "move_task"
)

// Job is a deferred unit of outbound work.
type Job struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// CreateTasksPayload expands a template.
type CreateTasksPayload struct {
	TemplateID  int64             `json:"template_id"`
	Tokens      map[string]string `json:"tokens"`
	Description string            `json:"description"`
}

// MoveTaskPayload moves a task to a section.
type MoveTaskPayload struct {
	ExternalID string `json:"external_id"`
	SectionID  string `json:"section_id"`
}
