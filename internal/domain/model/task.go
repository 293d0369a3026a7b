package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// TaskKind separates parent rows from their children in the tasks table.
type TaskKind string

const (
	TaskKindParent TaskKind = "parent"
	TaskKindChild  TaskKind = "child"
)

// Task is the local record of a Todoist task. ExternalID is empty until the
// task has been created upstream.
type Task struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind        TaskKind   `gorm:"size:16;not null;default:'child';index" json:"kind"`
	ExternalID  string     `gorm:"column:external_id;size:64;index" json:"external_id"`
	Title       string     `gorm:"size:500;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `gorm:"type:date" json:"due_date,omitempty"`
	ProjectID   string     `gorm:"size:64" json:"project_id"`
	SectionID   string     `gorm:"size:64" json:"section_id"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	Hide        bool       `gorm:"not null;default:false" json:"hide"`
	Tags        StringList `gorm:"type:jsonb;default:'[]'" json:"tags"`
	Priority    int        `gorm:"not null;default:0" json:"priority,omitempty"`

	DependsOnID    *int64 `gorm:"index" json:"depends_on_id,omitempty"`
	TemplateTaskID *int64 `json:"template_task_id,omitempty"`
	ParentTaskID   *int64 `gorm:"index" json:"parent_task_id,omitempty"`

	// Parent rows only.
	TemplateID  *int64            `json:"template_id,omitempty"`
	TaskType    string            `gorm:"size:64" json:"task_type,omitempty"`
	TokenValues datatypes.JSONMap `gorm:"type:jsonb" json:"token_values,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Task) TableName() string {
	return "tasks"
}

// IsSynced reports whether the task exists upstream.
func (t *Task) IsSynced() bool {
	return t.ExternalID != ""
}

func (t *Task) IsParent() bool {
	return t.Kind == TaskKindParent
}

// Tokens returns the parent's token values as strings.
func (t *Task) Tokens() map[string]string {
	out := make(map[string]string, len(t.TokenValues))
	for k, v := range t.TokenValues {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
