package dto

import "time"

// Todoist webhook event names.
const (
	EventItemAdded       = "item:added"
	EventItemUpdated     = "item:updated"
	EventItemDeleted     = "item:deleted"
	EventItemCompleted   = "item:completed"
	EventItemUncompleted = "item:uncompleted"
)

// WebhookPayload is the body Todoist posts for item events.
type WebhookPayload struct {
	EventName string      `json:"event_name" validate:"required,oneof=item:added item:updated item:deleted item:completed item:uncompleted"`
	EventData TodoistItem `json:"event_data" validate:"required"`
	UserID    string      `json:"user_id,omitempty"`
}

// TodoistItem is the task object carried by an item event.
type TodoistItem struct {
	ID          string     `json:"id" validate:"required"`
	ProjectID   string     `json:"project_id,omitempty"`
	Content     string     `json:"content"`
	Description string     `json:"description"`
	Priority    int        `json:"priority" validate:"omitempty,min=1,max=4"`
	ParentID    *string    `json:"parent_id"`
	SectionID   *string    `json:"section_id"`
	Labels      []string   `json:"labels"`
	Checked     bool       `json:"checked"`
	IsDeleted   bool       `json:"is_deleted"`
	Due         *Due       `json:"due"`
	AddedAt     *time.Time `json:"added_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Due is a Todoist due date. Date is YYYY-MM-DD, optionally followed by a time.
type Due struct {
	Date        string `json:"date"`
	String      string `json:"string,omitempty"`
	IsRecurring bool   `json:"is_recurring"`
	Timezone    string `json:"timezone,omitempty"`
}

// DueDate parses the calendar date part of d, nil when absent or malformed.
func (d *Due) DueDate() *time.Time {
	if d == nil || len(d.Date) < len("2006-01-02") {
		return nil
	}
	t, err := time.Parse("2006-01-02", d.Date[:10])
	if err != nil {
		return nil
	}
	return &t
}

// WebhookResult is returned to Todoist.
type WebhookResult struct {
	Status  string   `json:"status"`
	Updated []string `json:"updated,omitempty"`
}
