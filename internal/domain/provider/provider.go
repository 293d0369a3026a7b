package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// TaskProvider is the external task service tasks are mirrored to.
type TaskProvider interface {
	// CreateTask creates a task and returns its external id.
	CreateTask(ctx context.Context, req *CreateTaskRequest) (string, error)

	// MoveTask moves a task to another section.
	MoveTask(ctx context.Context, externalID, sectionID string) error

	// UpdateTask changes the non-nil fields of req.
	UpdateTask(ctx context.Context, externalID string, req *UpdateTaskRequest) error

	// ListSections returns every section, optionally limited to one project.
	ListSections(ctx context.Context, projectID string) ([]Section, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// CreateTaskRequest is the provider agnostic payload of a new task.
type CreateTaskRequest struct {
	Content     string   `json:"content"`
	Description string   `json:"description,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	SectionID   string   `json:"section_id,omitempty"`
	ParentID    string   `json:"parent_id,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	// DueDate is a calendar date, YYYY-MM-DD.
	DueDate string `json:"due_date,omitempty"`
}

// UpdateTaskRequest carries only the fields to change.
type UpdateTaskRequest struct {
	Content     *string  `json:"content,omitempty"`
	Description *string  `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	DueDate     *string  `json:"due_date,omitempty"`
}

// Section is a section as reported by the provider.
type Section struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Order     int    `json:"section_order"`
}

// APIError is a failed call to the provider. StatusCode is zero when no
// response was received.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth another attempt: 5xx responses,
// 429, connection failures and timeouts. Other 4xx responses are fatal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return true
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return true
		case apiErr.StatusCode != 0:
			return false
		}
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// RetryAfter returns the server requested delay carried by err, or zero.
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
