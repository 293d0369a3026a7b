package errors

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrSectionNotFound  = errors.New("section not found")
	ErrUnknownTaskType  = errors.New("unknown task type")
	// ErrParentNotSynced is returned when a child is pushed before its parent.
	ErrParentNotSynced = errors.New("parent task has not been created upstream")
	ErrUnknownJob      = errors.New("unknown job name")
	// ErrJobDeferred means a job went back on the queue because the
	// rate-limit flag is raised.
	ErrJobDeferred = errors.New("job deferred while rate limited")
)

// ValidationError collects per-field messages found while validating a
// record before it is saved.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for field, keeping the first one.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when it has errors, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
