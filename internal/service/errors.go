package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownTask  = errors.New("unknown task")
	ErrInvalidDelta = errors.New("invalid delta")
)

// FieldError is one user-facing validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rule a submission broke. Nothing has been
// written when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field has at least one violation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// PersistenceError means the store rejected a valid submission. The caller
// may resubmit the same input.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist initiative: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Retryable() bool { return true }

// CounterError means a task selection was not recorded.
type CounterError struct {
	TaskID string
	Err    error
}

func (e *CounterError) Error() string {
	return fmt.Sprintf("failed to record selection of task %s: %v", e.TaskID, e.Err)
}

func (e *CounterError) Unwrap() error { return e.Err }
