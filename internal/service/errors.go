package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is; the API layer maps them to status
// codes.
var (
	// ErrNotStakeholder indicates the acting user is neither the owner nor a
	// collaborator of the task. API layer should map this to HTTP 403 Forbidden.
	ErrNotStakeholder = errors.New("user is not a stakeholder of the task")

	// ErrAlreadyCompleted indicates the task was completed before this request.
	// API layer should map this to HTTP 409 Conflict.
	ErrAlreadyCompleted = errors.New("task is already completed")

	// ErrNotRecurring indicates a recurrence operation on a one-off task.
	ErrNotRecurring = errors.New("task does not recur")
)

// ServiceError wraps errors from service operations with context about
// which operation failed.
type ServiceError struct {
	// Operation is the name of the service method that failed.
	Operation string
	// Message provides additional context about the failure.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
