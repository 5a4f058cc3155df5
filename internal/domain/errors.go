package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidStatus is returned when a task or project status is unknown.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidRecurrenceRule is returned for rules outside the supported set.
	ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")

	// ErrInvalidReminderOffsets is returned when a reminder schedule breaks
	// the offset range or size limits.
	ErrInvalidReminderOffsets = errors.New("invalid reminder offsets")

	// ErrInvalidPriority is returned for notification priorities outside low, medium, high.
	ErrInvalidPriority = errors.New("invalid notification priority")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
