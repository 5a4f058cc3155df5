package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/service/recurrence"
)

// MaxCommentLength bounds the text of a posted comment.
const MaxCommentLength = 10000

// RescheduleRequest defines the payload for PUT /api/tasks/{id}/due-date.
// Exactly one of DueDate and ClearDueDate must be set.
type RescheduleRequest struct {
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

// Validate implements the request validation hook used by ValidateRequest.
func (r RescheduleRequest) Validate() error {
	switch {
	case r.DueDate == nil && !r.ClearDueDate:
		return fmt.Errorf("%w: due_date is required unless clear_due_date is set", domain.ErrValidation)
	case r.DueDate != nil && r.ClearDueDate:
		return fmt.Errorf("%w: due_date and clear_due_date are mutually exclusive", domain.ErrValidation)
	}
	return nil
}

// CommentRequest defines the payload for POST /api/tasks/{id}/comments.
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

// CreateNotificationRequest defines the payload for POST /api/notifications.
// Priority defaults to medium.
type CreateNotificationRequest struct {
	UserID    string     `json:"user_id" validate:"required,uuid"`
	TaskID    *uuid.UUID `json:"task_id"`
	ProjectID *uuid.UUID `json:"project_id"`
	Type      string     `json:"type" validate:"required,max=64"`
	Title     string     `json:"title" validate:"required,max=200"`
	Message   string     `json:"message" validate:"max=2000"`
	Priority  string     `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// notification builds the domain value. It must only be called after
// validation, which guarantees a parseable user ID.
func (r CreateNotificationRequest) notification() *domain.Notification {
	priority := domain.PriorityMedium
	if r.Priority != "" {
		priority = domain.Priority(r.Priority)
	}
	return &domain.Notification{
		UserID:    uuid.MustParse(r.UserID),
		TaskID:    r.TaskID,
		ProjectID: r.ProjectID,
		Type:      domain.NotificationType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Priority:  priority,
	}
}

// CloneFailure is one subtask that was not regenerated.
type CloneFailure struct {
	TaskID uuid.UUID `json:"task_id"`
	Error  string    `json:"error"`
}

// CompleteTaskResponse describes a completion. Next is nil for one-off tasks.
type CompleteTaskResponse struct {
	TaskID   uuid.UUID      `json:"task_id"`
	Next     *domain.Task   `json:"next,omitempty"`
	Subtasks []*domain.Task `json:"subtasks"`
	Failures []CloneFailure `json:"failures"`
}

// MarkAllReadResponse reports how many notifications changed.
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

func newCompleteTaskResponse(taskID uuid.UUID, outcome *recurrence.Outcome) CompleteTaskResponse {
	resp := CompleteTaskResponse{
		TaskID:   taskID,
		Subtasks: []*domain.Task{},
		Failures: []CloneFailure{},
	}
	if outcome == nil {
		return resp
	}
	resp.Next = outcome.Parent
	if outcome.Subtasks != nil {
		resp.Subtasks = outcome.Subtasks
	}
	for _, f := range outcome.Failures {
		msg := "clone failed"
		switch {
		case errors.Is(f.Err, recurrence.ErrParentNotCloned):
			msg = recurrence.ErrParentNotCloned.Error()
		case errors.Is(f.Err, recurrence.ErrSubtaskCycle):
			msg = recurrence.ErrSubtaskCycle.Error()
		}
		resp.Failures = append(resp.Failures, CloneFailure{TaskID: f.TaskID, Error: msg})
	}
	return resp
}
