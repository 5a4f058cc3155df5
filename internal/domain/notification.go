package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies what a notification is about. Reminder types
// carry their threshold, e.g. "reminder_3_days".
type NotificationType string

// Fixed notification types.
const (
	NotificationOverdueTasks    NotificationType = "overdue_tasks"
	NotificationOverdueProjects NotificationType = "overdue_projects"
	NotificationMention         NotificationType = "mention"
	NotificationTaskComment     NotificationType = "task_comment"
	NotificationDueDateChange   NotificationType = "due_date_change"
)

// IsReminder reports whether the type is a due-date reminder.
func (t NotificationType) IsReminder() bool {
	return strings.HasPrefix(string(t), "reminder_") || strings.HasPrefix(string(t), "project_reminder_")
}

// Priority ranks how prominently a notification is surfaced.
type Priority string

// Notification priorities
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether the priority is known.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Notification is a message addressed to one user. It is both the in-app
// record and the surface the dedup guard queries. Only IsRead ever changes.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	TaskID    *uuid.UUID       `json:"task_id,omitempty"`
	ProjectID *uuid.UUID       `json:"project_id,omitempty"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Priority  Priority         `json:"priority"`
	CreatedAt time.Time        `json:"created_at"`
	IsRead    bool             `json:"is_read"`
}

// Validate checks a notification before it is dispatched or stored.
func (n *Notification) Validate() error {
	if n.UserID == uuid.Nil {
		return fmt.Errorf("%w: notification user ID cannot be empty", ErrInvalidID)
	}
	if n.Type == "" {
		return fmt.Errorf("%w: notification type", ErrEmptyContent)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: notification title", ErrEmptyContent)
	}
	if !n.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, n.Priority)
	}
	return nil
}

// SubjectID returns the task or project the notification concerns, or
// uuid.Nil for subject-less notifications such as overdue summaries.
func (n *Notification) SubjectID() uuid.UUID {
	switch {
	case n.TaskID != nil:
		return *n.TaskID
	case n.ProjectID != nil:
		return *n.ProjectID
	default:
		return uuid.Nil
	}
}
