package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the workflow state of a task or project.
type Status string

// Possible status values
const (
	StatusUnassigned  Status = "unassigned"
	StatusOngoing     Status = "ongoing"
	StatusUnderReview Status = "under_review"
	StatusCompleted   Status = "completed"
)

// InitialStatus is the status a freshly created (or regenerated) task starts in.
const InitialStatus = StatusUnassigned

// IsTerminal reports whether the status ends the item's lifecycle.
// Terminal items never trigger reminders or overdue summaries.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// IsValid reports whether the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusUnassigned, StatusOngoing, StatusUnderReview, StatusCompleted:
		return true
	default:
		return false
	}
}

// Task priorities use a 1..10 scale.
const (
	MinTaskPriority     = 1
	MaxTaskPriority     = 10
	DefaultTaskPriority = 5
)

// Task is a unit of work with an optional due date. A task with a
// ParentTaskID is a subtask of that parent.
type Task struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	DueDate         *time.Time     `json:"due_date,omitempty"`
	Status          Status         `json:"status"`
	OwnerID         uuid.UUID      `json:"owner_id"`
	ProjectID       *uuid.UUID     `json:"project_id,omitempty"`
	CollaboratorIDs []uuid.UUID    `json:"collaborator_ids"`
	ParentTaskID    *uuid.UUID     `json:"parent_task_id,omitempty"`
	RecurrenceRule  RecurrenceRule `json:"recurrence_rule,omitempty"`
	Priority        int            `json:"priority"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewTask creates a new Task owned by ownerID with the initial status and
// default priority. Returns an error if validation fails.
func NewTask(ownerID uuid.UUID, title string, dueDate *time.Time) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		Title:     title,
		DueDate:   dueDate,
		Status:    InitialStatus,
		OwnerID:   ownerID,
		Priority:  DefaultTaskPriority,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks the fields the reminder engine relies on.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: task ID cannot be empty", ErrInvalidID)
	}
	if t.Title == "" {
		return fmt.Errorf("%w: task title", ErrEmptyContent)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if !t.RecurrenceRule.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrenceRule, t.RecurrenceRule)
	}
	if t.Priority < MinTaskPriority || t.Priority > MaxTaskPriority {
		return fmt.Errorf("%w: task priority %d outside %d..%d",
			ErrValidation, t.Priority, MinTaskPriority, MaxTaskPriority)
	}
	return nil
}

// IsSubtask reports whether the task has a parent.
func (t *Task) IsSubtask() bool {
	return t.ParentTaskID != nil
}

// IsRecurring reports whether completing the task spawns a new instance.
func (t *Task) IsRecurring() bool {
	return t.RecurrenceRule != RecurrenceNone
}

// Active reports whether the task can still trigger reminders.
func (t *Task) Active() bool {
	return t.DueDate != nil && !t.Status.IsTerminal()
}

// Stakeholders returns the deduplicated set of users entitled to
// notifications about the task: the owner followed by collaborators, in
// first-seen order. Nil IDs are dropped. Computed on every call.
func (t *Task) Stakeholders() []uuid.UUID {
	return uniqueIDs(append([]uuid.UUID{t.OwnerID}, t.CollaboratorIDs...))
}

// CloneForRecurrence returns a new instance of the task carrying forward its
// metadata with a fresh ID, the initial status and the given due date.
// parentID is the new parent for cloned subtasks and nil for the root.
func (t *Task) CloneForRecurrence(dueDate *time.Time, parentID *uuid.UUID, now time.Time) *Task {
	var projectID *uuid.UUID
	if t.ProjectID != nil {
		id := *t.ProjectID
		projectID = &id
	}

	collaborators := make([]uuid.UUID, len(t.CollaboratorIDs))
	copy(collaborators, t.CollaboratorIDs)

	return &Task{
		ID:              uuid.New(),
		Title:           t.Title,
		Description:     t.Description,
		DueDate:         dueDate,
		Status:          InitialStatus,
		OwnerID:         t.OwnerID,
		ProjectID:       projectID,
		CollaboratorIDs: collaborators,
		ParentTaskID:    parentID,
		RecurrenceRule:  t.RecurrenceRule,
		Priority:        t.Priority,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
}

// uniqueIDs removes nil and repeated IDs, preserving first-seen order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
