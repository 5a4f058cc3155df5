package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
)

// TaskStore defines persistence for tasks.
type TaskStore interface {
	// Create saves a new task including its collaborators.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task with its collaborators.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListActive returns every task with a due date and a non-terminal status.
	ListActive(ctx context.Context) ([]*domain.Task, error)

	// ListOverdue returns non-terminal tasks whose due date is before cutoff.
	ListOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)

	// ListSubtasks returns the direct children of parentID.
	ListSubtasks(ctx context.Context, parentID uuid.UUID) ([]*domain.Task, error)

	// MarkCompleted moves the task to completed. It reports true only when
	// this call performed the transition, so concurrent completions of the
	// same task see exactly one true.
	// Returns ErrTaskNotFound if the task does not exist.
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// UpdateDueDate replaces the due date. nil clears it.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateDueDate(ctx context.Context, id uuid.UUID, due *time.Time, at time.Time) error

	// ClearRecurrence removes the recurrence rule.
	// Returns ErrTaskNotFound if the task does not exist.
	ClearRecurrence(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ProjectStore defines read access to projects.
type ProjectStore interface {
	// GetByID returns ErrProjectNotFound if the project does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// ListActive returns every project with a due date and a non-terminal status.
	ListActive(ctx context.Context) ([]*domain.Project, error)

	// ListOverdue returns non-terminal projects whose due date is before cutoff.
	ListOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Project, error)
}

// ScheduleStore persists reminder schedules, at most one per task.
type ScheduleStore interface {
	// Get returns ErrScheduleNotFound when the task has no stored schedule.
	Get(ctx context.Context, taskID uuid.UUID) (*domain.ReminderSchedule, error)

	// Upsert stores the schedule, replacing any existing one for the task.
	Upsert(ctx context.Context, schedule *domain.ReminderSchedule) error
}

// PreferenceStore persists per-user, per-task channel toggles.
type PreferenceStore interface {
	// Get returns ErrPreferenceNotFound when no record exists.
	Get(ctx context.Context, userID, taskID uuid.UUID) (*domain.NotificationPreference, error)

	// ListForTask returns every stored preference for the task.
	ListForTask(ctx context.Context, taskID uuid.UUID) ([]domain.NotificationPreference, error)

	// Upsert stores the preference, replacing any existing one for the key.
	Upsert(ctx context.Context, pref domain.NotificationPreference) error
}

// UserStore is the user directory.
type UserStore interface {
	// LookupByName matches a display name case-insensitively and exactly.
	// Returns ErrUserNotFound when no user has that name.
	LookupByName(ctx context.Context, name string) (uuid.UUID, error)

	// GetEmail returns ErrUserNotFound for unknown users and an empty
	// string for users without an address.
	GetEmail(ctx context.Context, userID uuid.UUID) (string, error)
}
