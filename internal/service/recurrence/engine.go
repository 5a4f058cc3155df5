// Package recurrence regenerates recurring tasks, with their subtask trees,
// when a task is completed.
package recurrence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/redact"
	"github.com/phrazzld/taskpulse/internal/service/reminder"
	"github.com/phrazzld/taskpulse/internal/store"
)

// ErrParentNotCloned marks a subtask skipped because its parent failed to
// clone.
var ErrParentNotCloned = errors.New("parent subtask was not cloned")

// ErrSubtaskCycle is recorded when the subtask tree loops back on itself.
var ErrSubtaskCycle = errors.New("subtask tree contains a cycle")

// ReminderChecker runs the reminder rules against a single task.
type ReminderChecker interface {
	CheckTask(ctx context.Context, task *domain.Task) (reminder.Report, error)
}

// Failure is one subtask that could not be cloned.
type Failure struct {
	TaskID uuid.UUID `json:"task_id"`
	Err    error     `json:"-"`
}

// Outcome describes a regeneration: the new parent, every new subtask in
// walk order and the subtasks that failed.
type Outcome struct {
	Parent   *domain.Task   `json:"parent"`
	Subtasks []*domain.Task `json:"subtasks"`
	Failures []Failure      `json:"failures"`
}

// Cloned counts the tasks created, parent included.
func (o *Outcome) Cloned() int {
	if o == nil || o.Parent == nil {
		return 0
	}
	return 1 + len(o.Subtasks)
}

// Engine clones recurring tasks.
type Engine struct {
	tx        store.Transactor
	tasks     store.TaskStore
	reminders ReminderChecker
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewEngine returns a recurrence engine. tasks is used for reads outside a
// transaction; every write goes through tx.
func NewEngine(tx store.Transactor, tasks store.TaskStore, reminders ReminderChecker, loc *time.Location, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tx:        tx,
		tasks:     tasks,
		reminders: reminders,
		loc:       loc,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "recurrence_engine")),
	}
}

// OnTaskCompleted creates the next instance of a recurring task. It returns
// nil without error for non-recurring tasks. A failure to create the new
// parent is returned and leaves nothing behind; subtask failures are
// recorded in the outcome.
func (e *Engine) OnTaskCompleted(ctx context.Context, task *domain.Task) (*Outcome, error) {
	if !task.IsRecurring() {
		return nil, nil
	}

	now := e.now()
	base := domain.DateOf(now, e.loc)
	if task.DueDate != nil {
		base = *task.DueDate
	}
	next, err := domain.AdvanceDate(base, task.RecurrenceRule)
	if err != nil {
		return nil, fmt.Errorf("advance due date of task %s: %w", task.ID, err)
	}

	// A recurring subtask regenerates as a sibling under the same parent.
	var parentID *uuid.UUID
	if task.ParentTaskID != nil {
		id := *task.ParentTaskID
		parentID = &id
	}
	parent := task.CloneForRecurrence(&next, parentID, now)
	if err := e.cloneInTx(ctx, task.ID, parent); err != nil {
		return nil, fmt.Errorf("create next instance of task %s: %w", task.ID, err)
	}

	outcome := &Outcome{Parent: parent}
	visited := map[uuid.UUID]bool{task.ID: true}
	e.walk(ctx, task.ID, parent.ID, base, next, now, visited, outcome)

	e.logger.Info("recurring task regenerated",
		slog.String("task_id", task.ID.String()),
		slog.String("new_task_id", parent.ID.String()),
		slog.Time("next_due", next),
		slog.Int("subtasks", len(outcome.Subtasks)),
		slog.Int("failures", len(outcome.Failures)))

	e.checkReminders(ctx, outcome)
	return outcome, nil
}

// walk clones the children of originalID under newParentID, depth first.
func (e *Engine) walk(
	ctx context.Context,
	originalID, newParentID uuid.UUID,
	base, next, now time.Time,
	visited map[uuid.UUID]bool,
	outcome *Outcome,
) {
	children, err := e.tasks.ListSubtasks(ctx, originalID)
	if err != nil {
		e.logger.Error("failed to list subtasks",
			slog.String("task_id", originalID.String()),
			slog.String("error", redact.Error(err)))
		outcome.Failures = append(outcome.Failures, Failure{TaskID: originalID, Err: fmt.Errorf("list subtasks: %w", err)})
		return
	}

	for _, child := range children {
		if visited[child.ID] {
			outcome.Failures = append(outcome.Failures, Failure{TaskID: child.ID, Err: ErrSubtaskCycle})
			continue
		}
		visited[child.ID] = true

		parentID := newParentID
		clone := child.CloneForRecurrence(e.shiftDue(child.DueDate, base, next), &parentID, now)
		if err := e.cloneInTx(ctx, child.ID, clone); err != nil {
			e.logger.Error("failed to clone subtask",
				slog.String("task_id", child.ID.String()),
				slog.String("error", redact.Error(err)))
			outcome.Failures = append(outcome.Failures, Failure{TaskID: child.ID, Err: err})
			e.failDescendants(ctx, child.ID, visited, outcome)
			continue
		}
		outcome.Subtasks = append(outcome.Subtasks, clone)
		e.walk(ctx, child.ID, clone.ID, base, next, now, visited, outcome)
	}
}

// failDescendants records every descendant of originalID as not cloned.
func (e *Engine) failDescendants(ctx context.Context, originalID uuid.UUID, visited map[uuid.UUID]bool, outcome *Outcome) {
	children, err := e.tasks.ListSubtasks(ctx, originalID)
	if err != nil {
		return
	}
	for _, child := range children {
		if visited[child.ID] {
			continue
		}
		visited[child.ID] = true
		outcome.Failures = append(outcome.Failures, Failure{TaskID: child.ID, Err: ErrParentNotCloned})
		e.failDescendants(ctx, child.ID, visited, outcome)
	}
}

// shiftDue keeps a subtask's calendar-day offset from the root's old due
// date and its own time of day. An undated subtask stays undated.
func (e *Engine) shiftDue(due *time.Time, base, next time.Time) *time.Time {
	if due == nil {
		return nil
	}
	offset := domain.DaysBetween(base, *due, e.loc)
	day := domain.DateOf(next, e.loc).AddDate(0, 0, offset)
	local := due.In(e.loc)
	shifted := time.Date(day.Year(), day.Month(), day.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), e.loc).In(due.Location())
	return &shifted
}

// cloneInTx stores clone together with copies of the original's schedule
// and preferences.
func (e *Engine) cloneInTx(ctx context.Context, originalID uuid.UUID, clone *domain.Task) error {
	return e.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Tasks().Create(ctx, clone); err != nil {
			return fmt.Errorf("create task: %w", err)
		}

		schedule, err := tx.Schedules().Get(ctx, originalID)
		switch {
		case errors.Is(err, store.ErrScheduleNotFound):
		case err != nil:
			return fmt.Errorf("load reminder schedule: %w", err)
		default:
			if err := tx.Schedules().Upsert(ctx, schedule.ForTask(clone.ID)); err != nil {
				return fmt.Errorf("copy reminder schedule: %w", err)
			}
		}

		prefs, err := tx.Preferences().ListForTask(ctx, originalID)
		if err != nil {
			return fmt.Errorf("load preferences: %w", err)
		}
		for _, p := range prefs {
			if err := tx.Preferences().Upsert(ctx, p.ForTask(clone.ID)); err != nil {
				return fmt.Errorf("copy preference: %w", err)
			}
		}
		return nil
	})
}

func (e *Engine) checkReminders(ctx context.Context, outcome *Outcome) {
	if e.reminders == nil {
		return
	}
	tasks := append([]*domain.Task{outcome.Parent}, outcome.Subtasks...)
	for _, t := range tasks {
		if _, err := e.reminders.CheckTask(ctx, t); err != nil {
			e.logger.Warn("reminder check for new instance failed",
				slog.String("task_id", t.ID.String()),
				slog.String("error", redact.Error(err)))
		}
	}
}
