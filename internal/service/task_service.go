package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/redact"
	"github.com/phrazzld/taskpulse/internal/service/mention"
	"github.com/phrazzld/taskpulse/internal/service/recurrence"
	"github.com/phrazzld/taskpulse/internal/service/reminder"
	"github.com/phrazzld/taskpulse/internal/store"
)

// CheckReport breaks a full check down by pass.
type CheckReport struct {
	Reminders       reminder.Report `json:"reminders"`
	OverdueTasks    reminder.Report `json:"overdue_tasks"`
	OverdueProjects reminder.Report `json:"overdue_projects"`
	Total           reminder.Report `json:"total"`
}

// RescheduleResult reports the due date change notices and the reminder
// check that followed.
type RescheduleResult struct {
	Task      *domain.Task    `json:"task"`
	Notices   reminder.Report `json:"notices"`
	Reminders reminder.Report `json:"reminders"`
}

// TaskService exposes the engine operations that act on tasks.
type TaskService interface {
	// CheckTask fires any reminder due for one task.
	CheckTask(ctx context.Context, taskID uuid.UUID) (reminder.Report, error)

	// CheckAllTasks runs the reminder pass, then the overdue summaries.
	CheckAllTasks(ctx context.Context) (CheckReport, error)

	// CompleteTask completes the task on behalf of actorID and regenerates it
	// when it recurs. The outcome is nil for one-off tasks.
	CompleteTask(ctx context.Context, actorID, taskID uuid.UUID) (*recurrence.Outcome, error)

	// StopRecurrence turns a recurring task into a one-off task.
	StopRecurrence(ctx context.Context, actorID, taskID uuid.UUID) error

	// RescheduleTask replaces the due date, tells the stakeholders and
	// re-evaluates reminders. A nil due date clears it.
	RescheduleTask(ctx context.Context, actorID, taskID uuid.UUID, due *time.Time) (*RescheduleResult, error)

	// CommentOnTask notifies mentioned users and the other stakeholders.
	CommentOnTask(ctx context.Context, comment domain.Comment) (mention.Result, error)
}

// TaskDeps are the collaborators of the task service.
type TaskDeps struct {
	Tasks      store.TaskStore
	Reminders  *reminder.Engine
	Overdue    *reminder.OverdueEngine
	Recurrence *recurrence.Engine
	Mentions   *mention.Notifier
	Notifier   *notify.Notifier
	Location   *time.Location
	Logger     *slog.Logger
}

type taskServiceImpl struct {
	deps         TaskDeps
	stakeholders notify.StakeholderResolver
	now          func() time.Time
	logger       *slog.Logger
}

// NewTaskService creates a TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(deps TaskDeps) (TaskService, error) {
	switch {
	case deps.Tasks == nil:
		return nil, fmt.Errorf("%w: task store cannot be nil", domain.ErrValidation)
	case deps.Reminders == nil:
		return nil, fmt.Errorf("%w: reminder engine cannot be nil", domain.ErrValidation)
	case deps.Overdue == nil:
		return nil, fmt.Errorf("%w: overdue engine cannot be nil", domain.ErrValidation)
	case deps.Recurrence == nil:
		return nil, fmt.Errorf("%w: recurrence engine cannot be nil", domain.ErrValidation)
	case deps.Mentions == nil:
		return nil, fmt.Errorf("%w: mention notifier cannot be nil", domain.ErrValidation)
	case deps.Notifier == nil:
		return nil, fmt.Errorf("%w: notifier cannot be nil", domain.ErrValidation)
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &taskServiceImpl{
		deps:   deps,
		now:    time.Now,
		logger: deps.Logger.With(slog.String("component", "task_service")),
	}, nil
}

func (s *taskServiceImpl) CheckTask(ctx context.Context, taskID uuid.UUID) (reminder.Report, error) {
	task, err := s.deps.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return reminder.Report{}, NewServiceError("CheckTask", "load task", err)
	}
	report, err := s.deps.Reminders.CheckTask(ctx, task)
	if err != nil {
		return report, NewServiceError("CheckTask", "", err)
	}
	return report, nil
}

func (s *taskServiceImpl) CheckAllTasks(ctx context.Context) (CheckReport, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	var out CheckReport
	var err error

	if out.Reminders, err = s.deps.Reminders.CheckAll(ctx); err != nil {
		return out, NewServiceError("CheckAllTasks", "reminder pass", err)
	}
	if out.OverdueTasks, err = s.deps.Overdue.CheckOverdueTasks(ctx); err != nil {
		return out, NewServiceError("CheckAllTasks", "overdue tasks", err)
	}
	if out.OverdueProjects, err = s.deps.Overdue.CheckOverdueProjects(ctx); err != nil {
		return out, NewServiceError("CheckAllTasks", "overdue projects", err)
	}

	out.Total.Add(out.Reminders)
	out.Total.Add(out.OverdueTasks)
	out.Total.Add(out.OverdueProjects)
	log.Info("full check finished",
		slog.Int("sent", out.Total.Sent),
		slog.Int("skipped", out.Total.Skipped),
		slog.Int("failed", out.Total.Failed))
	return out, nil
}

func (s *taskServiceImpl) CompleteTask(ctx context.Context, actorID, taskID uuid.UUID) (*recurrence.Outcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.stakeholderTask(ctx, "CompleteTask", actorID, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	changed, err := s.deps.Tasks.MarkCompleted(ctx, taskID, now)
	if err != nil {
		return nil, NewServiceError("CompleteTask", "mark completed", err)
	}
	if !changed {
		return nil, ErrAlreadyCompleted
	}
	task.Status = domain.StatusCompleted
	task.UpdatedAt = now

	outcome, err := s.deps.Recurrence.OnTaskCompleted(ctx, task)
	if err != nil {
		return nil, NewServiceError("CompleteTask", "regenerate recurring task", err)
	}
	if outcome != nil {
		log.Info("recurring task regenerated",
			slog.String("task_id", taskID.String()),
			slog.String("next_task_id", outcome.Parent.ID.String()),
			slog.Int("cloned", outcome.Cloned()),
			slog.Int("failures", len(outcome.Failures)))
	}
	return outcome, nil
}

func (s *taskServiceImpl) StopRecurrence(ctx context.Context, actorID, taskID uuid.UUID) error {
	task, err := s.stakeholderTask(ctx, "StopRecurrence", actorID, taskID)
	if err != nil {
		return err
	}
	if !task.IsRecurring() {
		return ErrNotRecurring
	}
	if err := s.deps.Tasks.ClearRecurrence(ctx, taskID, s.now().UTC()); err != nil {
		return NewServiceError("StopRecurrence", "clear rule", err)
	}
	return nil
}

func (s *taskServiceImpl) RescheduleTask(
	ctx context.Context,
	actorID, taskID uuid.UUID,
	due *time.Time,
) (*RescheduleResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.stakeholderTask(ctx, "RescheduleTask", actorID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return nil, ErrAlreadyCompleted
	}

	now := s.now().UTC()
	if err := s.deps.Tasks.UpdateDueDate(ctx, taskID, due, now); err != nil {
		return nil, NewServiceError("RescheduleTask", "update due date", err)
	}
	task.DueDate = due
	task.UpdatedAt = now

	result := &RescheduleResult{Task: task}
	message := fmt.Sprintf("Task '%s' no longer has a due date", task.Title)
	if due != nil {
		message = fmt.Sprintf("Task '%s' is now due on %s",
			task.Title, due.In(s.deps.Location).Format(reminder.DueDateLayout))
	}
	recipients := s.stakeholders.ForTask(task)
	for _, userID := range recipients {
		id := task.ID
		n := &domain.Notification{
			UserID:   userID,
			TaskID:   &id,
			Type:     domain.NotificationDueDateChange,
			Title:    "Due date changed",
			Message:  message,
			Priority: domain.PriorityMedium,
		}
		result.Notices.Add(s.notice(ctx, n))
	}
	result.Notices.Checked = len(recipients)

	result.Reminders, err = s.deps.Reminders.CheckTask(ctx, task)
	if err != nil {
		// The new due date is stored; report the failed check without undoing it.
		log.Error("reminder check after reschedule failed",
			slog.String("task_id", taskID.String()),
			slog.String("error", redact.Error(err)))
	}
	return result, nil
}

func (s *taskServiceImpl) CommentOnTask(ctx context.Context, comment domain.Comment) (mention.Result, error) {
	if _, err := s.stakeholderTask(ctx, "CommentOnTask", comment.AuthorID, comment.TaskID); err != nil {
		return mention.Result{}, err
	}
	result, err := s.deps.Mentions.NotifyComment(ctx, comment)
	if err != nil {
		return result, NewServiceError("CommentOnTask", "", err)
	}
	return result, nil
}

// stakeholderTask loads the task and checks that actorID may act on it.
func (s *taskServiceImpl) stakeholderTask(ctx context.Context, op string, actorID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.deps.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, NewServiceError(op, "load task", err)
	}
	if !slices.Contains(s.stakeholders.ForTask(task), actorID) {
		return nil, ErrNotStakeholder
	}
	return task, nil
}

func (s *taskServiceImpl) notice(ctx context.Context, n *domain.Notification) reminder.Report {
	outcome, _, err := s.deps.Notifier.Send(ctx, n, notify.Lookback(notify.CommentWindow))
	switch {
	case err != nil:
		logger.FromContextOrDefault(ctx, s.logger).Error("due date notice skipped after error",
			slog.String("user_id", n.UserID.String()),
			slog.String("error", redact.Error(err)))
		return reminder.Report{Failed: 1}
	case outcome == notify.OutcomeDuplicate:
		return reminder.Report{Skipped: 1}
	default:
		return reminder.Report{Sent: 1}
	}
}
