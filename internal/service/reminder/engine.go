// Package reminder fires due-date reminders and daily overdue summaries.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/phrazzld/taskpulse/internal/redact"
	"github.com/phrazzld/taskpulse/internal/store"
	"golang.org/x/sync/errgroup"
)

// DueDateLayout formats due dates in reminder messages.
const DueDateLayout = "January 02, 2006"

// DefaultWorkers bounds concurrent item checks when none is configured.
const DefaultWorkers = 4

// Deps are the collaborators shared by the reminder and overdue engines.
type Deps struct {
	Tasks     store.TaskStore
	Projects  store.ProjectStore
	Schedules store.ScheduleStore
	Notifier  *notify.Notifier
	Location  *time.Location
	Workers   int
	Logger    *slog.Logger
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (d *Deps) normalize() {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Workers <= 0 {
		d.Workers = DefaultWorkers
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// Engine fires threshold reminders for tasks and projects approaching their
// due date.
type Engine struct {
	deps         Deps
	stakeholders notify.StakeholderResolver
	logger       *slog.Logger
}

// NewEngine returns a reminder engine.
func NewEngine(deps Deps) *Engine {
	deps.normalize()
	return &Engine{deps: deps, logger: deps.Logger.With(slog.String("component", "reminder_engine"))}
}

// CheckTask fires any reminder whose offset matches the days left until the
// task is due. Completed, undated and past-due tasks are a no-op.
func (e *Engine) CheckTask(ctx context.Context, task *domain.Task) (Report, error) {
	if !task.Active() {
		return Report{}, nil
	}
	report := Report{Checked: 1}

	days := domain.DaysBetween(e.deps.Now(), *task.DueDate, e.deps.Location)
	if days < domain.MinReminderOffset {
		return report, nil
	}

	schedule, err := e.schedule(ctx, task.ID)
	if err != nil {
		return report, err
	}
	if !schedule.Matches(days) {
		return report, nil
	}

	taskID := task.ID
	for _, userID := range e.stakeholders.ForTask(task) {
		n := &domain.Notification{
			UserID:   userID,
			TaskID:   &taskID,
			Type:     domain.ReminderType(days),
			Title:    dueTitle("Task", days),
			Message:  fmt.Sprintf("Task '%s' is due on %s", task.Title, task.DueDate.In(e.deps.Location).Format(DueDateLayout)),
			Priority: reminderPriority(days),
		}
		report.Add(e.send(ctx, n))
	}
	return report, nil
}

// CheckProject applies the default schedule to a project. Every stakeholder
// of the project is notified.
func (e *Engine) CheckProject(ctx context.Context, project *domain.Project) (Report, error) {
	if !project.Active() {
		return Report{}, nil
	}
	report := Report{Checked: 1}

	days := domain.DaysBetween(e.deps.Now(), *project.DueDate, e.deps.Location)
	schedule := domain.DefaultSchedule(project.ID)
	if days < domain.MinReminderOffset || !schedule.Matches(days) {
		return report, nil
	}

	projectID := project.ID
	for _, userID := range e.stakeholders.ForProject(project) {
		n := &domain.Notification{
			UserID:    userID,
			ProjectID: &projectID,
			Type:      domain.ProjectReminderType(days),
			Title:     dueTitle("Project", days),
			Message:   fmt.Sprintf("Project '%s' is due on %s", project.Name, project.DueDate.In(e.deps.Location).Format(DueDateLayout)),
			Priority:  reminderPriority(days),
		}
		report.Add(e.send(ctx, n))
	}
	return report, nil
}

// CheckTasks checks every task on a bounded worker pool. A task that fails
// is logged and counted; the rest of the batch continues.
func (e *Engine) CheckTasks(ctx context.Context, tasks []*domain.Task) Report {
	var t tally
	var g errgroup.Group
	g.SetLimit(e.deps.Workers)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			r, err := e.CheckTask(ctx, task)
			if err != nil {
				e.logger.Error("task reminder check failed",
					slog.String("task_id", task.ID.String()),
					slog.String("error", redact.Error(err)))
				r.Failed++
			}
			t.add(r)
			return nil
		})
	}
	_ = g.Wait()
	return t.report()
}

// CheckProjects is CheckTasks for projects.
func (e *Engine) CheckProjects(ctx context.Context, projects []*domain.Project) Report {
	var t tally
	var g errgroup.Group
	g.SetLimit(e.deps.Workers)
	for _, project := range projects {
		project := project
		g.Go(func() error {
			r, err := e.CheckProject(ctx, project)
			if err != nil {
				e.logger.Error("project reminder check failed",
					slog.String("project_id", project.ID.String()),
					slog.String("error", redact.Error(err)))
				r.Failed++
			}
			t.add(r)
			return nil
		})
	}
	_ = g.Wait()
	return t.report()
}

// CheckAll checks every active task and then every active project.
func (e *Engine) CheckAll(ctx context.Context) (Report, error) {
	tasks, err := e.deps.Tasks.ListActive(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list active tasks: %w", err)
	}
	report := e.CheckTasks(ctx, tasks)

	projects, err := e.deps.Projects.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active projects: %w", err)
	}
	report.Add(e.CheckProjects(ctx, projects))

	e.logger.Info("reminder check finished",
		slog.Int("checked", report.Checked),
		slog.Int("sent", report.Sent),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed))
	return report, nil
}

func (e *Engine) schedule(ctx context.Context, taskID uuid.UUID) (*domain.ReminderSchedule, error) {
	s, err := e.deps.Schedules.Get(ctx, taskID)
	if errors.Is(err, store.ErrScheduleNotFound) {
		return domain.DefaultSchedule(taskID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load reminder schedule: %w", err)
	}
	return s, nil
}

func (e *Engine) send(ctx context.Context, n *domain.Notification) Report {
	return sendCounted(ctx, e.deps.Notifier, e.logger, n, notify.Lookback(notify.ReminderWindow))
}

// sendCounted sends one notification and converts the outcome to a Report.
// A guard or preference error skips the recipient.
func sendCounted(ctx context.Context, notifier *notify.Notifier, logger *slog.Logger, n *domain.Notification, w notify.Window) Report {
	outcome, _, err := notifier.Send(ctx, n, w)
	switch {
	case err != nil:
		logger.Error("notification skipped after error",
			slog.String("user_id", n.UserID.String()),
			slog.String("type", string(n.Type)),
			slog.String("error", redact.Error(err)))
		return Report{Failed: 1}
	case outcome == notify.OutcomeDuplicate:
		return Report{Skipped: 1}
	default:
		return Report{Sent: 1}
	}
}

func dueTitle(noun string, days int) string {
	if days == 1 {
		return fmt.Sprintf("%s Due in 1 Day", noun)
	}
	return fmt.Sprintf("%s Due in %d Days", noun, days)
}

func reminderPriority(days int) domain.Priority {
	if days == 1 {
		return domain.PriorityHigh
	}
	return domain.PriorityMedium
}
