package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/phrazzld/taskpulse/internal/service"
	"github.com/phrazzld/taskpulse/internal/service/mention"
	"github.com/phrazzld/taskpulse/internal/service/recurrence"
	"github.com/phrazzld/taskpulse/internal/service/reminder"
	"github.com/phrazzld/taskpulse/internal/store"
	"github.com/phrazzld/taskpulse/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store         *memstore.Store
	tasks         service.TaskService
	notifications service.NotificationService
	seq           int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memstore.New()
	prefs := notify.NewPreferenceResolver(s.Preferences())
	dispatcher := notify.NewDispatcher(time.Second, nil, notify.Stage{notify.NewInAppChannel(s.Notifications())})
	notifier := notify.NewNotifier(
		notify.NewGuard(s.Notifications(), s.Claims(), time.UTC),
		prefs,
		dispatcher,
		nil,
	)
	deps := reminder.Deps{
		Tasks:     s.Tasks(),
		Projects:  s.Projects(),
		Schedules: s.Schedules(),
		Notifier:  notifier,
		Location:  time.UTC,
	}
	reminders := reminder.NewEngine(deps)

	tasks, err := service.NewTaskService(service.TaskDeps{
		Tasks:      s.Tasks(),
		Reminders:  reminders,
		Overdue:    reminder.NewOverdueEngine(deps),
		Recurrence: recurrence.NewEngine(s, s.Tasks(), reminders, time.UTC, nil),
		Mentions:   mention.NewNotifier(s.Tasks(), mention.NewResolver(s.Users()), notifier, nil),
		Notifier:   notifier,
		Location:   time.UTC,
	})
	require.NoError(t, err)

	notifications, err := service.NewNotificationService(s.Notifications(), prefs, dispatcher, nil)
	require.NoError(t, err)

	return &fixture{store: s, tasks: tasks, notifications: notifications}
}

func dueIn(n int) *time.Time {
	due := domain.DateOf(time.Now(), time.UTC).AddDate(0, 0, n).Add(12 * time.Hour)
	return &due
}

func (f *fixture) addTask(t *testing.T, owner uuid.UUID, due *time.Time, rule domain.RecurrenceRule, collaborators ...uuid.UUID) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(owner, "Quarterly review", due)
	require.NoError(t, err)
	task.RecurrenceRule = rule
	task.CollaboratorIDs = collaborators
	f.seq++
	task.CreatedAt = task.CreatedAt.Add(time.Duration(f.seq) * time.Millisecond)
	require.NoError(t, f.store.Tasks().Create(context.Background(), task))
	return task
}

func (f *fixture) inbox(t *testing.T, userID uuid.UUID) []*domain.Notification {
	t.Helper()
	list, err := f.store.Notifications().ListForUser(context.Background(), userID, 100)
	require.NoError(t, err)
	return list
}

func TestNewTaskServiceRequiresDependencies(t *testing.T) {
	_, err := service.NewTaskService(service.TaskDeps{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.NewNotificationService(nil, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCompleteRecurringTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	task := f.addTask(t, owner, dueIn(10), domain.RecurrenceWeekly)

	outcome, err := f.tasks.CompleteTask(ctx, owner, task.ID)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, *dueIn(17), *outcome.Parent.DueDate)
	assert.Equal(t, domain.StatusUnassigned, outcome.Parent.Status)

	stored, err := f.store.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)

	_, err = f.tasks.CompleteTask(ctx, owner, task.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyCompleted, "only the first completion regenerates")

	active, err := f.store.Tasks().ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCompleteOneOffTask(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	task := f.addTask(t, owner, dueIn(2), domain.RecurrenceNone)

	outcome, err := f.tasks.CompleteTask(context.Background(), owner, task.ID)
	require.NoError(t, err)
	assert.Nil(t, outcome)
}

func TestCompleteTaskErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.addTask(t, uuid.New(), dueIn(2), domain.RecurrenceDaily)

	_, err := f.tasks.CompleteTask(ctx, uuid.New(), task.ID)
	assert.ErrorIs(t, err, service.ErrNotStakeholder)

	_, err = f.tasks.CompleteTask(ctx, task.OwnerID, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	var serviceErr *service.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "CompleteTask", serviceErr.Operation)
}

func TestStopRecurrence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, collaborator := uuid.New(), uuid.New()
	task := f.addTask(t, owner, dueIn(5), domain.RecurrenceMonthly, collaborator)

	require.NoError(t, f.tasks.StopRecurrence(ctx, collaborator, task.ID))
	assert.ErrorIs(t, f.tasks.StopRecurrence(ctx, owner, task.ID), service.ErrNotRecurring)

	outcome, err := f.tasks.CompleteTask(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Nil(t, outcome, "a stopped series does not regenerate")
}

func TestRescheduleTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, collaborator := uuid.New(), uuid.New()
	task := f.addTask(t, owner, dueIn(20), domain.RecurrenceNone, collaborator)

	result, err := f.tasks.RescheduleTask(ctx, owner, task.ID, dueIn(1))
	require.NoError(t, err)
	assert.Equal(t, reminder.Report{Checked: 2, Sent: 2}, result.Notices)
	assert.Equal(t, reminder.Report{Checked: 1, Sent: 2}, result.Reminders)

	stored, err := f.store.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, *dueIn(1), *stored.DueDate)

	types := map[domain.NotificationType]domain.Priority{}
	for _, n := range f.inbox(t, collaborator) {
		types[n.Type] = n.Priority
	}
	assert.Equal(t, map[domain.NotificationType]domain.Priority{
		domain.NotificationDueDateChange: domain.PriorityMedium,
		domain.ReminderType(1):           domain.PriorityHigh,
	}, types)

	result, err = f.tasks.RescheduleTask(ctx, owner, task.ID, dueIn(1))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Notices.Skipped, "a repeat within two minutes is suppressed")
	assert.Equal(t, 2, result.Reminders.Skipped)
}

func TestRescheduleClearsDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	task := f.addTask(t, owner, dueIn(3), domain.RecurrenceNone)

	result, err := f.tasks.RescheduleTask(ctx, owner, task.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, result.Task.DueDate)
	assert.Zero(t, result.Reminders.Checked)

	inbox := f.inbox(t, owner)
	require.Len(t, inbox, 1)
	assert.Contains(t, inbox[0].Message, "no longer has a due date")
}

func TestRescheduleCompletedTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	task := f.addTask(t, owner, dueIn(3), domain.RecurrenceNone)
	_, err := f.tasks.CompleteTask(ctx, owner, task.ID)
	require.NoError(t, err)

	_, err = f.tasks.RescheduleTask(ctx, owner, task.ID, dueIn(4))
	assert.ErrorIs(t, err, service.ErrAlreadyCompleted)
}

func TestCheckAllTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	f.addTask(t, owner, dueIn(3), domain.RecurrenceNone)
	f.addTask(t, owner, dueIn(-2), domain.RecurrenceNone)
	f.store.AddProject(&domain.Project{
		ID:        uuid.New(),
		Name:      "Launch",
		CreatorID: owner,
		DueDate:   dueIn(-1),
		Status:    domain.StatusOngoing,
	})

	report, err := f.tasks.CheckAllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reminders.Sent)
	assert.Equal(t, 1, report.OverdueTasks.Sent)
	assert.Equal(t, 1, report.OverdueProjects.Sent)
	assert.Equal(t, 3, report.Total.Sent)

	report, err = f.tasks.CheckAllTasks(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Total.Sent, "a same-day re-run adds nothing")
}

func TestCheckTaskUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.tasks.CheckTask(context.Background(), uuid.New())
	assert.True(t, store.IsNotFoundError(err))
}

func TestCommentOnTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, jane := uuid.New(), uuid.New()
	f.store.AddUser(domain.User{ID: jane, Name: "Jane"})
	task := f.addTask(t, owner, dueIn(3), domain.RecurrenceNone)

	result, err := f.tasks.CommentOnTask(ctx, domain.Comment{TaskID: task.ID, AuthorID: owner, Text: "@jane can you look?"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{jane}, result.Mentioned)
	assert.Equal(t, 1, result.Sent)

	_, err = f.tasks.CommentOnTask(ctx, domain.Comment{TaskID: task.ID, AuthorID: jane, Text: "hi"})
	assert.ErrorIs(t, err, service.ErrNotStakeholder)
}
