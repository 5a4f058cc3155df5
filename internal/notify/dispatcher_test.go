package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/mocks"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/phrazzld/taskpulse/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *memstore.Store
	email     *mocks.MockEmailSender
	pusher    *mocks.MockPusher
	publisher *mocks.MockPublisher
	disp      *notify.Dispatcher
	user      domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     memstore.New(),
		email:     &mocks.MockEmailSender{},
		pusher:    &mocks.MockPusher{},
		publisher: &mocks.MockPublisher{},
		user:      domain.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com"},
	}
	f.store.AddUser(f.user)
	f.disp = notify.NewDispatcher(time.Second, nil, notify.DefaultStages(
		notify.NewInAppChannel(f.store.Notifications()),
		notify.NewRealtimeChannel(f.pusher),
		notify.NewBusChannel(f.publisher, "task_notifications"),
		notify.NewEmailChannel(f.email, f.store.Users()),
	)...)
	return f
}

func reminderFor(userID uuid.UUID) *domain.Notification {
	taskID := uuid.New()
	return &domain.Notification{
		UserID:   userID,
		TaskID:   &taskID,
		Type:     domain.ReminderType(3),
		Title:    "Task Due in 3 Days",
		Message:  "Task 'Ship it' is due on March 13, 2025",
		Priority: domain.PriorityMedium,
	}
}

func TestDispatchFailingEmailStillPersistsInApp(t *testing.T) {
	f := newFixture(t)
	f.pusher.On("PublishToUser", mock.Anything, f.user.ID, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, "task_notifications", "task.reminder.3_days", mock.Anything).Return(nil)
	f.email.On("SendNotificationEmail", mock.Anything, "ada@example.com", domain.ReminderType(3), mock.Anything).
		Return(errors.New("smtp: connection refused"))

	n := reminderFor(f.user.ID)
	var result notify.DispatchResult
	require.NotPanics(t, func() {
		result = f.disp.Dispatch(context.Background(), n, domain.DefaultPreference(f.user.ID, *n.TaskID))
	})

	assert.True(t, result.Delivered(notify.ChannelInApp))
	assert.True(t, result.Delivered(notify.ChannelRealtime))
	assert.True(t, result.Delivered(notify.ChannelBus))
	assert.True(t, result.Failed(notify.ChannelEmail))

	stored, err := f.store.Notifications().ListForUser(context.Background(), f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, n.ID, stored[0].ID)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.False(t, n.CreatedAt.IsZero())

	f.pusher.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
	f.email.AssertExpectations(t)
}

func TestDispatchPayloadShape(t *testing.T) {
	f := newFixture(t)
	var pushed []byte
	f.pusher.On("PublishToUser", mock.Anything, f.user.ID, mock.Anything).
		Run(func(args mock.Arguments) { pushed = args.Get(2).([]byte) }).
		Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.email.On("SendNotificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	n := reminderFor(f.user.ID)
	f.disp.Dispatch(context.Background(), n, domain.DefaultPreference(f.user.ID, *n.TaskID))

	var body map[string]any
	require.NoError(t, json.Unmarshal(pushed, &body))
	for _, field := range []string{"notification_id", "user_id", "title", "message", "type", "task_id", "project_id", "created_at"} {
		assert.Contains(t, body, field)
	}
	assert.Equal(t, n.ID.String(), body["notification_id"])
	assert.Nil(t, body["project_id"])
}

func TestDispatchHonorsPreferences(t *testing.T) {
	f := newFixture(t)
	f.pusher.On("PublishToUser", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	n := reminderFor(f.user.ID)
	pref := domain.NotificationPreference{UserID: f.user.ID, TaskID: *n.TaskID}
	result := f.disp.Dispatch(context.Background(), n, pref)

	assert.True(t, result.Skipped(notify.ChannelInApp))
	assert.True(t, result.Skipped(notify.ChannelEmail))
	assert.True(t, result.Delivered(notify.ChannelRealtime))
	assert.True(t, result.Delivered(notify.ChannelBus))

	count, err := f.store.Notifications().CountUnread(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	f.email.AssertNotCalled(t, "SendNotificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchSkipsEmailWithoutAddress(t *testing.T) {
	f := newFixture(t)
	mute := domain.User{ID: uuid.New(), Name: "Mute"}
	f.store.AddUser(mute)
	f.pusher.On("PublishToUser", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	n := reminderFor(mute.ID)
	result := f.disp.Dispatch(context.Background(), n, domain.DefaultPreference(mute.ID, *n.TaskID))

	assert.True(t, result.Skipped(notify.ChannelEmail))
	f.email.AssertNotCalled(t, "SendNotificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// stubChannel is a channel whose behavior is supplied per test.
type stubChannel struct {
	name    string
	deliver func(ctx context.Context, n *domain.Notification) error
}

func (c stubChannel) Name() string { return c.name }

func (c stubChannel) Enabled(domain.NotificationPreference) bool { return true }

func (c stubChannel) Deliver(ctx context.Context, n *domain.Notification) error {
	return c.deliver(ctx, n)
}

func TestDispatchRecoversPanics(t *testing.T) {
	var calls atomic.Int32
	disp := notify.NewDispatcher(time.Second, nil,
		notify.Stage{stubChannel{name: "boom", deliver: func(context.Context, *domain.Notification) error {
			panic("nil map write")
		}}},
		notify.Stage{stubChannel{name: "after", deliver: func(context.Context, *domain.Notification) error {
			calls.Add(1)
			return nil
		}}},
	)

	n := reminderFor(uuid.New())
	var result notify.DispatchResult
	require.NotPanics(t, func() {
		result = disp.Dispatch(context.Background(), n, domain.DefaultPreference(n.UserID, *n.TaskID))
	})

	require.True(t, result.Failed("boom"))
	assert.ErrorIs(t, result.Channels[0].Err, notify.ErrChannelPanic)
	assert.True(t, result.Delivered("after"), "later stages still run")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatchTimesOutSlowChannel(t *testing.T) {
	disp := notify.NewDispatcher(50*time.Millisecond, nil, notify.Stage{
		stubChannel{name: "slow", deliver: func(ctx context.Context, _ *domain.Notification) error {
			<-ctx.Done()
			return ctx.Err()
		}},
		stubChannel{name: "fast", deliver: func(context.Context, *domain.Notification) error { return nil }},
	})

	n := reminderFor(uuid.New())
	start := time.Now()
	result := disp.Dispatch(context.Background(), n, domain.DefaultPreference(n.UserID, *n.TaskID))

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, result.Failed("slow"))
	assert.ErrorIs(t, result.Channels[0].Err, notify.ErrChannelTimeout)
	assert.True(t, result.Delivered("fast"))
}

func TestDispatchRunsStageInParallel(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	barrier := func(ctx context.Context, _ *domain.Notification) error {
		wg.Done()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	disp := notify.NewDispatcher(time.Second, nil, notify.Stage{
		stubChannel{name: "a", deliver: barrier},
		stubChannel{name: "b", deliver: barrier},
	})

	n := reminderFor(uuid.New())
	result := disp.Dispatch(context.Background(), n, domain.DefaultPreference(n.UserID, *n.TaskID))

	assert.True(t, result.Delivered("a"))
	assert.True(t, result.Delivered("b"))
}

func TestDispatchRejectsInvalidNotification(t *testing.T) {
	f := newFixture(t)

	result := f.disp.Dispatch(context.Background(), &domain.Notification{UserID: f.user.ID}, domain.DefaultPreference(f.user.ID, uuid.Nil))

	require.Len(t, result.Channels, 4)
	for _, c := range result.Channels {
		assert.Equal(t, notify.StatusFailed, c.Status, c.Channel)
	}
	assert.False(t, result.AnyDelivered())
}

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		typ  domain.NotificationType
		want string
	}{
		{domain.ReminderType(7), "task.reminder.7_days"},
		{domain.ReminderType(1), "task.reminder.1_days"},
		{domain.ProjectReminderType(3), "notification.project_reminder_3_days"},
		{domain.NotificationOverdueTasks, "notification.overdue_tasks"},
		{domain.NotificationMention, "notification.mention"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, notify.RoutingKey(tt.typ))
		})
	}
}
