package mention_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/phrazzld/taskpulse/internal/service/mention"
	"github.com/phrazzld/taskpulse/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directory struct {
	store *memstore.Store
	john  uuid.UUID
	jane  uuid.UUID
	mary  uuid.UUID
}

func newDirectory() *directory {
	d := &directory{store: memstore.New(), john: uuid.New(), jane: uuid.New(), mary: uuid.New()}
	d.store.AddUser(domain.User{ID: d.john, Name: "John"})
	d.store.AddUser(domain.User{ID: d.jane, Name: "jane"})
	d.store.AddUser(domain.User{ID: d.mary, Name: "Mary Jane"})
	return d
}

func TestResolve(t *testing.T) {
	d := newDirectory()
	r := mention.NewResolver(d.store.Users())

	tests := []struct {
		name   string
		text   string
		author uuid.UUID
		want   []uuid.UUID
	}{
		{"author excluded", "@john please check, @jane too", d.john, []uuid.UUID{d.jane}},
		{"unknown dropped", "@doesnotexist", d.john, []uuid.UUID{}},
		{"case insensitive", "@JOHN and @Jane", uuid.New(), []uuid.UUID{d.john, d.jane}},
		{"two word name", "thanks @Mary Jane for this", uuid.New(), []uuid.UUID{d.mary}},
		{"deduplicated", "@jane @jane @Jane", uuid.New(), []uuid.UUID{d.jane}},
		{"adjacent mentions", "@john @jane", uuid.New(), []uuid.UUID{d.john, d.jane}},
		{"no mentions", "plain text, jane@example.com", uuid.New(), []uuid.UUID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.text, tt.author)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotifyComment(t *testing.T) {
	d := newDirectory()
	ctx := context.Background()
	s := d.store

	collaborator := uuid.New()
	task, err := domain.NewTask(d.john, "Ship release", nil)
	require.NoError(t, err)
	task.CollaboratorIDs = []uuid.UUID{d.jane, collaborator}
	require.NoError(t, s.Tasks().Create(ctx, task))

	dispatcher := notify.NewDispatcher(time.Second, nil, notify.Stage{notify.NewInAppChannel(s.Notifications())})
	notifier := mention.NewNotifier(s.Tasks(), mention.NewResolver(s.Users()), notify.NewNotifier(
		notify.NewGuard(s.Notifications(), s.Claims(), time.UTC),
		notify.NewPreferenceResolver(s.Preferences()),
		dispatcher,
		nil,
	), nil)

	comment := domain.Comment{TaskID: task.ID, AuthorID: d.john, Text: "@jane please check, @Mary Jane too"}
	result, err := notifier.NotifyComment(ctx, comment)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{d.jane, d.mary}, result.Mentioned)
	assert.Equal(t, 3, result.Sent, "two mentions plus one plain comment notice")

	list, err := s.Notifications().ListForUser(ctx, d.jane, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationMention, list[0].Type)
	assert.Equal(t, domain.PriorityHigh, list[0].Priority)

	list, err = s.Notifications().ListForUser(ctx, collaborator, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationTaskComment, list[0].Type)
	assert.Equal(t, domain.PriorityMedium, list[0].Priority)

	list, err = s.Notifications().ListForUser(ctx, d.john, 10)
	require.NoError(t, err)
	assert.Empty(t, list, "the author is never notified")

	result, err = notifier.NotifyComment(ctx, comment)
	require.NoError(t, err)
	assert.Zero(t, result.Sent, "a repeat within two minutes is suppressed")
	assert.Equal(t, 3, result.Skipped)
}

func TestNotifyCommentUnknownTask(t *testing.T) {
	d := newDirectory()
	s := d.store
	notifier := mention.NewNotifier(s.Tasks(), mention.NewResolver(s.Users()), nil, nil)

	_, err := notifier.NotifyComment(context.Background(), domain.Comment{TaskID: uuid.New(), AuthorID: d.john, Text: "@jane"})
	assert.Error(t, err)
}
