package mention

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/phrazzld/taskpulse/internal/redact"
	"github.com/phrazzld/taskpulse/internal/store"
)

// excerptLength caps how much comment text a notification quotes.
const excerptLength = 100

// Result reports who a comment reached.
type Result struct {
	Mentioned []uuid.UUID `json:"mentioned"`
	Sent      int         `json:"sent"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
}

// Notifier sends mention and comment notifications for a new comment.
type Notifier struct {
	tasks        store.TaskStore
	resolver     *Resolver
	notifier     *notify.Notifier
	stakeholders notify.StakeholderResolver
	logger       *slog.Logger
}

// NewNotifier returns a comment notifier.
func NewNotifier(tasks store.TaskStore, resolver *Resolver, notifier *notify.Notifier, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		tasks:    tasks,
		resolver: resolver,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "mention_notifier")),
	}
}

// NotifyComment notifies every mentioned user, then tells the remaining
// stakeholders of the task, other than the author, about the comment.
func (n *Notifier) NotifyComment(ctx context.Context, c domain.Comment) (Result, error) {
	task, err := n.tasks.GetByID(ctx, c.TaskID)
	if err != nil {
		return Result{}, fmt.Errorf("load commented task: %w", err)
	}

	mentioned, err := n.resolver.Resolve(ctx, c.Text, c.AuthorID)
	if err != nil {
		return Result{}, err
	}
	result := Result{Mentioned: mentioned}

	excerpt := truncate(c.Text, excerptLength)
	taskID := task.ID
	told := make(map[uuid.UUID]bool, len(mentioned))
	for _, userID := range mentioned {
		told[userID] = true
		n.send(ctx, &result, &domain.Notification{
			UserID:   userID,
			TaskID:   &taskID,
			Type:     domain.NotificationMention,
			Title:    "You were mentioned",
			Message:  fmt.Sprintf("You were mentioned on task '%s': %s", task.Title, excerpt),
			Priority: domain.PriorityHigh,
		})
	}

	for _, userID := range n.stakeholders.ForTask(task) {
		if told[userID] || userID == c.AuthorID {
			continue
		}
		n.send(ctx, &result, &domain.Notification{
			UserID:   userID,
			TaskID:   &taskID,
			Type:     domain.NotificationTaskComment,
			Title:    "New comment",
			Message:  fmt.Sprintf("New comment on task '%s': %s", task.Title, excerpt),
			Priority: domain.PriorityMedium,
		})
	}
	return result, nil
}

func (n *Notifier) send(ctx context.Context, result *Result, note *domain.Notification) {
	outcome, _, err := n.notifier.Send(ctx, note, notify.Lookback(notify.CommentWindow))
	switch {
	case err != nil:
		n.logger.Error("comment notification skipped after error",
			slog.String("user_id", note.UserID.String()),
			slog.String("type", string(note.Type)),
			slog.String("error", redact.Error(err)))
		result.Failed++
	case outcome == notify.OutcomeDuplicate:
		result.Skipped++
	default:
		result.Sent++
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
