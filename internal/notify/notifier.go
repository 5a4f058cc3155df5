package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskpulse/internal/domain"
)

// Outcome is what Notifier.Send did with one candidate.
type Outcome int

// Send outcomes
const (
	OutcomeDuplicate Outcome = iota
	OutcomeDispatched
)

// Notifier runs a candidate notification through the dedup guard, resolves
// the recipient's preferences and dispatches it.
type Notifier struct {
	guard      *Guard
	prefs      *PreferenceResolver
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewNotifier wires the three stages of a send.
func NewNotifier(guard *Guard, prefs *PreferenceResolver, dispatcher *Dispatcher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{guard: guard, prefs: prefs, dispatcher: dispatcher, logger: logger}
}

// Send dispatches n unless the guard finds a duplicate inside w. Errors are
// data errors from the preference lookup or the guard; channel failures only
// appear in the returned result. Preferences are resolved before the claim
// is taken, so a failed lookup leaves nothing behind and a retry may send.
func (s *Notifier) Send(ctx context.Context, n *domain.Notification, w Window) (Outcome, DispatchResult, error) {
	pref, err := s.prefs.Resolve(ctx, n.UserID, n.TaskID)
	if err != nil {
		return OutcomeDuplicate, DispatchResult{}, fmt.Errorf("resolve preferences for %s: %w", n.UserID, err)
	}

	key := Key{UserID: n.UserID, SubjectID: n.SubjectID(), Type: n.Type}
	ok, err := s.guard.Allow(ctx, key, w)
	if err != nil {
		return OutcomeDuplicate, DispatchResult{}, err
	}
	if !ok {
		s.logger.Debug("duplicate notification suppressed",
			slog.String("user_id", key.UserID.String()),
			slog.String("subject_id", key.SubjectID.String()),
			slog.String("type", string(key.Type)))
		return OutcomeDuplicate, DispatchResult{}, nil
	}

	return OutcomeDispatched, s.dispatcher.Dispatch(ctx, n, pref), nil
}
