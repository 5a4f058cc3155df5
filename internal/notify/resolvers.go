package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

// PreferenceResolver loads channel toggles, defaulting to all enabled.
type PreferenceResolver struct {
	store store.PreferenceStore
}

// NewPreferenceResolver returns a resolver reading from s.
func NewPreferenceResolver(s store.PreferenceStore) *PreferenceResolver {
	return &PreferenceResolver{store: s}
}

// Resolve returns the preference of userID for taskID. Notifications that
// are not about a task (taskID nil) always use the default.
func (r *PreferenceResolver) Resolve(ctx context.Context, userID uuid.UUID, taskID *uuid.UUID) (domain.NotificationPreference, error) {
	if taskID == nil {
		return domain.DefaultPreference(userID, uuid.Nil), nil
	}
	pref, err := r.store.Get(ctx, userID, *taskID)
	if errors.Is(err, store.ErrPreferenceNotFound) {
		return domain.DefaultPreference(userID, *taskID), nil
	}
	if err != nil {
		return domain.NotificationPreference{}, fmt.Errorf("load preference: %w", err)
	}
	return *pref, nil
}

// StakeholderResolver computes who is entitled to hear about a subject. The
// set is derived on every call, so reassignments are seen immediately.
type StakeholderResolver struct{}

// ForTask returns the owner and collaborators of t.
func (StakeholderResolver) ForTask(t *domain.Task) []uuid.UUID {
	return t.Stakeholders()
}

// ForProject returns the creator and collaborators of p.
func (StakeholderResolver) ForProject(p *domain.Project) []uuid.UUID {
	return p.Stakeholders()
}
