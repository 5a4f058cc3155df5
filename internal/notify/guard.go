package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

// Dedup windows used by the engines.
const (
	ReminderWindow = 24 * time.Hour
	CommentWindow  = 2 * time.Minute
)

// Key identifies one logical send.
type Key struct {
	UserID    uuid.UUID
	SubjectID uuid.UUID
	Type      domain.NotificationType
}

// Window describes how far back a duplicate is looked for. Today windows
// start at local midnight; others cover a fixed span ending now.
type Window struct {
	Span  time.Duration
	Today bool
}

// Lookback returns a fixed-span window.
func Lookback(d time.Duration) Window { return Window{Span: d} }

// SinceMidnight returns the window covering the current calendar day.
func SinceMidnight() Window { return Window{Span: 24 * time.Hour, Today: true} }

// Guard decides whether a notification may be sent. It first looks for a
// recent record or claim inside the window and then takes an atomic claim
// for the current bucket, so of two concurrent callers with the same key
// only one proceeds. Claims cover sends whose in-app record was disabled.
type Guard struct {
	notifications store.NotificationStore
	claims        store.ClaimStore
	loc           *time.Location
	now           func() time.Time
}

// NewGuard returns a guard evaluating calendar days in loc.
func NewGuard(notifications store.NotificationStore, claims store.ClaimStore, loc *time.Location) *Guard {
	if loc == nil {
		loc = time.UTC
	}
	return &Guard{notifications: notifications, claims: claims, loc: loc, now: time.Now}
}

// Allow reports true when no notification for key exists inside w and this
// call won the claim for the current window.
func (g *Guard) Allow(ctx context.Context, key Key, w Window) (bool, error) {
	now := g.now()

	since := now.Add(-w.Span)
	if w.Today {
		since = domain.DateOf(now, g.loc)
	}

	exists, err := g.notifications.ExistsSince(ctx, key.UserID, key.SubjectID, key.Type, since)
	if err != nil {
		return false, fmt.Errorf("check recent notifications: %w", err)
	}
	if exists {
		return false, nil
	}

	claimed, err := g.claims.ClaimedSince(ctx, key.UserID, key.SubjectID, key.Type, since)
	if err != nil {
		return false, fmt.Errorf("check recent claims: %w", err)
	}
	if claimed {
		return false, nil
	}

	won, err := g.claims.Claim(ctx, domain.NewClaim(key.UserID, key.SubjectID, key.Type, now, w.Span, g.loc))
	if err != nil {
		return false, fmt.Errorf("claim notification: %w", err)
	}
	return won, nil
}
