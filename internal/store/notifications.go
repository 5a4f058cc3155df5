package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
)

// NotificationStore persists in-app notification records. Records are
// append-only apart from the read flag.
type NotificationStore interface {
	// Create inserts the notification. ID and CreatedAt are assigned by the
	// caller.
	Create(ctx context.Context, n *domain.Notification) error

	// ExistsSince reports whether a notification of typ for (userID,
	// subjectID) was created at or after since. subjectID is matched
	// against the task or project ID, or uuid.Nil for subject-less types.
	ExistsSince(ctx context.Context, userID, subjectID uuid.UUID, typ domain.NotificationType, since time.Time) (bool, error)

	// ListForUser returns the newest notifications first, at most limit.
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)

	// CountUnread returns the number of unread notifications for the user.
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead flags one notification owned by userID as read.
	// Returns ErrNotificationNotFound if no such notification belongs to the user.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error

	// MarkAllRead flags every unread notification of the user and returns
	// how many changed.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
}

// ClaimStore records dedup claims under a uniqueness constraint.
type ClaimStore interface {
	// Claim stores the claim and reports true, or reports false without
	// error when an identical claim already exists.
	Claim(ctx context.Context, claim domain.NotificationClaim) (bool, error)

	// ClaimedSince reports whether a claim for (userID, subjectID, typ) was
	// taken at or after since, in any bucket.
	ClaimedSince(ctx context.Context, userID, subjectID uuid.UUID, typ domain.NotificationType, since time.Time) (bool, error)
}
