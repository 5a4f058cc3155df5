package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationClaim is the atomic dedup key for one send. Two claims with
// the same (UserID, SubjectID, Type, Bucket) can never both be stored.
// SubjectID is uuid.Nil for subject-less notifications.
type NotificationClaim struct {
	UserID    uuid.UUID
	SubjectID uuid.UUID
	Type      NotificationType
	Bucket    time.Time
	ClaimedAt time.Time
}

// NewClaim builds the claim for a send at now, bucketing now down to a
// multiple of window since the zero time in loc. A window of a day or more
// buckets by calendar date in loc.
func NewClaim(userID, subjectID uuid.UUID, typ NotificationType, now time.Time, window time.Duration, loc *time.Location) NotificationClaim {
	return NotificationClaim{
		UserID:    userID,
		SubjectID: subjectID,
		Type:      typ,
		Bucket:    Bucket(now, window, loc),
		ClaimedAt: now.UTC(),
	}
}

// Bucket floors now to the start of its dedup window.
func Bucket(now time.Time, window time.Duration, loc *time.Location) time.Time {
	if window >= 24*time.Hour {
		return DateOf(now, loc).UTC()
	}
	if window <= 0 {
		return now.UTC()
	}
	return now.UTC().Truncate(window)
}
