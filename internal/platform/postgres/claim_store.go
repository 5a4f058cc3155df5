package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

// PostgresClaimStore implements store.ClaimStore on the
// notification_claims unique constraint.
type PostgresClaimStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresClaimStore creates a claim store on a connection or transaction.
func NewPostgresClaimStore(db store.DBTX, logger *slog.Logger) *PostgresClaimStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresClaimStore{
		db:     db,
		logger: logger.With(slog.String("component", "claim_store")),
	}
}

var _ store.ClaimStore = (*PostgresClaimStore)(nil)

// Claim implements store.ClaimStore.Claim. A conflicting row leaves the
// insert with zero affected rows, which is the lost race.
func (s *PostgresClaimStore) Claim(ctx context.Context, claim domain.NotificationClaim) (bool, error) {
	claimedAt := claim.ClaimedAt
	if claimedAt.IsZero() {
		claimedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_claims (user_id, subject_id, type, bucket, claimed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT uq_notification_claims DO NOTHING`,
		claim.UserID, claim.SubjectID, string(claim.Type), claim.Bucket, claimedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		s.logger.Error("failed to record notification claim",
			slog.String("user_id", claim.UserID.String()),
			slog.String("type", string(claim.Type)),
			slog.String("error", err.Error()))
		return false, store.NewStoreError("notification claim", "claim", "insert failed", MapError(err, nil))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClaimedSince implements store.ClaimStore.ClaimedSince.
func (s *PostgresClaimStore) ClaimedSince(
	ctx context.Context,
	userID, subjectID uuid.UUID,
	typ domain.NotificationType,
	since time.Time,
) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_claims
			WHERE user_id = $1 AND subject_id = $2 AND type = $3 AND claimed_at >= $4
		)`, userID, subjectID, string(typ), since).Scan(&exists)
	if err != nil {
		return false, store.NewStoreError("notification claim", "claimed since", "query failed", MapError(err, nil))
	}
	return exists, nil
}
