package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/store"
)

// PostgresUserStore implements the store.UserStore directory lookups.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a user directory on a connection or transaction.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// LookupByName implements store.UserStore.LookupByName. When several users
// share a name the oldest account wins.
func (s *PostgresUserStore) LookupByName(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM users WHERE LOWER(name) = LOWER($1)
		ORDER BY created_at, id LIMIT 1`, name).Scan(&id)
	if err != nil {
		return uuid.Nil, MapError(err, store.ErrUserNotFound)
	}
	return id, nil
}

// GetEmail implements store.UserStore.GetEmail
func (s *PostgresUserStore) GetEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(email, '') FROM users WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		return "", MapError(err, store.ErrUserNotFound)
	}
	return email, nil
}
