package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

// PostgresPreferenceStore implements store.PreferenceStore.
type PostgresPreferenceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPreferenceStore creates a preference store on a connection or transaction.
func NewPostgresPreferenceStore(db store.DBTX, logger *slog.Logger) *PostgresPreferenceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPreferenceStore{
		db:     db,
		logger: logger.With(slog.String("component", "preference_store")),
	}
}

var _ store.PreferenceStore = (*PostgresPreferenceStore)(nil)

// Get implements store.PreferenceStore.Get
func (s *PostgresPreferenceStore) Get(ctx context.Context, userID, taskID uuid.UUID) (*domain.NotificationPreference, error) {
	p := domain.NotificationPreference{UserID: userID, TaskID: taskID}
	err := s.db.QueryRowContext(ctx, `
		SELECT email_enabled, in_app_enabled FROM notification_preferences
		WHERE user_id = $1 AND task_id = $2`, userID, taskID).Scan(&p.EmailEnabled, &p.InAppEnabled)
	if err != nil {
		return nil, MapError(err, store.ErrPreferenceNotFound)
	}
	return &p, nil
}

// ListForTask implements store.PreferenceStore.ListForTask
func (s *PostgresPreferenceStore) ListForTask(ctx context.Context, taskID uuid.UUID) ([]domain.NotificationPreference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, email_enabled, in_app_enabled FROM notification_preferences
		WHERE task_id = $1 ORDER BY user_id`, taskID)
	if err != nil {
		return nil, store.NewStoreError("notification preference", "list", "query failed", MapError(err, nil))
	}
	defer func() { _ = rows.Close() }()

	var prefs []domain.NotificationPreference
	for rows.Next() {
		p := domain.NotificationPreference{TaskID: taskID}
		if err := rows.Scan(&p.UserID, &p.EmailEnabled, &p.InAppEnabled); err != nil {
			return nil, store.NewStoreError("notification preference", "list", "scan failed", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// Upsert implements store.PreferenceStore.Upsert
func (s *PostgresPreferenceStore) Upsert(ctx context.Context, pref domain.NotificationPreference) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (user_id, task_id, email_enabled, in_app_enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, task_id) DO UPDATE
		SET email_enabled = EXCLUDED.email_enabled, in_app_enabled = EXCLUDED.in_app_enabled`,
		pref.UserID, pref.TaskID, pref.EmailEnabled, pref.InAppEnabled)
	if err != nil {
		s.logger.Error("failed to upsert notification preference",
			slog.String("user_id", pref.UserID.String()),
			slog.String("task_id", pref.TaskID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("notification preference", "upsert", "insert failed", MapError(err, nil))
	}
	return nil
}
