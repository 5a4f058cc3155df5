package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/store"
)

// PostgresNotificationStore implements store.NotificationStore.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a notification store on a connection or transaction.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// Create implements store.NotificationStore.Create
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, task_id, project_id, type, title, message, priority, created_at, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID,
		n.UserID,
		nullUUID(n.TaskID),
		nullUUID(n.ProjectID),
		string(n.Type),
		n.Title,
		n.Message,
		string(n.Priority),
		n.CreatedAt,
		n.IsRead,
	)
	if err != nil {
		log.Error("failed to create notification",
			slog.String("notification_id", n.ID.String()),
			slog.String("user_id", n.UserID.String()),
			slog.String("type", string(n.Type)),
			slog.String("error", err.Error()))
		return store.NewStoreError("notification", "create", "insert failed", MapError(err, nil))
	}
	return nil
}

// ExistsSince implements store.NotificationStore.ExistsSince
func (s *PostgresNotificationStore) ExistsSince(
	ctx context.Context,
	userID, subjectID uuid.UUID,
	typ domain.NotificationType,
	since time.Time,
) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1
			  AND type = $2
			  AND COALESCE(task_id, project_id, '00000000-0000-0000-0000-000000000000'::uuid) = $3
			  AND created_at >= $4
		)`, userID, string(typ), subjectID, since).Scan(&exists)
	if err != nil {
		return false, store.NewStoreError("notification", "exists", "query failed", MapError(err, nil))
	}
	return exists, nil
}

// ListForUser implements store.NotificationStore.ListForUser
func (s *PostgresNotificationStore) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, task_id, project_id, type, title, message, priority, created_at, is_read
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, store.NewStoreError("notification", "list", "query failed", MapError(err, nil))
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Notification
	for rows.Next() {
		var (
			n         domain.Notification
			taskID    uuid.NullUUID
			projectID uuid.NullUUID
			typ       string
			priority  string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &taskID, &projectID, &typ, &n.Title, &n.Message,
			&priority, &n.CreatedAt, &n.IsRead); err != nil {
			return nil, store.NewStoreError("notification", "list", "scan failed", err)
		}
		n.TaskID = uuidPtr(taskID)
		n.ProjectID = uuidPtr(projectID)
		n.Type = domain.NotificationType(typ)
		n.Priority = domain.Priority(priority)
		out = append(out, &n)
	}
	return out, rows.Err()
}

// CountUnread implements store.NotificationStore.CountUnread
func (s *PostgresNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&count)
	if err != nil {
		return 0, store.NewStoreError("notification", "count", "query failed", MapError(err, nil))
	}
	return count, nil
}

// MarkRead implements store.NotificationStore.MarkRead
func (s *PostgresNotificationStore) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return store.NewStoreError("notification", "mark_read", "update failed", MapError(err, nil))
	}
	return rowsAffectedOrNotFound(result, store.ErrNotificationNotFound)
}

// MarkAllRead implements store.NotificationStore.MarkAllRead
func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, store.NewStoreError("notification", "mark_all_read", "update failed", MapError(err, nil))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
