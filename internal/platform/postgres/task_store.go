package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/store"
)

const taskColumns = `
	t.id, t.title, t.description, t.due_date, t.status, t.owner_id, t.project_id,
	t.parent_task_id, t.recurrence_rule, t.priority, t.created_at, t.updated_at,
	COALESCE((
		SELECT string_agg(c.user_id::text, ',' ORDER BY c.position)
		FROM task_collaborators c
		WHERE c.task_id = t.id
	), '')`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a task store on a connection or transaction.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create. Collaborators are written in
// the same call; callers wanting atomicity run it inside a transaction.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, due_date, status, owner_id, project_id,
			parent_task_id, recurrence_rule, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		task.ID,
		task.Title,
		task.Description,
		nullTime(task.DueDate),
		string(task.Status),
		task.OwnerID,
		nullUUID(task.ProjectID),
		nullUUID(task.ParentTaskID),
		string(task.RecurrenceRule),
		task.Priority,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "create", "insert failed", MapError(err, nil))
	}

	for i, userID := range task.CollaboratorIDs {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO task_collaborators (task_id, user_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (task_id, user_id) DO NOTHING`,
			task.ID, userID, i,
		); err != nil {
			log.Error("failed to add task collaborator",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
			return store.NewStoreError("task", "create", "collaborator insert failed", MapError(err, nil))
		}
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.Int("collaborators", len(task.CollaboratorIDs)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err, store.ErrTaskNotFound)
	}
	return task, nil
}

// ListActive implements store.TaskStore.ListActive
func (s *PostgresTaskStore) ListActive(ctx context.Context) ([]*domain.Task, error) {
	return s.list(ctx, "list_active", `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.due_date IS NOT NULL AND t.status <> 'completed'
		ORDER BY t.created_at, t.id`)
}

// ListOverdue implements store.TaskStore.ListOverdue
func (s *PostgresTaskStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	return s.list(ctx, "list_overdue", `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.due_date < $1 AND t.status <> 'completed'
		ORDER BY t.due_date, t.id`, cutoff)
}

// ListSubtasks implements store.TaskStore.ListSubtasks
func (s *PostgresTaskStore) ListSubtasks(ctx context.Context, parentID uuid.UUID) ([]*domain.Task, error) {
	return s.list(ctx, "list_subtasks", `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.parent_task_id = $1
		ORDER BY t.created_at, t.id`, parentID)
}

// MarkCompleted implements store.TaskStore.MarkCompleted. The conditional
// update makes the transition check and the write a single statement.
func (s *PostgresTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'completed', updated_at = $2
		WHERE id = $1 AND status <> 'completed'`, id, at)
	if err != nil {
		return false, store.NewStoreError("task", "complete", "update failed", MapError(err, nil))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, MapError(err, nil)
	}
	if !exists {
		return false, store.ErrTaskNotFound
	}
	return false, nil
}

// UpdateDueDate implements store.TaskStore.UpdateDueDate
func (s *PostgresTaskStore) UpdateDueDate(ctx context.Context, id uuid.UUID, due *time.Time, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET due_date = $2, updated_at = $3 WHERE id = $1`, id, nullTime(due), at)
	if err != nil {
		return store.NewStoreError("task", "update", "due date update failed", MapError(err, nil))
	}
	return rowsAffectedOrNotFound(result, store.ErrTaskNotFound)
}

// ClearRecurrence implements store.TaskStore.ClearRecurrence
func (s *PostgresTaskStore) ClearRecurrence(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET recurrence_rule = '', updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return store.NewStoreError("task", "update", "recurrence update failed", MapError(err, nil))
	}
	return rowsAffectedOrNotFound(result, store.ErrTaskNotFound)
}

func (s *PostgresTaskStore) list(ctx context.Context, op, query string, args ...any) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("operation", op), slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", op, "query failed", MapError(err, nil))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", op, "scan failed", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", op, "row iteration failed", err)
	}
	return tasks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task          domain.Task
		due           sql.NullTime
		status        string
		projectID     uuid.NullUUID
		parentID      uuid.NullUUID
		rule          string
		collaborators string
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&due,
		&status,
		&task.OwnerID,
		&projectID,
		&parentID,
		&rule,
		&task.Priority,
		&task.CreatedAt,
		&task.UpdatedAt,
		&collaborators,
	); err != nil {
		return nil, err
	}

	task.Status = domain.Status(status)
	task.RecurrenceRule = domain.RecurrenceRule(rule)
	task.DueDate = timePtr(due)
	task.ProjectID = uuidPtr(projectID)
	task.ParentTaskID = uuidPtr(parentID)

	ids, err := parseIDList(collaborators)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, err)
	}
	task.CollaboratorIDs = ids
	return &task, nil
}

// parseIDList splits a comma-joined list of UUIDs.
func parseIDList(joined string) ([]uuid.UUID, error) {
	if joined == "" {
		return []uuid.UUID{}, nil
	}
	parts := strings.Split(joined, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("invalid collaborator id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}
