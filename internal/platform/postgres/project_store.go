package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/store"
)

const projectColumns = `
	p.id, p.name, p.due_date, p.status, p.creator_id, p.created_at,
	COALESCE((
		SELECT string_agg(c.user_id::text, ',' ORDER BY c.user_id)
		FROM project_collaborators c
		WHERE c.project_id = p.id
	), '')`

// PostgresProjectStore implements store.ProjectStore.
type PostgresProjectStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProjectStore creates a project store on a connection or transaction.
func NewPostgresProjectStore(db store.DBTX, logger *slog.Logger) *PostgresProjectStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProjectStore{
		db:     db,
		logger: logger.With(slog.String("component", "project_store")),
	}
}

var _ store.ProjectStore = (*PostgresProjectStore)(nil)

// GetByID implements store.ProjectStore.GetByID
func (s *PostgresProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProjectNotFound
		}
		return nil, MapError(err, store.ErrProjectNotFound)
	}
	return p, nil
}

// ListActive implements store.ProjectStore.ListActive
func (s *PostgresProjectStore) ListActive(ctx context.Context) ([]*domain.Project, error) {
	return s.list(ctx, "list_active", `
		SELECT `+projectColumns+` FROM projects p
		WHERE p.due_date IS NOT NULL AND p.status <> 'completed'
		ORDER BY p.created_at, p.id`)
}

// ListOverdue implements store.ProjectStore.ListOverdue
func (s *PostgresProjectStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Project, error) {
	return s.list(ctx, "list_overdue", `
		SELECT `+projectColumns+` FROM projects p
		WHERE p.due_date < $1 AND p.status <> 'completed'
		ORDER BY p.due_date, p.id`, cutoff)
}

func (s *PostgresProjectStore) list(ctx context.Context, op, query string, args ...any) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query projects",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("project", op, "query failed", MapError(err, nil))
	}
	defer func() { _ = rows.Close() }()

	var projects []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, store.NewStoreError("project", op, "scan failed", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("project", op, "row iteration failed", err)
	}
	return projects, nil
}

func scanProject(row scanner) (*domain.Project, error) {
	var (
		p             domain.Project
		due           sql.NullTime
		status        string
		collaborators string
	)
	if err := row.Scan(&p.ID, &p.Name, &due, &status, &p.CreatorID, &p.CreatedAt, &collaborators); err != nil {
		return nil, err
	}
	p.DueDate = timePtr(due)
	p.Status = domain.Status(status)

	ids, err := parseIDList(collaborators)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.ID, err)
	}
	p.CollaboratorIDs = ids
	return &p, nil
}
