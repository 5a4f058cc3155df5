package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/taskpulse/internal/store"
)

// Transactor implements store.Transactor with store.RunInTransaction.
type Transactor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTransactor creates a Transactor on db.
func NewTransactor(db *sql.DB, logger *slog.Logger) *Transactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transactor{db: db, logger: logger}
}

var _ store.Transactor = (*Transactor)(nil)

// RunInTx implements store.Transactor.RunInTx
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		return fn(ctx, &txStores{tx: sqlTx, logger: t.logger})
	})
}

type txStores struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *txStores) Tasks() store.TaskStore { return NewPostgresTaskStore(s.tx, s.logger) }

func (s *txStores) Schedules() store.ScheduleStore { return NewPostgresScheduleStore(s.tx, s.logger) }

func (s *txStores) Preferences() store.PreferenceStore {
	return NewPostgresPreferenceStore(s.tx, s.logger)
}

// Stores bundles every PostgreSQL store on one connection pool.
type Stores struct {
	Tasks         *PostgresTaskStore
	Projects      *PostgresProjectStore
	Schedules     *PostgresScheduleStore
	Preferences   *PostgresPreferenceStore
	Notifications *PostgresNotificationStore
	Claims        *PostgresClaimStore
	Users         *PostgresUserStore
	Transactor    *Transactor
}

// NewStores builds the full set of stores on db.
func NewStores(db *sql.DB, logger *slog.Logger) *Stores {
	return &Stores{
		Tasks:         NewPostgresTaskStore(db, logger),
		Projects:      NewPostgresProjectStore(db, logger),
		Schedules:     NewPostgresScheduleStore(db, logger),
		Preferences:   NewPostgresPreferenceStore(db, logger),
		Notifications: NewPostgresNotificationStore(db, logger),
		Claims:        NewPostgresClaimStore(db, logger),
		Users:         NewPostgresUserStore(db, logger),
		Transactor:    NewTransactor(db, logger),
	}
}
