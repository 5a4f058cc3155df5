package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

// PostgresScheduleStore implements store.ScheduleStore. Offsets are kept
// as a JSONB array.
type PostgresScheduleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresScheduleStore creates a schedule store on a connection or transaction.
func NewPostgresScheduleStore(db store.DBTX, logger *slog.Logger) *PostgresScheduleStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresScheduleStore{
		db:     db,
		logger: logger.With(slog.String("component", "schedule_store")),
	}
}

var _ store.ScheduleStore = (*PostgresScheduleStore)(nil)

// Get implements store.ScheduleStore.Get
func (s *PostgresScheduleStore) Get(ctx context.Context, taskID uuid.UUID) (*domain.ReminderSchedule, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT reminder_offsets FROM reminder_schedules WHERE task_id = $1`, taskID).Scan(&raw)
	if err != nil {
		return nil, MapError(err, store.ErrScheduleNotFound)
	}

	sched := &domain.ReminderSchedule{TaskID: taskID}
	if err := json.Unmarshal(raw, &sched.Offsets); err != nil {
		s.logger.Error("stored reminder offsets are not a JSON array",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: reminder offsets for task %s: %v", store.ErrInvalidEntity, taskID, err)
	}
	return sched, nil
}

// Upsert implements store.ScheduleStore.Upsert
func (s *PostgresScheduleStore) Upsert(ctx context.Context, schedule *domain.ReminderSchedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	offsets := schedule.Offsets
	if offsets == nil {
		offsets = []int{}
	}

	raw, err := json.Marshal(offsets)
	if err != nil {
		return fmt.Errorf("failed to encode reminder offsets: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reminder_schedules (task_id, reminder_offsets)
		VALUES ($1, $2)
		ON CONFLICT (task_id) DO UPDATE SET reminder_offsets = EXCLUDED.reminder_offsets`,
		schedule.TaskID, string(raw))
	if err != nil {
		return store.NewStoreError("reminder schedule", "upsert", "insert failed", MapError(err, nil))
	}
	return nil
}
