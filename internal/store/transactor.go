package store

import "context"

// Tx exposes the stores that take part in a multi-record transaction.
type Tx interface {
	Tasks() TaskStore
	Schedules() ScheduleStore
	Preferences() PreferenceStore
}

// Transactor runs fn atomically: every write made through tx is committed
// when fn returns nil and discarded otherwise.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
