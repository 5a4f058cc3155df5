// Package memstore is an in-memory implementation of the store interfaces.
// It backs the engine when no database is configured and serves as the
// record store in engine tests.
package memstore

import (
	"context"
	"sync"

	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

// backend is the data access seam shared by the committed store and open
// transactions.
type backend interface {
	read(fn func(d *dataset))
	write(fn func(d *dataset) error) error
	beforeTaskCreate(t *domain.Task) error
}

// Store holds all records behind a single lock. The zero value is not
// usable; call New.
type Store struct {
	mu   sync.RWMutex
	data *dataset
	// txMu serializes transaction commits with each other.
	txMu sync.Mutex

	hookMu   sync.RWMutex
	taskHook func(t *domain.Task) error
}

// New returns an empty store.
func New() *Store {
	return &Store{data: newDataset()}
}

var _ store.Transactor = (*Store)(nil)

func (s *Store) read(fn func(d *dataset)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(d *dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) beforeTaskCreate(t *domain.Task) error {
	s.hookMu.RLock()
	hook := s.taskHook
	s.hookMu.RUnlock()
	if hook == nil {
		return nil
	}
	return hook(t)
}

// SetTaskCreateHook installs fn to run before every task insert; a non-nil
// error aborts the insert. Tests use it to inject storage failures.
func (s *Store) SetTaskCreateHook(fn func(t *domain.Task) error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.taskHook = fn
}

// Tasks returns the task store.
func (s *Store) Tasks() store.TaskStore { return &taskStore{b: s} }

// Projects returns the project store.
func (s *Store) Projects() store.ProjectStore { return &projectStore{b: s} }

// Schedules returns the reminder schedule store.
func (s *Store) Schedules() store.ScheduleStore { return &scheduleStore{b: s} }

// Preferences returns the notification preference store.
func (s *Store) Preferences() store.PreferenceStore { return &preferenceStore{b: s} }

// Notifications returns the notification store.
func (s *Store) Notifications() store.NotificationStore { return &notificationStore{b: s} }

// Claims returns the dedup claim store.
func (s *Store) Claims() store.ClaimStore { return &claimStore{b: s} }

// Users returns the user directory.
func (s *Store) Users() store.UserStore { return &userStore{b: s} }

// AddUser registers a directory entry.
func (s *Store) AddUser(u domain.User) {
	_ = s.write(func(d *dataset) error {
		d.users[u.ID] = u
		return nil
	})
}

// AddProject stores a project; projects are otherwise read-only here.
func (s *Store) AddProject(p *domain.Project) {
	_ = s.write(func(d *dataset) error {
		d.projects[p.ID] = copyProject(p)
		return nil
	})
}

// RunInTx runs fn against a private copy of the data. Writes are journaled
// and replayed onto the live data on success, so writers outside the
// transaction are never lost. If replay fails nothing is applied.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	var snapshot *dataset
	s.read(func(d *dataset) { snapshot = d.clone() })

	t := &tx{parent: s, data: snapshot}
	if err := fn(ctx, t); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.write(func(d *dataset) error {
		next := d.clone()
		for _, op := range t.journal {
			if err := op(next); err != nil {
				return err
			}
		}
		s.data = next
		return nil
	})
}

// tx is an open transaction. It is used from a single goroutine.
type tx struct {
	parent  *Store
	data    *dataset
	journal []func(d *dataset) error
}

func (t *tx) read(fn func(d *dataset)) { fn(t.data) }

func (t *tx) write(fn func(d *dataset) error) error {
	if err := fn(t.data); err != nil {
		return err
	}
	t.journal = append(t.journal, fn)
	return nil
}

func (t *tx) beforeTaskCreate(task *domain.Task) error { return t.parent.beforeTaskCreate(task) }

func (t *tx) Tasks() store.TaskStore             { return &taskStore{b: t} }
func (t *tx) Schedules() store.ScheduleStore     { return &scheduleStore{b: t} }
func (t *tx) Preferences() store.PreferenceStore { return &preferenceStore{b: t} }
