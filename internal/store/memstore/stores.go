package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

type taskStore struct{ b backend }

var _ store.TaskStore = (*taskStore)(nil)

func (s *taskStore) Create(_ context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if err := s.b.beforeTaskCreate(task); err != nil {
		return err
	}
	rec := copyTask(task)
	return s.b.write(func(d *dataset) error { return d.createTask(rec) })
}

func (s *taskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	var out *domain.Task
	s.b.read(func(d *dataset) {
		if t, ok := d.tasks[id]; ok {
			out = copyTask(t)
		}
	})
	if out == nil {
		return nil, store.ErrTaskNotFound
	}
	return out, nil
}

func (s *taskStore) ListActive(_ context.Context) ([]*domain.Task, error) {
	var out []*domain.Task
	s.b.read(func(d *dataset) {
		out = d.listTasks(func(t *domain.Task) bool { return t.Active() })
	})
	return out, nil
}

func (s *taskStore) ListOverdue(_ context.Context, cutoff time.Time) ([]*domain.Task, error) {
	var out []*domain.Task
	s.b.read(func(d *dataset) {
		out = d.listTasks(func(t *domain.Task) bool {
			return t.Active() && t.DueDate.Before(cutoff)
		})
	})
	return out, nil
}

func (s *taskStore) ListSubtasks(_ context.Context, parentID uuid.UUID) ([]*domain.Task, error) {
	var out []*domain.Task
	s.b.read(func(d *dataset) {
		out = d.listTasks(func(t *domain.Task) bool {
			return t.IsSubtask() && *t.ParentTaskID == parentID
		})
	})
	return out, nil
}

func (s *taskStore) MarkCompleted(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	var changed bool
	err := s.b.write(func(d *dataset) error {
		var err error
		changed, err = d.markCompleted(id, at)
		return err
	})
	return changed, err
}

func (s *taskStore) UpdateDueDate(_ context.Context, id uuid.UUID, due *time.Time, at time.Time) error {
	due = copyTime(due)
	return s.b.write(func(d *dataset) error {
		return d.updateTask(id, func(t *domain.Task) {
			t.DueDate = copyTime(due)
			t.UpdatedAt = at
		})
	})
}

func (s *taskStore) ClearRecurrence(_ context.Context, id uuid.UUID, at time.Time) error {
	return s.b.write(func(d *dataset) error {
		return d.updateTask(id, func(t *domain.Task) {
			t.RecurrenceRule = domain.RecurrenceNone
			t.UpdatedAt = at
		})
	})
}

type projectStore struct{ b backend }

var _ store.ProjectStore = (*projectStore)(nil)

func (s *projectStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	var out *domain.Project
	s.b.read(func(d *dataset) {
		if p, ok := d.projects[id]; ok {
			out = copyProject(p)
		}
	})
	if out == nil {
		return nil, store.ErrProjectNotFound
	}
	return out, nil
}

func (s *projectStore) ListActive(_ context.Context) ([]*domain.Project, error) {
	var out []*domain.Project
	s.b.read(func(d *dataset) {
		out = d.listProjects(func(p *domain.Project) bool { return p.Active() })
	})
	return out, nil
}

func (s *projectStore) ListOverdue(_ context.Context, cutoff time.Time) ([]*domain.Project, error) {
	var out []*domain.Project
	s.b.read(func(d *dataset) {
		out = d.listProjects(func(p *domain.Project) bool {
			return p.Active() && p.DueDate.Before(cutoff)
		})
	})
	return out, nil
}

type scheduleStore struct{ b backend }

var _ store.ScheduleStore = (*scheduleStore)(nil)

func (s *scheduleStore) Get(_ context.Context, taskID uuid.UUID) (*domain.ReminderSchedule, error) {
	var out *domain.ReminderSchedule
	s.b.read(func(d *dataset) {
		if sc, ok := d.schedules[taskID]; ok {
			out = sc.ForTask(taskID)
		}
	})
	if out == nil {
		return nil, store.ErrScheduleNotFound
	}
	return out, nil
}

func (s *scheduleStore) Upsert(_ context.Context, schedule *domain.ReminderSchedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	rec := schedule.ForTask(schedule.TaskID)
	return s.b.write(func(d *dataset) error {
		d.schedules[rec.TaskID] = rec
		return nil
	})
}

type preferenceStore struct{ b backend }

var _ store.PreferenceStore = (*preferenceStore)(nil)

func (s *preferenceStore) Get(_ context.Context, userID, taskID uuid.UUID) (*domain.NotificationPreference, error) {
	var (
		out domain.NotificationPreference
		ok  bool
	)
	s.b.read(func(d *dataset) {
		out, ok = d.prefs[prefKey{user: userID, task: taskID}]
	})
	if !ok {
		return nil, store.ErrPreferenceNotFound
	}
	return &out, nil
}

func (s *preferenceStore) ListForTask(_ context.Context, taskID uuid.UUID) ([]domain.NotificationPreference, error) {
	var out []domain.NotificationPreference
	s.b.read(func(d *dataset) {
		for k, p := range d.prefs {
			if k.task == taskID {
				out = append(out, p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out, nil
}

func (s *preferenceStore) Upsert(_ context.Context, pref domain.NotificationPreference) error {
	return s.b.write(func(d *dataset) error {
		d.prefs[prefKey{user: pref.UserID, task: pref.TaskID}] = pref
		return nil
	})
}

type notificationStore struct{ b backend }

var _ store.NotificationStore = (*notificationStore)(nil)

func (s *notificationStore) Create(_ context.Context, n *domain.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	rec := copyNotification(n)
	return s.b.write(func(d *dataset) error {
		for _, existing := range d.notifications {
			if existing.ID == rec.ID {
				return store.ErrDuplicate
			}
		}
		d.notifications = append(d.notifications, rec)
		return nil
	})
}

func (s *notificationStore) ExistsSince(_ context.Context, userID, subjectID uuid.UUID, typ domain.NotificationType, since time.Time) (bool, error) {
	var found bool
	s.b.read(func(d *dataset) {
		for _, n := range d.notifications {
			if n.UserID == userID && n.Type == typ && n.SubjectID() == subjectID && !n.CreatedAt.Before(since) {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (s *notificationStore) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	s.b.read(func(d *dataset) {
		for i := len(d.notifications) - 1; i >= 0; i-- {
			if limit > 0 && len(out) == limit {
				return
			}
			if n := d.notifications[i]; n.UserID == userID {
				out = append(out, copyNotification(n))
			}
		}
	})
	return out, nil
}

func (s *notificationStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	s.b.read(func(d *dataset) {
		for _, n := range d.notifications {
			if n.UserID == userID && !n.IsRead {
				count++
			}
		}
	})
	return count, nil
}

func (s *notificationStore) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	return s.b.write(func(d *dataset) error {
		for i, n := range d.notifications {
			if n.ID == id && n.UserID == userID {
				c := copyNotification(n)
				c.IsRead = true
				d.notifications[i] = c
				return nil
			}
		}
		return store.ErrNotificationNotFound
	})
}

func (s *notificationStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	changed := 0
	err := s.b.write(func(d *dataset) error {
		changed = 0
		for i, n := range d.notifications {
			if n.UserID == userID && !n.IsRead {
				c := copyNotification(n)
				c.IsRead = true
				d.notifications[i] = c
				changed++
			}
		}
		return nil
	})
	return changed, err
}

type claimStore struct{ b backend }

var _ store.ClaimStore = (*claimStore)(nil)

func (s *claimStore) Claim(_ context.Context, claim domain.NotificationClaim) (bool, error) {
	var won bool
	err := s.b.write(func(d *dataset) error {
		won = d.claim(claim)
		return nil
	})
	return won, err
}

func (s *claimStore) ClaimedSince(_ context.Context, userID, subjectID uuid.UUID, typ domain.NotificationType, since time.Time) (bool, error) {
	var found bool
	s.b.read(func(d *dataset) { found = d.claimedSince(userID, subjectID, typ, since) })
	return found, nil
}

type userStore struct{ b backend }

var _ store.UserStore = (*userStore)(nil)

func (s *userStore) LookupByName(_ context.Context, name string) (uuid.UUID, error) {
	var (
		id uuid.UUID
		ok bool
	)
	s.b.read(func(d *dataset) { id, ok = d.lookupByName(name) })
	if !ok {
		return uuid.Nil, store.ErrUserNotFound
	}
	return id, nil
}

func (s *userStore) GetEmail(_ context.Context, userID uuid.UUID) (string, error) {
	var (
		u  domain.User
		ok bool
	)
	s.b.read(func(d *dataset) { u, ok = d.users[userID] })
	if !ok {
		return "", store.ErrUserNotFound
	}
	return u.Email, nil
}
