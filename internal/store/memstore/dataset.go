package memstore

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

type prefKey struct {
	user uuid.UUID
	task uuid.UUID
}

type claimKey struct {
	user    uuid.UUID
	subject uuid.UUID
	typ     domain.NotificationType
	bucket  int64
}

// dataset holds every record. It does no locking of its own.
type dataset struct {
	tasks         map[uuid.UUID]*domain.Task
	projects      map[uuid.UUID]*domain.Project
	schedules     map[uuid.UUID]*domain.ReminderSchedule
	prefs         map[prefKey]domain.NotificationPreference
	notifications []*domain.Notification
	claims        map[claimKey]time.Time
	users         map[uuid.UUID]domain.User
}

func newDataset() *dataset {
	return &dataset{
		tasks:     make(map[uuid.UUID]*domain.Task),
		projects:  make(map[uuid.UUID]*domain.Project),
		schedules: make(map[uuid.UUID]*domain.ReminderSchedule),
		prefs:     make(map[prefKey]domain.NotificationPreference),
		claims:    make(map[claimKey]time.Time),
		users:     make(map[uuid.UUID]domain.User),
	}
}

// clone copies the maps. Records are immutable once stored (every write
// replaces the pointer), so sharing them between copies is safe.
func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.tasks {
		c.tasks[k] = v
	}
	for k, v := range d.projects {
		c.projects[k] = v
	}
	for k, v := range d.schedules {
		c.schedules[k] = v
	}
	for k, v := range d.prefs {
		c.prefs[k] = v
	}
	c.notifications = append(c.notifications, d.notifications...)
	for k, v := range d.claims {
		c.claims[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	return c
}

func (d *dataset) createTask(t *domain.Task) error {
	if _, ok := d.tasks[t.ID]; ok {
		return store.ErrDuplicate
	}
	d.tasks[t.ID] = copyTask(t)
	return nil
}

func (d *dataset) updateTask(id uuid.UUID, fn func(t *domain.Task)) error {
	cur, ok := d.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	next := copyTask(cur)
	fn(next)
	d.tasks[id] = next
	return nil
}

func (d *dataset) markCompleted(id uuid.UUID, at time.Time) (bool, error) {
	cur, ok := d.tasks[id]
	if !ok {
		return false, store.ErrTaskNotFound
	}
	if cur.Status == domain.StatusCompleted {
		return false, nil
	}
	return true, d.updateTask(id, func(t *domain.Task) {
		t.Status = domain.StatusCompleted
		t.UpdatedAt = at
	})
}

func (d *dataset) listTasks(match func(t *domain.Task) bool) []*domain.Task {
	var out []*domain.Task
	for _, t := range d.tasks {
		if match(t) {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (d *dataset) listProjects(match func(p *domain.Project) bool) []*domain.Project {
	var out []*domain.Project
	for _, p := range d.projects {
		if match(p) {
			out = append(out, copyProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (d *dataset) claim(c domain.NotificationClaim) bool {
	k := claimKey{user: c.UserID, subject: c.SubjectID, typ: c.Type, bucket: c.Bucket.UnixNano()}
	if _, ok := d.claims[k]; ok {
		return false
	}
	d.claims[k] = c.ClaimedAt
	return true
}

func (d *dataset) claimedSince(userID, subjectID uuid.UUID, typ domain.NotificationType, since time.Time) bool {
	for k, at := range d.claims {
		if k.user == userID && k.subject == subjectID && k.typ == typ && !at.Before(since) {
			return true
		}
	}
	return false
}

func (d *dataset) lookupByName(name string) (uuid.UUID, bool) {
	for _, u := range d.users {
		if strings.EqualFold(u.Name, name) {
			return u.ID, true
		}
	}
	return uuid.Nil, false
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	c.DueDate = copyTime(t.DueDate)
	c.ProjectID = copyID(t.ProjectID)
	c.ParentTaskID = copyID(t.ParentTaskID)
	c.CollaboratorIDs = append([]uuid.UUID(nil), t.CollaboratorIDs...)
	return &c
}

func copyProject(p *domain.Project) *domain.Project {
	c := *p
	c.DueDate = copyTime(p.DueDate)
	c.CollaboratorIDs = append([]uuid.UUID(nil), p.CollaboratorIDs...)
	return &c
}

func copyNotification(n *domain.Notification) *domain.Notification {
	c := *n
	c.TaskID = copyID(n.TaskID)
	c.ProjectID = copyID(n.ProjectID)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
