package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project groups tasks under a shared due date. Unlike a task, a project has
// no single responsible owner: the creator and all collaborators share it.
type Project struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	DueDate         *time.Time  `json:"due_date,omitempty"`
	Status          Status      `json:"status"`
	CreatorID       uuid.UUID   `json:"creator_id"`
	CollaboratorIDs []uuid.UUID `json:"collaborator_ids"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Active reports whether the project can still trigger reminders.
func (p *Project) Active() bool {
	return p.DueDate != nil && !p.Status.IsTerminal()
}

// Stakeholders returns the creator followed by collaborators, deduplicated.
func (p *Project) Stakeholders() []uuid.UUID {
	return uniqueIDs(append([]uuid.UUID{p.CreatorID}, p.CollaboratorIDs...))
}
