package domain

import "github.com/google/uuid"

// Comment is text posted on a task by an author. Comments themselves are
// stored by the surrounding application; the engine only reads them to
// resolve mentions.
type Comment struct {
	TaskID   uuid.UUID `json:"task_id"`
	AuthorID uuid.UUID `json:"author_id"`
	Text     string    `json:"text"`
}
