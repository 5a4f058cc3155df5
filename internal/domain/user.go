package domain

import "github.com/google/uuid"

// User is a directory entry the engine can notify.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}
