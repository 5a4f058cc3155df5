package domain

import "github.com/google/uuid"

// NotificationPreference toggles delivery channels for one user on one task.
// A missing record means every channel is enabled.
type NotificationPreference struct {
	UserID       uuid.UUID `json:"user_id"`
	TaskID       uuid.UUID `json:"task_id"`
	EmailEnabled bool      `json:"email_enabled"`
	InAppEnabled bool      `json:"in_app_enabled"`
}

// DefaultPreference enables every channel.
func DefaultPreference(userID, taskID uuid.UUID) NotificationPreference {
	return NotificationPreference{
		UserID:       userID,
		TaskID:       taskID,
		EmailEnabled: true,
		InAppEnabled: true,
	}
}

// ForTask returns a copy of the preference bound to another task.
func (p NotificationPreference) ForTask(taskID uuid.UUID) NotificationPreference {
	p.TaskID = taskID
	return p
}
