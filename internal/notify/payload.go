package notify

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
)

// Payload is the JSON body shared by the realtime and bus channels.
type Payload struct {
	NotificationID uuid.UUID               `json:"notification_id"`
	UserID         uuid.UUID               `json:"user_id"`
	Title          string                  `json:"title"`
	Message        string                  `json:"message"`
	Type           domain.NotificationType `json:"type"`
	TaskID         *uuid.UUID              `json:"task_id"`
	ProjectID      *uuid.UUID              `json:"project_id"`
	CreatedAt      time.Time               `json:"created_at"`
}

// NewPayload projects a notification onto its wire form.
func NewPayload(n *domain.Notification) Payload {
	return Payload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Title:          n.Title,
		Message:        n.Message,
		Type:           n.Type,
		TaskID:         n.TaskID,
		ProjectID:      n.ProjectID,
		CreatedAt:      n.CreatedAt,
	}
}

// Encode marshals the payload.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// RoutingKey maps a notification type to its bus routing key. Task reminders
// use task.reminder.{d}_days; everything else uses notification.{type}.
func RoutingKey(typ domain.NotificationType) string {
	if rest, ok := strings.CutPrefix(string(typ), "reminder_"); ok {
		return "task.reminder." + rest
	}
	return "notification." + string(typ)
}
