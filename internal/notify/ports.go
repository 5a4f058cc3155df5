package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
)

// EmailSender delivers a rendered notification email.
type EmailSender interface {
	SendNotificationEmail(ctx context.Context, to string, typ domain.NotificationType, data EmailData) error
}

// Pusher delivers a realtime payload to every live session of a user.
type Pusher interface {
	PublishToUser(ctx context.Context, userID uuid.UUID, payload []byte) error
}

// Publisher writes a durable message to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, topic, routingKey string, payload []byte) error
}

// EmailData is what an email template can render.
type EmailData struct {
	RecipientID uuid.UUID
	Title       string
	Message     string
	Priority    domain.Priority
	TaskID      *uuid.UUID
	ProjectID   *uuid.UUID
	CreatedAt   time.Time
}

func emailDataFor(n *domain.Notification) EmailData {
	return EmailData{
		RecipientID: n.UserID,
		Title:       n.Title,
		Message:     n.Message,
		Priority:    n.Priority,
		TaskID:      n.TaskID,
		ProjectID:   n.ProjectID,
		CreatedAt:   n.CreatedAt,
	}
}
