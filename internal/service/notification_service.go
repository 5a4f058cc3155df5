package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/store"
)

// Listing limits for a user's notifications.
const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

// NotificationList is one page of a user's notifications, newest first.
type NotificationList struct {
	Notifications []*domain.Notification `json:"notifications"`
	Unread        int                    `json:"unread"`
}

// ChannelOutcome is what one channel did with a created notification.
type ChannelOutcome struct {
	Channel string        `json:"channel"`
	Status  notify.Status `json:"status"`
}

// CreateResult is a notification pushed through the dispatcher.
type CreateResult struct {
	Notification *domain.Notification `json:"notification"`
	Channels     []ChannelOutcome     `json:"channels"`
}

// NotificationService reads and acknowledges in-app notifications, and lets
// other services push arbitrary ones.
type NotificationService interface {
	// Create dispatches n to its recipient on every channel the recipient's
	// preferences allow. No dedup is applied. It fails when the in-app
	// record could not be stored.
	Create(ctx context.Context, n *domain.Notification) (*CreateResult, error)

	// List returns at most limit notifications plus the unread count.
	// limit <= 0 selects DefaultNotificationLimit; larger values are capped.
	List(ctx context.Context, userID uuid.UUID, limit int) (*NotificationList, error)

	// MarkRead flags one of the user's notifications as read.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error

	// MarkAllRead flags every unread notification and returns how many changed.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
}

type notificationServiceImpl struct {
	notifications store.NotificationStore
	prefs         *notify.PreferenceResolver
	dispatcher    *notify.Dispatcher
	logger        *slog.Logger
}

// NewNotificationService creates a NotificationService.
// It returns an error if any of the required dependencies are nil.
func NewNotificationService(
	notifications store.NotificationStore,
	prefs *notify.PreferenceResolver,
	dispatcher *notify.Dispatcher,
	logger *slog.Logger,
) (NotificationService, error) {
	switch {
	case notifications == nil:
		return nil, fmt.Errorf("%w: notification store cannot be nil", domain.ErrValidation)
	case prefs == nil:
		return nil, fmt.Errorf("%w: preference resolver cannot be nil", domain.ErrValidation)
	case dispatcher == nil:
		return nil, fmt.Errorf("%w: dispatcher cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationServiceImpl{
		notifications: notifications,
		prefs:         prefs,
		dispatcher:    dispatcher,
		logger:        logger.With(slog.String("component", "notification_service")),
	}, nil
}

func (s *notificationServiceImpl) Create(ctx context.Context, n *domain.Notification) (*CreateResult, error) {
	if err := n.Validate(); err != nil {
		return nil, NewServiceError("CreateNotification", "", err)
	}
	pref, err := s.prefs.Resolve(ctx, n.UserID, n.TaskID)
	if err != nil {
		return nil, NewServiceError("CreateNotification", "resolve preferences", err)
	}

	result := s.dispatcher.Dispatch(ctx, n, pref)
	out := &CreateResult{Notification: n, Channels: make([]ChannelOutcome, 0, len(result.Channels))}
	for _, c := range result.Channels {
		if c.Channel == notify.ChannelInApp && c.Status == notify.StatusFailed {
			return nil, NewServiceError("CreateNotification", "store notification", c.Err)
		}
		out.Channels = append(out.Channels, ChannelOutcome{Channel: c.Channel, Status: c.Status})
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("notification created",
		slog.String("notification_id", n.ID.String()),
		slog.String("user_id", n.UserID.String()),
		slog.String("type", string(n.Type)))
	return out, nil
}

func (s *notificationServiceImpl) List(ctx context.Context, userID uuid.UUID, limit int) (*NotificationList, error) {
	switch {
	case limit <= 0:
		limit = DefaultNotificationLimit
	case limit > MaxNotificationLimit:
		limit = MaxNotificationLimit
	}

	items, err := s.notifications.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, NewServiceError("ListNotifications", "", err)
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, NewServiceError("ListNotifications", "count unread", err)
	}
	if items == nil {
		items = []*domain.Notification{}
	}
	return &NotificationList{Notifications: items, Unread: unread}, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.notifications.MarkRead(ctx, id, userID); err != nil {
		return NewServiceError("MarkRead", "", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Debug("notification marked read",
		slog.String("notification_id", id.String()),
		slog.String("user_id", userID.String()))
	return nil
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, NewServiceError("MarkAllRead", "", err)
	}
	return n, nil
}
