package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

// Channel names reported in DispatchResult.
const (
	ChannelInApp    = "in_app"
	ChannelRealtime = "realtime"
	ChannelBus      = "bus"
	ChannelEmail    = "email"
)

// ErrSkip is returned by a channel that had nothing to do, e.g. a user
// without an email address. The dispatcher reports it as skipped.
var ErrSkip = errors.New("channel skipped")

// Channel is one delivery path for a notification.
type Channel interface {
	// Name identifies the channel in results and logs.
	Name() string

	// Enabled reports whether the user's preference allows this channel.
	Enabled(pref domain.NotificationPreference) bool

	// Deliver sends n. It must respect ctx cancellation.
	Deliver(ctx context.Context, n *domain.Notification) error
}

// InAppChannel persists the notification record.
type InAppChannel struct {
	store store.NotificationStore
}

// NewInAppChannel returns the in-app channel.
func NewInAppChannel(s store.NotificationStore) *InAppChannel {
	return &InAppChannel{store: s}
}

func (c *InAppChannel) Name() string { return ChannelInApp }

func (c *InAppChannel) Enabled(pref domain.NotificationPreference) bool { return pref.InAppEnabled }

func (c *InAppChannel) Deliver(ctx context.Context, n *domain.Notification) error {
	return c.store.Create(ctx, n)
}

// RealtimeChannel pushes the payload to the user's live sessions.
type RealtimeChannel struct {
	pusher Pusher
}

// NewRealtimeChannel returns the realtime channel.
func NewRealtimeChannel(p Pusher) *RealtimeChannel {
	return &RealtimeChannel{pusher: p}
}

func (c *RealtimeChannel) Name() string { return ChannelRealtime }

func (c *RealtimeChannel) Enabled(domain.NotificationPreference) bool { return true }

func (c *RealtimeChannel) Deliver(ctx context.Context, n *domain.Notification) error {
	body, err := NewPayload(n).Encode()
	if err != nil {
		return fmt.Errorf("encode realtime payload: %w", err)
	}
	return c.pusher.PublishToUser(ctx, n.UserID, body)
}

// BusChannel publishes the payload to the durable exchange.
type BusChannel struct {
	publisher Publisher
	exchange  string
}

// NewBusChannel returns the bus channel writing to exchange.
func NewBusChannel(p Publisher, exchange string) *BusChannel {
	return &BusChannel{publisher: p, exchange: exchange}
}

func (c *BusChannel) Name() string { return ChannelBus }

func (c *BusChannel) Enabled(domain.NotificationPreference) bool { return true }

func (c *BusChannel) Deliver(ctx context.Context, n *domain.Notification) error {
	body, err := NewPayload(n).Encode()
	if err != nil {
		return fmt.Errorf("encode bus payload: %w", err)
	}
	return c.publisher.Publish(ctx, c.exchange, RoutingKey(n.Type), body)
}

// EmailChannel looks up the recipient's address and sends an email.
type EmailChannel struct {
	sender EmailSender
	users  store.UserStore
}

// NewEmailChannel returns the email channel.
func NewEmailChannel(sender EmailSender, users store.UserStore) *EmailChannel {
	return &EmailChannel{sender: sender, users: users}
}

func (c *EmailChannel) Name() string { return ChannelEmail }

func (c *EmailChannel) Enabled(pref domain.NotificationPreference) bool { return pref.EmailEnabled }

func (c *EmailChannel) Deliver(ctx context.Context, n *domain.Notification) error {
	to, err := c.users.GetEmail(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("look up recipient address: %w", err)
	}
	if to == "" {
		return ErrSkip
	}
	return c.sender.SendNotificationEmail(ctx, to, n.Type, emailDataFor(n))
}
