package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/redact"
	"golang.org/x/sync/errgroup"
)

// DefaultChannelTimeout bounds a single channel call.
const DefaultChannelTimeout = 5 * time.Second

// ErrChannelTimeout is reported when a channel exceeds its time budget.
var ErrChannelTimeout = errors.New("channel timed out")

// ErrChannelPanic wraps a panic recovered from a channel.
var ErrChannelPanic = errors.New("channel panicked")

// Status is the outcome of one channel for one notification.
type Status string

// Channel outcomes
const (
	StatusDelivered Status = "delivered"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// ChannelResult records what one channel did.
type ChannelResult struct {
	Channel string
	Status  Status
	Err     error
}

// DispatchResult lists every channel's outcome in pipeline order.
type DispatchResult struct {
	Notification *domain.Notification
	Channels     []ChannelResult
}

// Delivered reports whether the named channel delivered.
func (r DispatchResult) Delivered(name string) bool {
	return r.status(name) == StatusDelivered
}

// Failed reports whether the named channel failed.
func (r DispatchResult) Failed(name string) bool {
	return r.status(name) == StatusFailed
}

// Skipped reports whether the named channel was skipped.
func (r DispatchResult) Skipped(name string) bool {
	return r.status(name) == StatusSkipped
}

// AnyDelivered reports whether at least one channel delivered.
func (r DispatchResult) AnyDelivered() bool {
	for _, c := range r.Channels {
		if c.Status == StatusDelivered {
			return true
		}
	}
	return false
}

func (r DispatchResult) status(name string) Status {
	for _, c := range r.Channels {
		if c.Channel == name {
			return c.Status
		}
	}
	return ""
}

// Stage is a set of channels that run in parallel. Stages run in order.
type Stage []Channel

// Dispatcher fans a notification out over its stages.
type Dispatcher struct {
	stages  []Stage
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewDispatcher builds a dispatcher over stages. A non-positive timeout
// selects DefaultChannelTimeout.
func NewDispatcher(timeout time.Duration, logger *slog.Logger, stages ...Stage) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultChannelTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		stages:  stages,
		timeout: timeout,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "dispatcher")),
	}
}

// DefaultStages is the standard pipeline: the in-app record first, then
// realtime, bus and email together. Nil adapters leave their channel out.
func DefaultStages(inApp *InAppChannel, rt *RealtimeChannel, bus *BusChannel, email *EmailChannel) []Stage {
	first := Stage{}
	if inApp != nil {
		first = append(first, inApp)
	}
	second := Stage{}
	if rt != nil {
		second = append(second, rt)
	}
	if bus != nil {
		second = append(second, bus)
	}
	if email != nil {
		second = append(second, email)
	}
	return []Stage{first, second}
}

// Dispatch delivers n on every channel pref allows. It assigns the
// notification ID and creation time when unset. Channel failures are
// logged and reported in the result; Dispatch never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification, pref domain.NotificationPreference) DispatchResult {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now().UTC()
	}

	result := DispatchResult{Notification: n}
	if err := n.Validate(); err != nil {
		for _, stage := range d.stages {
			for _, ch := range stage {
				result.Channels = append(result.Channels, ChannelResult{Channel: ch.Name(), Status: StatusFailed, Err: err})
			}
		}
		d.logger.Error("refusing to dispatch invalid notification",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", err.Error()))
		return result
	}

	for _, stage := range d.stages {
		results := make([]ChannelResult, len(stage))
		var g errgroup.Group
		for i, ch := range stage {
			i, ch := i, ch
			if !ch.Enabled(pref) {
				results[i] = ChannelResult{Channel: ch.Name(), Status: StatusSkipped}
				continue
			}
			g.Go(func() error {
				results[i] = d.run(ctx, ch, n)
				return nil
			})
		}
		_ = g.Wait()
		result.Channels = append(result.Channels, results...)
	}

	for _, r := range result.Channels {
		if r.Status == StatusFailed {
			d.logger.Warn("channel delivery failed",
				slog.String("channel", r.Channel),
				slog.String("notification_id", n.ID.String()),
				slog.String("user_id", n.UserID.String()),
				slog.String("type", string(n.Type)),
				slog.String("error", redact.Error(r.Err)))
		}
	}
	return result
}

// run calls one channel under the timeout, converting panics to failures.
// A channel that ignores cancellation is abandoned once the timeout fires.
func (d *Dispatcher) run(ctx context.Context, ch Channel, n *domain.Notification) ChannelResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrChannelPanic, r)
			}
		}()
		done <- ch.Deliver(ctx, n)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrChannelTimeout
	}

	switch {
	case err == nil:
		return ChannelResult{Channel: ch.Name(), Status: StatusDelivered}
	case errors.Is(err, ErrSkip):
		return ChannelResult{Channel: ch.Name(), Status: StatusSkipped}
	case errors.Is(err, context.DeadlineExceeded):
		return ChannelResult{Channel: ch.Name(), Status: StatusFailed, Err: fmt.Errorf("%w: %v", ErrChannelTimeout, err)}
	default:
		return ChannelResult{Channel: ch.Name(), Status: StatusFailed, Err: err}
	}
}
