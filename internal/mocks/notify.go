package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/stretchr/testify/mock"
)

// MockEmailSender is a testify mock of notify.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

var _ notify.EmailSender = (*MockEmailSender)(nil)

// SendNotificationEmail records the call and returns the configured error.
func (m *MockEmailSender) SendNotificationEmail(
	ctx context.Context,
	to string,
	typ domain.NotificationType,
	data notify.EmailData,
) error {
	args := m.Called(ctx, to, typ, data)
	return args.Error(0)
}

// MockPusher is a testify mock of notify.Pusher.
type MockPusher struct {
	mock.Mock
}

var _ notify.Pusher = (*MockPusher)(nil)

// PublishToUser records the call and returns the configured error.
func (m *MockPusher) PublishToUser(ctx context.Context, userID uuid.UUID, payload []byte) error {
	args := m.Called(ctx, userID, payload)
	return args.Error(0)
}

// MockPublisher is a testify mock of notify.Publisher.
type MockPublisher struct {
	mock.Mock
}

var _ notify.Publisher = (*MockPublisher)(nil)

// Publish records the call and returns the configured error.
func (m *MockPublisher) Publish(ctx context.Context, topic, routingKey string, payload []byte) error {
	args := m.Called(ctx, topic, routingKey, payload)
	return args.Error(0)
}
