// Package amqp publishes notification events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("amqp: publisher closed")

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// connection is the subset of *amqp091.Connection the publisher uses.
type connection interface {
	Channel() (channel, error)
	Close() error
}

// DefaultDialTimeout bounds the TCP connect to the broker.
const DefaultDialTimeout = 5 * time.Second

// Dialer opens a broker connection.
type Dialer func(url string) (connection, error)

type amqpConnection struct {
	*amqp091.Connection
}

func (c amqpConnection) Channel() (channel, error) {
	return c.Connection.Channel()
}

// dialerWithTimeout returns a Dialer whose TCP connect gives up after timeout.
func dialerWithTimeout(timeout time.Duration) Dialer {
	return func(url string) (connection, error) {
		conn, err := amqp091.DialConfig(url, amqp091.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp091.DefaultDial(timeout),
		})
		if err != nil {
			return nil, err
		}
		return amqpConnection{conn}, nil
	}
}

// Publisher sends persistent JSON messages. The connection is opened on first
// use; a failed publish reconnects once and retries before giving up.
type Publisher struct {
	url    string
	dial   Dialer
	logger *slog.Logger

	mu       sync.Mutex
	conn     connection
	ch       channel
	declared map[string]bool
	closed   bool
}

// NewPublisher returns a publisher for the broker at url. A non-positive
// dialTimeout selects DefaultDialTimeout.
func NewPublisher(url string, dialTimeout time.Duration, logger *slog.Logger) *Publisher {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	return newPublisher(url, dialerWithTimeout(dialTimeout), logger)
}

func newPublisher(url string, dial Dialer, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		url:      url,
		dial:     dial,
		logger:   logger.With(slog.String("component", "amqp_publisher")),
		declared: make(map[string]bool),
	}
}

// Publish sends payload to the durable topic exchange with routingKey. A
// caller whose ctx ended while another publish held the connection returns
// without touching the broker.
func (p *Publisher) Publish(ctx context.Context, topic, routingKey string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.closed {
		return ErrPublisherClosed
	}

	err := p.publishLocked(ctx, topic, routingKey, payload)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.logger.Warn("publish failed, reconnecting",
		slog.String("exchange", topic),
		slog.String("routing_key", routingKey),
		slog.String("error", err.Error()))
	p.resetLocked()

	if err := p.publishLocked(ctx, topic, routingKey, payload); err != nil {
		p.resetLocked()
		return fmt.Errorf("publish to %s with key %s: %w", topic, routingKey, err)
	}
	return nil
}

func (p *Publisher) publishLocked(ctx context.Context, topic, routingKey string, payload []byte) error {
	if err := p.ensureLocked(topic); err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, topic, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
}

func (p *Publisher) ensureLocked(topic string) error {
	if p.ch == nil {
		conn, err := p.dial(p.url)
		if err != nil {
			return fmt.Errorf("dial broker: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("open channel: %w", err)
		}
		p.conn = conn
		p.ch = ch
		p.declared = make(map[string]bool)
	}
	if !p.declared[topic] {
		if err := p.ch.ExchangeDeclare(topic, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", topic, err)
		}
		p.declared[topic] = true
	}
	return nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.resetLocked()
	return nil
}
