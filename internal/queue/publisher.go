package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-booking/internal/logger"
)

// DialTimeout bounds the TCP connect and AMQP handshake of one dial.
const DialTimeout = 3 * time.Second

// redialBackoff is how long Publish fails fast after a failed dial.
const redialBackoff = time.Second

var errBrokerDown = errors.New("rabbitmq unavailable")

// dial opens a connection whose connect and handshake give up after timeout.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// Publisher sends reservation events to RabbitMQ over one long-lived
// connection, redialling lazily after the broker drops it. Dials run
// outside the lock and never outlast the caller's deadline.
type Publisher struct {
	url string
	now func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url, now: time.Now} }

func (p *Publisher) healthyLocked() bool {
	return p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed()
}

func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.healthyLocked() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.now().Before(p.retryAt) {
		p.mu.Unlock()
		return nil, errBrokerDown
	}
	p.mu.Unlock()

	timeout := DialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, ctx.Err()
		}
		timeout = min(timeout, left)
	}
	conn, ch, err := p.open(timeout)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.retryAt = p.now().Add(redialBackoff)
		return nil, err
	}
	if p.healthyLocked() {
		// Another caller reconnected first.
		_ = ch.Close()
		_ = conn.Close()
		return p.ch, nil
	}
	p.closeLocked()
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) open(timeout time.Duration) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := dial(p.url, timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial: %w", errBrokerDown, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	return conn, ch, nil
}

// Publish sends ev as a persistent JSON message on the default exchange.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.mu.Lock()
		if p.ch == ch {
			p.closeLocked()
		}
		p.mu.Unlock()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// LogPublisher writes events to the structured log instead of a broker.
// It is used when no broker URL is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
	logger.WithContext(ctx).Info("reservation event",
		"type", ev.Type, "reservation_id", ev.ReservationID, "screening_id", ev.ScreeningID)
	return nil
}
