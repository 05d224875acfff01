package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-booking/internal/logger"
)

// Consumer appends every reservation event to an audit log file.
type Consumer struct {
	url     string
	logPath string
}

func NewConsumer(url, logPath string) *Consumer {
	if logPath == "" {
		logPath = filepath.Join("logs", "reservations.log")
	}
	return &Consumer{url: url, logPath: logPath}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff when the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	log := logger.Get().With("component", "reservation-consumer")
	backoff := time.Second
	for {
		conn, err := dial(c.url, DialTimeout)
		if err != nil {
			log.Warn("failed to dial broker", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Get().Warn("set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(f, d.Body); err != nil {
				logger.Get().Error("handle message failed", "error", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event and writes it as a single log line.
func HandleMessage(w io.Writer, body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type != EventReservationCreated && ev.Type != EventReservationCancelled {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	line := fmt.Sprintf("[%s] %s | reservation_id=%d | user_id=%d | screening_id=%d | movie_id=%d | hall_id=%d | at=%s %s | seats_left=%d",
		ev.OccurredAt.Format(time.RFC3339), ev.Type, ev.ReservationID, ev.UserID, ev.ScreeningID,
		ev.MovieID, ev.HallID, ev.Date, ev.Time, ev.SeatsLeft)
	if ev.OrderID != "" {
		line += " | order_id=" + ev.OrderID
	}
	_, err := io.WriteString(w, line+"\n")
	if err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
