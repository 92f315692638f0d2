package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/exam-registration/internal/booking"
)

// Consumer drains the confirmation queue, emails each student and
// appends an audit line to <LogDir>/registrations.log.
type Consumer struct {
	URL      string
	Notifier booking.Notifier
	LogDir   string
	logger   *slog.Logger
}

// NewConsumer returns a consumer. An empty logDir defaults to "logs".
func NewConsumer(url string, n booking.Notifier, logDir string) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	return &Consumer{URL: url, Notifier: n, LogDir: logDir,
		logger: slog.Default().With("component", "confirmation-consumer")}
}

// Run connects to RabbitMQ, declares the durable queue and consumes
// until ctx is canceled. Broker failures trigger a reconnect with
// exponential backoff; a bad message is rejected without requeue so the
// loop keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.logger.Warn("failed to dial broker", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("set QoS failed", "err", err)
	}

	if _, err := ch.QueueDeclare(ConfirmationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(ConfirmationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.logger.Error("handle message failed", "err", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev RegistrationConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	r := ev.Registration
	if r.RegistrationID == 0 || r.ConfirmationCode == "" {
		return fmt.Errorf("event %s has no registration", ev.EventID)
	}

	sendErr := c.Notifier.NotifyConfirmation(ctx, r)
	outcome := "sent"
	if sendErr != nil {
		outcome = "failed"
	}
	line := fmt.Sprintf("[%s] Registration confirmed | event_id=%s | registration_id=%d | code=%s | email=%s | exam=%q | date=%s | location=%q | replaced=%d | email_status=%s\n",
		ev.OccurredAt, ev.EventID, r.RegistrationID, r.ConfirmationCode, r.Email, r.CourseCode+" "+r.ExamType,
		r.ExamDate, r.Location, r.ReplacedRegistrationID, outcome)
	if err := c.appendLog(line); err != nil {
		return err
	}
	if sendErr != nil {
		return fmt.Errorf("notify %s: %w", r.ConfirmationCode, sendErr)
	}
	return nil
}

func (c *Consumer) appendLog(line string) error {
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, "registrations.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
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
