// Package service provides the broker-backed confirmation relay. Events
// are published to RabbitMQ and delivered by the queue consumer.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/exam-registration/internal/booking"
	"github.com/iliyamo/exam-registration/internal/queue"
)

// QueuePublisher hands confirmations to the broker instead of emailing
// inline. It satisfies booking.Notifier.
type QueuePublisher struct {
	url    string
	logger *slog.Logger
}

// NewQueuePublisher returns a publisher for the broker at url.
func NewQueuePublisher(url string) *QueuePublisher {
	return &QueuePublisher{url: url, logger: slog.Default().With("component", "queue-publisher")}
}

// NotifyConfirmation publishes a RegistrationConfirmedEvent to the
// durable confirmation queue. Messages are marked as persistent.
func (p *QueuePublisher) NotifyConfirmation(ctx context.Context, c booking.Confirmation) error {
	return p.Publish(ctx, queue.NewRegistrationConfirmed(c))
}

// Publish sends one event. Any error is logged and returned so the
// caller can choose to ignore it.
func (p *QueuePublisher) Publish(ctx context.Context, event queue.RegistrationConfirmedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue.ConfirmationQueue, // name
		true,                    // durable
		false,                   // autoDelete
		false,                   // exclusive
		false,                   // noWait
		nil,                     // args
	); err != nil {
		p.logger.Warn("queue declare failed", "err", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    event.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                      // default exchange
		queue.ConfirmationQueue, // routing key = queue name
		false,                   // mandatory
		false,                   // immediate
		pub,
	); err != nil {
		p.logger.Warn("publish failed", "err", err)
		return err
	}
	p.logger.Info("confirmation queued", "event_id", event.EventID,
		"registration_id", event.Registration.RegistrationID)
	return nil
}
