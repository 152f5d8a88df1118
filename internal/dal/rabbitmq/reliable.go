package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/trade/internal/service/models/outbox"
	"github.com/streadway/amqp"
)

// Publisher sends one message to an exchange.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// ReliablePublisher publishes JSON payloads to a queue and parks failed publishes in the outbox.
type ReliablePublisher struct {
	publisher     Publisher
	outboxRepo    ioutboxrepo.IOutboxRepository
	maxRetries    int
	retryInterval time.Duration
}

// NewReliablePublisher creates a ReliablePublisher.
func NewReliablePublisher(
	publisher Publisher,
	outboxRepo ioutboxrepo.IOutboxRepository,
	maxRetries int,
	retryInterval time.Duration,
) *ReliablePublisher {
	return &ReliablePublisher{
		publisher:     publisher,
		outboxRepo:    outboxRepo,
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
	}
}

// PublishJSON publishes payload to queue through the default exchange. It returns an error only
// when neither the broker nor the outbox accepted the message.
func (p *ReliablePublisher) PublishJSON(ctx context.Context, queue, messageID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pubErr := p.publisher.Publish(ctx, "", queue, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if pubErr == nil {
		return nil
	}

	slog.Warn("Failed to publish message, saving to outbox",
		"queue", queue,
		"message_id", messageID,
		"error", pubErr,
	)

	now := time.Now()
	err = p.outboxRepo.Insert(ctx, outbox.OutboxMessage{
		MessageID:   messageID,
		QueueName:   queue,
		RoutingKey:  queue,
		Payload:     body,
		ContentType: "application/json",
		MaxRetries:  p.maxRetries,
		LastError:   pubErr.Error(),
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now.Add(p.retryInterval),
	})
	if err != nil {
		return errors.Join(pubErr, fmt.Errorf("failed to save message to outbox: %w", err))
	}

	return nil
}
