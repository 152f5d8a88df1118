package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/rabbitmq"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
)

// Worker republishes messages parked in the outbox table.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	publisher    rabbitmq.Publisher
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new outbox worker. Poll interval and batch size come from rabbitmq.outbox.*.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher rabbitmq.Publisher,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	return &Worker{
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing messages from the outbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// backoff is 30s, 60s, 120s, ... for the given attempt.
func backoff(retryCount int) time.Duration {
	return time.Duration(math.Pow(2, float64(retryCount))*30) * time.Second
}

// processMessages publishes one batch of due messages.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing outbox messages", "count", len(messages))

	for _, msg := range messages {
		err := w.publisher.Publish(ctx, msg.ExchangeName, msg.RoutingKey, amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.MessageID,
			Timestamp:    time.Now().UTC(),
			Body:         msg.Payload,
		})
		if err == nil {
			if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
				slog.Error("Failed to delete message from outbox after successful publish",
					"outbox_id", msg.ID,
					"error", err,
				)
			} else {
				slog.Info("Message successfully published and removed from outbox",
					"outbox_id", msg.ID,
					"message_id", msg.MessageID,
				)
			}

			continue
		}

		newRetryCount := msg.RetryCount + 1
		if msg.MaxRetries > 0 && newRetryCount >= msg.MaxRetries {
			slog.Error("Max retries reached for outbox message, dropping",
				"outbox_id", msg.ID,
				"message_id", msg.MessageID,
				"queue", msg.QueueName,
				"error", err,
			)
			if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
				slog.Error("Failed to delete message from outbox", "outbox_id", msg.ID, "error", err)
			}

			continue
		}

		nextRetryAt := time.Now().Add(backoff(newRetryCount))
		slog.Warn("Failed to publish message from outbox, will retry",
			"outbox_id", msg.ID,
			"retry_count", newRetryCount,
			"next_retry", nextRetryAt,
			"error", err,
		)

		if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, newRetryCount, err.Error(), nextRetryAt); err != nil {
			slog.Error("Failed to update retry information", "outbox_id", msg.ID, "error", err)
		}
	}
}
