package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iinboxrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/inbox"
	"github.com/corray333/backend-labs/trade/internal/service/services/consumersvc"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// service represents the service layer interface.
type service interface {
	ProcessAuditLog(ctx context.Context, entry auditlog.Entry) error
}

// Consumer represents the RabbitMQ consumer transport.
type Consumer struct {
	client     *rabbitmq.Client
	service    service
	inboxRepo  iinboxrepo.IInboxRepository
	maxRetries int
	queue      amqp.Queue
	stop       chan struct{}
	done       chan struct{}
}

// NewConsumer creates a new Consumer. Deliveries the service fails on are parked in the inbox.
func NewConsumer(client *rabbitmq.Client, service service, inboxRepo iinboxrepo.IInboxRepository) *Consumer {
	queueName := viper.GetString("rabbitmq.audit_queue")
	if queueName == "" {
		panic("rabbitmq.audit_queue is not set in config")
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    queueName,
		Durable: true,
	})
	if err != nil {
		panic(err)
	}

	maxRetries := viper.GetInt("rabbitmq.inbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 5
	}

	return &Consumer{
		client:     client,
		service:    service,
		inboxRepo:  inboxRepo,
		maxRetries: maxRetries,
		queue:      queue,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "audit-consumer"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:     c.queue.Name,
		Consumer:  consumerTag,
		Exclusive: viper.GetBool("rabbitmq.exclusive"),
		NoLocal:   viper.GetBool("rabbitmq.no_local"),
		NoWait:    viper.GetBool("rabbitmq.no_wait"),
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					c.processMessage(gctx, msg)

					return nil
				})
			}
		}
	}()

	<-c.done
	if err := g.Wait(); err != nil {
		slog.Error("Error processing messages", "error", err)
	}

	return nil
}

// processMessage handles one delivery. Malformed bodies are dropped; processing failures
// move to the inbox, and are requeued only when the inbox is unavailable too.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	slog.Info("Received message", "delivery_tag", msg.DeliveryTag, "message_id", msg.MessageId)

	entry, err := consumersvc.DecodeAuditLog(msg.Body)
	if err != nil {
		slog.Error("Failed to decode audit entry", "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if err := c.service.ProcessAuditLog(ctx, entry); err != nil {
		slog.Error("Failed to process audit entry", "error", err, "message_id", entry.MessageID)

		now := time.Now()
		inboxErr := c.inboxRepo.Insert(ctx, inbox.InboxMessage{
			MessageID:   entry.MessageID,
			QueueName:   c.queue.Name,
			RoutingKey:  msg.RoutingKey,
			Payload:     msg.Body,
			ContentType: msg.ContentType,
			MaxRetries:  c.maxRetries,
			LastError:   err.Error(),
			CreatedAt:   now,
			UpdatedAt:   now,
			NextRetryAt: now.Add(30 * time.Second),
		})
		if inboxErr != nil {
			slog.Error("Failed to save message to inbox", "error", inboxErr, "message_id", entry.MessageID)
			if err := msg.Nack(false, true); err != nil {
				slog.Error("Failed to nack message", "error", err)
			}

			return
		}
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return
	}

	slog.Info("Message processed", "message_id", entry.MessageID)
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
