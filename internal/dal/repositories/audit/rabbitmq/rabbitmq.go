package rabbitmq

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
)

// AuditRabbitMQRepository ships audit entries to the audit consumer.
type AuditRabbitMQRepository struct {
	publisher *rabbitmq.ReliablePublisher
	queue     string
}

func NewAuditRabbitMQRepository(publisher *rabbitmq.ReliablePublisher, queue string) *AuditRabbitMQRepository {
	return &AuditRabbitMQRepository{
		publisher: publisher,
		queue:     queue,
	}
}

// Publish sends the entry, keyed by its message id so the consumer can drop redeliveries.
func (r *AuditRabbitMQRepository) Publish(ctx context.Context, entry auditlog.Entry) error {
	return r.publisher.PublishJSON(ctx, r.queue, entry.MessageID, entry)
}
