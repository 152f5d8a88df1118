package rabbitmq

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/trade/internal/service/models/notification"
	"github.com/google/uuid"
)

// NotificationRabbitMQRepository hands shipment notifications to the mail delivery queue.
type NotificationRabbitMQRepository struct {
	publisher *rabbitmq.ReliablePublisher
	queue     string
}

func NewNotificationRabbitMQRepository(
	publisher *rabbitmq.ReliablePublisher,
	queue string,
) *NotificationRabbitMQRepository {
	return &NotificationRabbitMQRepository{
		publisher: publisher,
		queue:     queue,
	}
}

func (r *NotificationRabbitMQRepository) SendShipmentStatusChanged(
	ctx context.Context,
	n notification.ShipmentStatusChanged,
) error {
	return r.publisher.PublishJSON(ctx, r.queue, uuid.NewString(), n)
}
