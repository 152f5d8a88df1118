package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/trade/internal/dal/postgres"
	"github.com/corray333/backend-labs/trade/internal/service/models/outbox"
)

var outboxColumns = []string{
	"id", "message_id", "queue_name", "exchange_name", "routing_key", "payload", "content_type",
	"retry_count", "max_retries", "last_error", "created_at", "updated_at", "next_retry_at",
}

func scanTargets(m *outbox.OutboxMessage) []any {
	return []any{
		&m.ID, &m.MessageID, &m.QueueName, &m.ExchangeName, &m.RoutingKey, &m.Payload, &m.ContentType,
		&m.RetryCount, &m.MaxRetries, &m.LastError, &m.CreatedAt, &m.UpdatedAt, &m.NextRetryAt,
	}
}

// OutboxRepository stores messages the broker did not accept.
type OutboxRepository struct {
	client *postgres.Client
}

func NewOutboxRepository(client *postgres.Client) *OutboxRepository {
	return &OutboxRepository{client: client}
}

// Insert parks a message. A message id that is already parked is ignored.
func (r *OutboxRepository) Insert(ctx context.Context, msg outbox.OutboxMessage) error {
	query, args, err := sq.Insert("outbox").
		Columns(outboxColumns[1:]...).
		Values(
			msg.MessageID, msg.QueueName, msg.ExchangeName, msg.RoutingKey, msg.Payload, msg.ContentType,
			msg.RetryCount, msg.MaxRetries, msg.LastError, msg.CreatedAt, msg.UpdatedAt, msg.NextRetryAt,
		).
		Suffix("ON CONFLICT (message_id) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}

	return nil
}

// GetPendingMessages returns due messages, oldest deadline first.
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]outbox.OutboxMessage, error) {
	query, args, err := sq.Select(outboxColumns...).
		From("outbox").
		Where(sq.LtOrEq{"next_retry_at": time.Now()}).
		Where(sq.Expr("retry_count < max_retries")).
		OrderBy("next_retry_at ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.client.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []outbox.OutboxMessage
	for rows.Next() {
		var msg outbox.OutboxMessage
		if err := rows.Scan(scanTargets(&msg)...); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox messages: %w", err)
	}

	return messages, nil
}

func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := sq.Delete("outbox").Where(sq.Eq{"id": id}).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete outbox message %d: %w", id, err)
	}

	return nil
}

// UpdateRetry records a failed delivery attempt and schedules the next one.
func (r *OutboxRepository) UpdateRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	query, args, err := sq.Update("outbox").
		SetMap(map[string]any{
			"retry_count":   retryCount,
			"last_error":    lastError,
			"next_retry_at": nextRetryAt,
			"updated_at":    time.Now(),
		}).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update outbox message %d: %w", id, err)
	}

	return nil
}
