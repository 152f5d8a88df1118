package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/trade/internal/dal/postgres"
	"github.com/corray333/backend-labs/trade/internal/service/models/inbox"
)

var inboxColumns = []string{
	"id", "message_id", "queue_name", "routing_key", "payload", "content_type",
	"retry_count", "max_retries", "last_error", "created_at", "updated_at", "next_retry_at",
}

// InboxRepository keeps consumed audit messages whose processing failed.
type InboxRepository struct {
	client *postgres.Client
}

func NewInboxRepository(client *postgres.Client) *InboxRepository {
	return &InboxRepository{client: client}
}

func (r *InboxRepository) Insert(ctx context.Context, msg inbox.InboxMessage) error {
	query, args, err := sq.Insert("inbox").
		Columns(inboxColumns[1:]...).
		Values(
			msg.MessageID, msg.QueueName, msg.RoutingKey, msg.Payload, msg.ContentType,
			msg.RetryCount, msg.MaxRetries, msg.LastError, msg.CreatedAt, msg.UpdatedAt, msg.NextRetryAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert inbox message: %w", err)
	}

	return nil
}

// GetPendingMessages returns messages whose next attempt is due and that still have retries left.
func (r *InboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]inbox.InboxMessage, error) {
	query, args, err := sq.Select(inboxColumns...).
		From("inbox").
		Where(sq.And{
			sq.LtOrEq{"next_retry_at": time.Now()},
			sq.Expr("retry_count < max_retries"),
		}).
		OrderBy("next_retry_at ASC", "id ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.client.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox messages: %w", err)
	}
	defer rows.Close()

	messages := make([]inbox.InboxMessage, 0, limit)
	for rows.Next() {
		var m inbox.InboxMessage
		err := rows.Scan(
			&m.ID, &m.MessageID, &m.QueueName, &m.RoutingKey, &m.Payload, &m.ContentType,
			&m.RetryCount, &m.MaxRetries, &m.LastError, &m.CreatedAt, &m.UpdatedAt, &m.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inbox message: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (r *InboxRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := sq.Delete("inbox").Where(sq.Eq{"id": id}).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete inbox message %d: %w", id, err)
	}

	return nil
}

func (r *InboxRepository) UpdateRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	query, args, err := sq.Update("inbox").
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
		return fmt.Errorf("failed to update inbox message %d: %w", id, err)
	}

	return nil
}
