package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/trade/internal/dal/postgres"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
)

// AuditRepository implements the audit repository for PostgreSQL.
type AuditRepository struct {
	pgClient *postgres.Client
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(pgClient *postgres.Client) *AuditRepository {
	return &AuditRepository{
		pgClient: pgClient,
	}
}

// Insert appends an entry, skipping message ids that were already stored.
func (r *AuditRepository) Insert(ctx context.Context, entry auditlog.Entry) (bool, error) {
	query, args, err := sq.Insert("audit_log").
		Columns(
			"message_id",
			"actor_id",
			"action",
			"entity_type",
			"entity_id",
			"changes",
			"meta",
			"ip",
			"user_agent",
			"created_at",
		).
		Values(
			entry.MessageID,
			entry.ActorID,
			entry.Action,
			entry.EntityType,
			entry.EntityID,
			nullableJSON(entry.Changes),
			nullableJSON(entry.Meta),
			entry.IP,
			entry.UserAgent,
			entry.CreatedAt,
		).
		Suffix("ON CONFLICT (message_id) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build audit log insert query: %w", err)
	}

	tag, err := r.pgClient.Pool().Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert audit log: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// QueryByEntity returns the entries of one entity in creation order.
func (r *AuditRepository) QueryByEntity(
	ctx context.Context,
	entityType, entityID string,
) ([]auditlog.Entry, error) {
	query, args, err := sq.Select(
		"id",
		"message_id",
		"actor_id",
		"action",
		"entity_type",
		"entity_id",
		"COALESCE(changes, 'null'::jsonb)",
		"COALESCE(meta, 'null'::jsonb)",
		"ip",
		"user_agent",
		"created_at",
	).
		From("audit_log").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at ASC", "id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.pgClient.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	result := []auditlog.Entry{}
	for rows.Next() {
		var (
			e             auditlog.Entry
			changes, meta []byte
		)
		err := rows.Scan(
			&e.ID,
			&e.MessageID,
			&e.ActorID,
			&e.Action,
			&e.EntityType,
			&e.EntityID,
			&changes,
			&meta,
			&e.IP,
			&e.UserAgent,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		e.Changes = changes
		e.Meta = meta
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return result, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	return string(raw)
}
