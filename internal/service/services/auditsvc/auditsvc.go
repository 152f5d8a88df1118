// Package auditsvc records every mutating action to the audit trail.
// Recording is best-effort: failures are logged and never reach the caller.
package auditsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

const defaultPublishTimeout = 30 * time.Second

// publisher ships an entry to durable storage.
type publisher interface {
	Publish(ctx context.Context, entry auditlog.Entry) error
}

// AuditService is the audit trail.
type AuditService struct {
	publisher publisher
	timeout   time.Duration
	now       func() time.Time
}

// option is a function that configures the AuditService.
type option func(*AuditService)

// MustNewAuditService creates a new AuditService. Without a publisher entries are only logged.
func MustNewAuditService(opts ...option) *AuditService {
	s := &AuditService{
		timeout: defaultPublishTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPublisher sets where entries are shipped.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPublisher(p publisher) option {
	return func(s *AuditService) {
		s.publisher = p
	}
}

// WithTimeout bounds a single publish.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimeout(timeout time.Duration) option {
	return func(s *AuditService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// Record stores entry as is, filling the message id and timestamp when absent.
func (s *AuditService) Record(ctx context.Context, entry auditlog.Entry) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.RecordAudit")
	defer span.End()

	if entry.MessageID == "" {
		entry.MessageID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	if s.publisher == nil {
		slog.Info("Audit entry",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"actor_id", entry.ActorID,
		)

		return
	}

	// The entry outlives the request that produced it.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, entry); err != nil {
		slog.Error("Failed to record audit entry",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}

// Log records an action by the actor in ctx. before and after are the entity snapshots; either may be nil.
func (s *AuditService) Log(
	ctx context.Context,
	action, entityType string,
	entityID any,
	before, after any,
	meta map[string]any,
) {
	actor := auditlog.ActorFromContext(ctx)
	entry := auditlog.Entry{
		ActorID:    actor.ID,
		Action:     action,
		EntityType: entityType,
		IP:         actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if entityID != nil {
		entry.EntityID = fmt.Sprint(entityID)
	}

	if before != nil || after != nil {
		changes, err := json.Marshal(auditlog.Changes{Before: before, After: after})
		if err != nil {
			slog.Error("Failed to encode audit changes", "action", action, "error", err)
		} else {
			entry.Changes = changes
		}
	}
	if len(meta) > 0 {
		encoded, err := json.Marshal(meta)
		if err != nil {
			slog.Error("Failed to encode audit meta", "action", action, "error", err)
		} else {
			entry.Meta = encoded
		}
	}

	s.Record(ctx, entry)
}
