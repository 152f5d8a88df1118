package consumersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"go.opentelemetry.io/otel"
)

// ConsumerService persists audit entries delivered by the broker.
type ConsumerService struct {
	auditRepo iauditrepo.IAuditRepository
}

// option is a function that configures the ConsumerService.
type option func(*ConsumerService)

// MustNewConsumerService creates a new ConsumerService.
func MustNewConsumerService(opts ...option) *ConsumerService {
	s := &ConsumerService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.auditRepo == nil {
		panic("consumersvc: audit repository is required")
	}

	return s
}

// WithAuditRepository sets the audit repository for the ConsumerService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditRepository(auditRepo iauditrepo.IAuditRepository) option {
	return func(s *ConsumerService) {
		s.auditRepo = auditRepo
	}
}

// DecodeAuditLog parses a message body. Malformed bodies are validation errors and will never succeed on retry.
func DecodeAuditLog(body []byte) (auditlog.Entry, error) {
	var entry auditlog.Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return auditlog.Entry{}, errs.Validation("malformed audit entry: %v", err)
	}
	if entry.MessageID == "" || entry.Action == "" || entry.EntityType == "" {
		return auditlog.Entry{}, errs.Validation("audit entry misses messageId, action or entityType")
	}

	return entry, nil
}

// ProcessAuditLog stores one entry. Entries already stored under the same message id are skipped,
// so redelivered messages are harmless.
func (s *ConsumerService) ProcessAuditLog(ctx context.Context, entry auditlog.Entry) error {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.ProcessAuditLog")
	defer span.End()

	inserted, err := s.auditRepo.Insert(ctx, entry)
	if err != nil {
		slog.Error("Failed to save audit entry", "message_id", entry.MessageID, "error", err)

		return fmt.Errorf("failed to save audit entry: %w", err)
	}

	if !inserted {
		slog.Info("Audit entry already stored", "message_id", entry.MessageID)

		return nil
	}

	slog.Info("Audit entry stored",
		"message_id", entry.MessageID,
		"action", entry.Action,
		"entity_type", entry.EntityType,
		"entity_id", entry.EntityID,
	)

	return nil
}

// History returns the entries recorded for one entity, oldest first.
func (s *ConsumerService) History(ctx context.Context, entityType, entityID string) ([]auditlog.Entry, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.AuditHistory")
	defer span.End()

	entries, err := s.auditRepo.QueryByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}

	return entries, nil
}

// Publish stores entry in-process. It lets the audit trail run without a broker.
func (s *ConsumerService) Publish(ctx context.Context, entry auditlog.Entry) error {
	return s.ProcessAuditLog(ctx, entry)
}
