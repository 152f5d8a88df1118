package iauditrepo

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
)

// IAuditRepository is interface for audit log repository.
type IAuditRepository interface {
	// Insert appends an entry. Entries whose message id was already stored are skipped and
	// reported with inserted == false.
	Insert(ctx context.Context, entry auditlog.Entry) (inserted bool, err error)
	QueryByEntity(ctx context.Context, entityType, entityID string) ([]auditlog.Entry, error)
}
