package memory

import (
	"context"
	"sort"
	"time"

	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/inbox"
	"github.com/corray333/backend-labs/trade/internal/service/models/outbox"
)

// AuditRepository is the memory audit log.
type AuditRepository struct {
	store *Store
}

// AuditRepository returns the audit log view of the store.
func (s *Store) AuditRepository() *AuditRepository {
	return &AuditRepository{store: s}
}

func (r *AuditRepository) Insert(_ context.Context, entry auditlog.Entry) (bool, error) {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()

	for _, existing := range r.store.audit {
		if entry.MessageID != "" && existing.MessageID == entry.MessageID {
			return false, nil
		}
	}
	r.store.auxSeq++
	entry.ID = r.store.auxSeq
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.store.now()
	}
	r.store.audit = append(r.store.audit, entry)

	return true, nil
}

func (r *AuditRepository) QueryByEntity(
	_ context.Context,
	entityType, entityID string,
) ([]auditlog.Entry, error) {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()

	result := []auditlog.Entry{}
	for _, e := range r.store.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	return result, nil
}

// OutboxRepository is the memory outbox.
type OutboxRepository struct {
	store *Store
}

// OutboxRepository returns the outbox view of the store.
func (s *Store) OutboxRepository() *OutboxRepository {
	return &OutboxRepository{store: s}
}

func (r *OutboxRepository) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()

	r.store.auxSeq++
	msg.ID = r.store.auxSeq
	r.store.outbox[msg.ID] = msg

	return nil
}

func (r *OutboxRepository) GetPendingMessages(_ context.Context, limit int) ([]outbox.OutboxMessage, error) {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()

	now := r.store.now()
	var result []outbox.OutboxMessage
	for _, msg := range r.store.outbox {
		if !msg.NextRetryAt.After(now) && msg.RetryCount < msg.MaxRetries {
			result = append(result, msg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NextRetryAt.Before(result[j].NextRetryAt) })

	return page(result, limit, 0), nil
}

func (r *OutboxRepository) Delete(_ context.Context, id int64) error {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()
	delete(r.store.outbox, id)

	return nil
}

func (r *OutboxRepository) UpdateRetry(
	_ context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()

	msg, ok := r.store.outbox[id]
	if !ok {
		return nil
	}
	msg.RetryCount = retryCount
	msg.LastError = lastError
	msg.NextRetryAt = nextRetryAt
	msg.UpdatedAt = r.store.now()
	r.store.outbox[id] = msg

	return nil
}

// InboxRepository is the memory inbox.
type InboxRepository struct {
	store *Store
}

// InboxRepository returns the inbox view of the store.
func (s *Store) InboxRepository() *InboxRepository {
	return &InboxRepository{store: s}
}

func (r *InboxRepository) Insert(_ context.Context, msg inbox.InboxMessage) error {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()

	r.store.auxSeq++
	msg.ID = r.store.auxSeq
	r.store.inbox[msg.ID] = msg

	return nil
}

func (r *InboxRepository) GetPendingMessages(_ context.Context, limit int) ([]inbox.InboxMessage, error) {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()

	now := r.store.now()
	var result []inbox.InboxMessage
	for _, msg := range r.store.inbox {
		if !msg.NextRetryAt.After(now) && msg.RetryCount < msg.MaxRetries {
			result = append(result, msg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NextRetryAt.Before(result[j].NextRetryAt) })

	return page(result, limit, 0), nil
}

func (r *InboxRepository) Delete(_ context.Context, id int64) error {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()
	delete(r.store.inbox, id)

	return nil
}

func (r *InboxRepository) UpdateRetry(
	_ context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	r.store.auxMu.Lock()
	defer r.store.auxMu.Unlock()

	msg, ok := r.store.inbox[id]
	if !ok {
		return nil
	}
	msg.RetryCount = retryCount
	msg.LastError = lastError
	msg.NextRetryAt = nextRetryAt
	msg.UpdatedAt = r.store.now()
	r.store.inbox[id] = msg

	return nil
}
