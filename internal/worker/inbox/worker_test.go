package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/memory"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/inbox"
)

type fakeService struct {
	err       error
	processed []auditlog.Entry
}

func (f *fakeService) ProcessAuditLog(_ context.Context, entry auditlog.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.processed = append(f.processed, entry)

	return nil
}

func insert(t *testing.T, repo *memory.InboxRepository, payload []byte, retryCount, maxRetries int) {
	t.Helper()

	err := repo.Insert(context.Background(), inbox.InboxMessage{
		MessageID:   "msg-1",
		QueueName:   "trade.audit",
		Payload:     payload,
		ContentType: "application/json",
		RetryCount:  retryCount,
		MaxRetries:  maxRetries,
		NextRetryAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
}

func due(t *testing.T, repo *memory.InboxRepository) int {
	t.Helper()

	msgs, err := repo.GetPendingMessages(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPendingMessages() error: %v", err)
	}

	return len(msgs)
}

func validPayload(t *testing.T) []byte {
	t.Helper()

	body, err := json.Marshal(auditlog.Entry{
		MessageID:  "msg-1",
		Action:     "order.created",
		EntityType: "order",
		EntityID:   "7",
	})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	return body
}

func TestProcessMessagesStoresAndDeletes(t *testing.T) {
	repo := memory.NewStore().InboxRepository()
	insert(t, repo, validPayload(t), 0, 5)
	svc := &fakeService{}

	NewWorker(repo, svc, time.Second, 10).processMessages(context.Background())

	if len(svc.processed) != 1 || svc.processed[0].Action != "order.created" {
		t.Fatalf("expected entry to be processed, got %+v", svc.processed)
	}
	if n := due(t, repo); n != 0 {
		t.Errorf("expected inbox to be empty, got %d", n)
	}
}

func TestProcessMessagesRetriesOnServiceError(t *testing.T) {
	repo := memory.NewStore().InboxRepository()
	insert(t, repo, validPayload(t), 0, 5)
	svc := &fakeService{err: errors.New("db down")}

	NewWorker(repo, svc, time.Second, 10).processMessages(context.Background())

	if n := due(t, repo); n != 0 {
		t.Errorf("expected message to be deferred, got %d due", n)
	}
}

func TestProcessMessagesDeletesMalformedAfterMaxRetries(t *testing.T) {
	repo := memory.NewStore().InboxRepository()
	insert(t, repo, []byte("{not json"), 4, 5)
	svc := &fakeService{}

	NewWorker(repo, svc, time.Second, 10).processMessages(context.Background())

	if len(svc.processed) != 0 {
		t.Errorf("malformed message must not reach the service")
	}
	if n := due(t, repo); n != 0 {
		t.Errorf("expected malformed message to be deleted, got %d", n)
	}
}
