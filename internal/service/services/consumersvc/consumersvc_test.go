package consumersvc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/memory"
	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
)

func TestProcessAuditLogIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	svc := MustNewConsumerService(WithAuditRepository(store.AuditRepository()))
	ctx := context.Background()

	entry := auditlog.Entry{
		MessageID:  "m-1",
		ActorID:    "u-1",
		Action:     auditlog.ActionOrderCreated,
		EntityType: auditlog.EntityOrder,
		EntityID:   "42",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for range 3 {
		if err := svc.ProcessAuditLog(ctx, entry); err != nil {
			t.Fatalf("ProcessAuditLog: %v", err)
		}
	}

	history, err := svc.History(ctx, auditlog.EntityOrder, "42")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 stored entry, got %d", len(history))
	}
}

func TestHistoryIsOrderedByCreation(t *testing.T) {
	store := memory.NewStore()
	svc := MustNewConsumerService(WithAuditRepository(store.AuditRepository()))
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"m-3", "m-1", "m-2"} {
		entry := auditlog.Entry{
			MessageID:  id,
			Action:     auditlog.ActionShipmentUpdated,
			EntityType: auditlog.EntityShipment,
			EntityID:   "7",
			CreatedAt:  base.Add(time.Duration(2-i) * time.Minute),
		}
		if err := svc.ProcessAuditLog(ctx, entry); err != nil {
			t.Fatalf("ProcessAuditLog: %v", err)
		}
	}

	history, err := svc.History(ctx, auditlog.EntityShipment, "7")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt.Before(history[i-1].CreatedAt) {
			t.Fatalf("history not ordered: %v before %v", history[i].CreatedAt, history[i-1].CreatedAt)
		}
	}
}

func TestDecodeAuditLog(t *testing.T) {
	body, _ := json.Marshal(auditlog.Entry{
		MessageID:  "m-9",
		Action:     auditlog.ActionInventoryAdjusted,
		EntityType: auditlog.EntityInventory,
		Changes:    json.RawMessage(`{"before":{"qtyAvailable":5},"after":{"qtyAvailable":3}}`),
	})
	entry, err := DecodeAuditLog(body)
	if err != nil {
		t.Fatalf("DecodeAuditLog: %v", err)
	}
	if entry.MessageID != "m-9" || len(entry.Changes) == 0 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	for _, bad := range []string{`not json`, `{"action":"order.created"}`} {
		if _, err := DecodeAuditLog([]byte(bad)); errs.KindOf(err) != errs.KindValidation {
			t.Fatalf("DecodeAuditLog(%s) err = %v, want validation", bad, err)
		}
	}
}
