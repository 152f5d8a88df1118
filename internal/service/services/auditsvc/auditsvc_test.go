package auditsvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
)

type capturingPublisher struct {
	entries []auditlog.Entry
	err     error
}

func (p *capturingPublisher) Publish(_ context.Context, entry auditlog.Entry) error {
	p.entries = append(p.entries, entry)

	return p.err
}

func TestLogFillsActorAndChanges(t *testing.T) {
	pub := &capturingPublisher{}
	svc := MustNewAuditService(WithPublisher(pub))

	ctx := auditlog.WithActor(context.Background(), auditlog.Actor{
		ID: "u-7", Role: auditlog.RoleStaff, IP: "10.0.0.1", UserAgent: "curl",
	})
	svc.Log(ctx, auditlog.ActionInventoryAdjusted, auditlog.EntityInventory, int64(12),
		map[string]int{"qtyAvailable": 10}, map[string]int{"qtyAvailable": 7},
		map[string]any{"reason": "damaged"})

	if len(pub.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(pub.entries))
	}
	e := pub.entries[0]
	if e.ActorID != "u-7" || e.IP != "10.0.0.1" || e.UserAgent != "curl" || e.EntityID != "12" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.MessageID == "" || e.CreatedAt.IsZero() {
		t.Fatal("message id and created_at must be set")
	}

	var changes struct {
		Before map[string]int `json:"before"`
		After  map[string]int `json:"after"`
	}
	if err := json.Unmarshal(e.Changes, &changes); err != nil {
		t.Fatalf("changes are not JSON: %v", err)
	}
	if changes.Before["qtyAvailable"] != 10 || changes.After["qtyAvailable"] != 7 {
		t.Fatalf("unexpected changes: %s", e.Changes)
	}
}

func TestRecordSwallowsPublisherErrors(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("broker down")}
	svc := MustNewAuditService(WithPublisher(pub))

	svc.Log(context.Background(), auditlog.ActionOrderCreated, auditlog.EntityOrder, 1, nil, nil, nil)

	if len(pub.entries) != 1 {
		t.Fatalf("expected publish attempt, got %d", len(pub.entries))
	}
	if pub.entries[0].ActorID != auditlog.RoleSystem {
		t.Fatalf("actor without context = %q, want system", pub.entries[0].ActorID)
	}
}

func TestRecordWithoutPublisher(t *testing.T) {
	svc := MustNewAuditService()
	svc.Record(context.Background(), auditlog.Entry{Action: auditlog.ActionOrderDeleted})
}
