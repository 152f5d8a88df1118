package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
)

func TestRollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	work := NewUnitOfWork(store)
	if err := work.Begin(ctx); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if _, err := work.OrderRepository().Insert(ctx, order.Order{OrderNo: "ORD-202601-0001"}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := work.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error: %v", err)
	}

	orders, err := NewUnitOfWork(store).OrderRepository().Query(ctx, &order.QueryOrdersModel{})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders after rollback, got %d", len(orders))
	}
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	work := NewUnitOfWork(store)
	_ = work.Begin(ctx)
	if _, err := work.OrderRepository().Insert(ctx, order.Order{OrderNo: "ORD-202601-0001"}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := work.Commit(ctx); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	_ = work.Rollback(ctx)

	orders, _ := NewUnitOfWork(store).OrderRepository().Query(ctx, &order.QueryOrdersModel{})
	if len(orders) != 1 {
		t.Fatalf("expected committed order to survive, got %d orders", len(orders))
	}
}

func TestDuplicateOrderNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewUnitOfWork(NewStore()).OrderRepository()

	if _, err := repo.Insert(ctx, order.Order{OrderNo: "ORD-202601-0001"}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	_, err := repo.Insert(ctx, order.Order{OrderNo: "ORD-202601-0001"})
	if !errors.Is(err, errs.ErrDuplicateKey) {
		t.Fatalf("Insert() error = %v, want duplicate key", err)
	}
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewUnitOfWork(store).InventoryRepository()
	if _, err := repo.Insert(ctx, inventory.Record{SKUID: 1, WarehouseID: 1, QtyAvailable: 10}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := NewUnitOfWork(store).InventoryRepository().Reserve(ctx, 1, 1, 1)
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	rec, _ := repo.Get(ctx, 1, 1)
	if success != 10 || rec.QtyAvailable != 0 || rec.QtyReserved != 10 {
		t.Fatalf("success=%d available=%d reserved=%d, want 10/0/10", success, rec.QtyAvailable, rec.QtyReserved)
	}
}

func TestAdjustRejectsNegative(t *testing.T) {
	ctx := context.Background()
	repo := NewUnitOfWork(NewStore()).InventoryRepository()
	_, _ = repo.Insert(ctx, inventory.Record{SKUID: 1, WarehouseID: 2, QtyAvailable: 5})

	rec, err := repo.Adjust(ctx, 1, 2, -6)
	if !errors.Is(err, errs.ErrInvalidOperation) {
		t.Fatalf("Adjust() error = %v, want invalid operation", err)
	}
	if rec.QtyAvailable != 5 {
		t.Fatalf("available = %d, want 5", rec.QtyAvailable)
	}
}

func TestAuditInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().AuditRepository()
	entry := auditlog.Entry{MessageID: "m-1", EntityType: auditlog.EntityOrder, EntityID: "1"}

	first, _ := repo.Insert(ctx, entry)
	second, _ := repo.Insert(ctx, entry)
	if !first || second {
		t.Fatalf("Insert() = %v, %v; want true, false", first, second)
	}
	entries, _ := repo.QueryByEntity(ctx, auditlog.EntityOrder, "1")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}
