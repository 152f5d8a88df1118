// Package servicetest holds fixtures shared by the service tests. It runs every service on the
// memory storage driver.
package servicetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/trade/internal/dal/memory"
	"github.com/corray333/backend-labs/trade/internal/service/models/buyer"
	"github.com/corray333/backend-labs/trade/internal/service/models/currency"
	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/corray333/backend-labs/trade/internal/service/models/notification"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/trade/internal/service/models/sku"
	"github.com/shopspring/decimal"
)

// Env is one isolated store with helpers to seed it.
type Env struct {
	Store   *memory.Store
	Factory iuow.Factory

	orders atomic.Int64
}

func NewEnv() *Env {
	store := memory.NewStore()

	return &Env{Store: store, Factory: store.Factory()}
}

// Buyer inserts an active buyer.
func (e *Env) Buyer(t *testing.T, name, email string) buyer.Buyer {
	t.Helper()

	b, err := e.Factory().BuyerRepository().Insert(context.Background(), buyer.Buyer{
		Name:         name,
		Country:      "DE",
		ContactEmail: email,
		State:        buyer.StateActive,
	})
	if err != nil {
		t.Fatalf("insert buyer: %v", err)
	}

	return b
}

// SKU inserts an active catalog entry priced at price.
func (e *Env) SKU(t *testing.T, code, price string) sku.SKU {
	t.Helper()

	s, err := e.Factory().SKURepository().Insert(context.Background(), sku.SKU{
		Code:        sku.NormalizeCode(code),
		Description: "Item " + code,
		HSCode:      "620520",
		Unit:        "pcs",
		UnitPrice:   decimal.RequireFromString(price),
		State:       sku.StateActive,
	})
	if err != nil {
		t.Fatalf("insert sku: %v", err)
	}

	return s
}

// Stock opens an inventory record with qty available.
func (e *Env) Stock(t *testing.T, skuID, warehouseID int64, qty int) inventory.Record {
	t.Helper()

	rec, err := e.Factory().InventoryRepository().Insert(context.Background(), inventory.Record{
		SKUID:        skuID,
		WarehouseID:  warehouseID,
		QtyAvailable: qty,
	})
	if err != nil {
		t.Fatalf("insert inventory: %v", err)
	}

	return rec
}

// Record reads the inventory record of a (SKU, warehouse) pair.
func (e *Env) Record(t *testing.T, skuID, warehouseID int64) inventory.Record {
	t.Helper()

	rec, err := e.Factory().InventoryRepository().Get(context.Background(), skuID, warehouseID)
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}

	return rec
}

// TaxRate is a fixed tax rate provider.
type TaxRate string

func (r TaxRate) TaxRate(context.Context) (decimal.Decimal, error) {
	return decimal.RequireFromString(string(r)), nil
}

// AuditCall is one captured audit entry.
type AuditCall struct {
	Action     string
	EntityType string
	EntityID   any
	Before     any
	After      any
	Meta       map[string]any
}

// Auditor captures audit calls.
type Auditor struct {
	mu    sync.Mutex
	Calls []AuditCall
}

func (a *Auditor) Log(
	_ context.Context,
	action, entityType string,
	entityID any,
	before, after any,
	meta map[string]any,
) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Calls = append(a.Calls, AuditCall{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     before,
		After:      after,
		Meta:       meta,
	})
}

// Actions lists the captured actions in call order.
func (a *Auditor) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	actions := make([]string, 0, len(a.Calls))
	for _, c := range a.Calls {
		actions = append(actions, c.Action)
	}

	return actions
}

// Notifier captures shipment notifications.
type Notifier struct {
	mu   sync.Mutex
	Sent []notification.ShipmentStatusChanged
	Err  error
}

func (n *Notifier) SendShipmentStatusChanged(_ context.Context, msg notification.ShipmentStatusChanged) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Sent = append(n.Sent, msg)

	return n.Err
}

// Line describes one order item for Order. SKU may be zero-valued for a free-text line.
type Line struct {
	SKU sku.SKU
	Qty int
}

// Order inserts a draft order with the given lines, bypassing the order ledger. An empty
// orderNo is replaced by a unique one.
func (e *Env) Order(t *testing.T, buyerID int64, orderNo string, lines ...Line) order.Order {
	t.Helper()

	ctx := context.Background()
	work := e.Factory()
	if orderNo == "" {
		orderNo = fmt.Sprintf("ORD-199901-%04d", e.orders.Add(1))
	}

	items := make([]orderitem.OrderItem, 0, len(lines))
	for _, l := range lines {
		item := orderitem.OrderItem{
			SKUCode:     l.SKU.Code,
			Description: l.SKU.Description,
			Quantity:    l.Qty,
			UnitPrice:   l.SKU.UnitPrice,
		}
		if l.SKU.ID != 0 {
			id := l.SKU.ID
			item.SKUID = &id
		} else {
			item.SKUCode = "FREE-TEXT"
			item.UnitPrice = decimal.NewFromInt(1)
		}
		item.Recompute()
		items = append(items, item)
	}

	o := order.Order{
		OrderNo:       orderNo,
		BuyerID:       buyerID,
		Incoterm:      order.IncotermFOB,
		Currency:      currency.CurrencyUSD,
		Status:        order.StatusDraft,
		PaymentStatus: order.PaymentPending,
	}
	o.ApplyTotals(items, decimal.Zero)

	o, err := work.OrderRepository().Insert(ctx, o)
	if err != nil {
		t.Fatalf("insert order: %v", err)
	}
	for i := range items {
		items[i].OrderID = o.ID
	}
	if o.OrderItems, err = work.OrderItemRepository().BulkInsert(ctx, items); err != nil {
		t.Fatalf("insert order items: %v", err)
	}

	return o
}
