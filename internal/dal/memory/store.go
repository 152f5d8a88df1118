// Package memory is an in-process storage driver implementing the same unit of work as the
// postgres driver. One store-wide lock serializes all access, and a transaction holds it from
// Begin until Commit or Rollback, so callers must not open a second unit of work while one is
// in progress on the same goroutine.
package memory

import (
	"maps"
	"sync"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/buyer"
	"github.com/corray333/backend-labs/trade/internal/service/models/inbox"
	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/trade/internal/service/models/outbox"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/service/models/sku"
	"github.com/corray333/backend-labs/trade/internal/service/models/transaction"
)

// Store holds every table in memory.
type Store struct {
	txMu sync.Mutex
	data *tables

	// audit, outbox and inbox live outside transactions.
	auxMu  sync.Mutex
	audit  []auditlog.Entry
	outbox map[int64]outbox.OutboxMessage
	inbox  map[int64]inbox.InboxMessage
	auxSeq int64

	now func() time.Time
}

type tables struct {
	seq          int64
	buyers       map[int64]buyer.Buyer
	skus         map[int64]sku.SKU
	orders       map[int64]order.Order
	items        map[int64]orderitem.OrderItem
	records      map[int64]inventory.Record
	reservations map[int64]inventory.Reservation
	shipments    map[int64]shipment.Shipment
	events       map[int64]shipment.Event
	transactions map[int64]transaction.Transaction
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		data: &tables{
			buyers:       map[int64]buyer.Buyer{},
			skus:         map[int64]sku.SKU{},
			orders:       map[int64]order.Order{},
			items:        map[int64]orderitem.OrderItem{},
			records:      map[int64]inventory.Record{},
			reservations: map[int64]inventory.Reservation{},
			shipments:    map[int64]shipment.Shipment{},
			events:       map[int64]shipment.Event{},
			transactions: map[int64]transaction.Transaction{},
		},
		outbox: map[int64]outbox.OutboxMessage{},
		inbox:  map[int64]inbox.InboxMessage{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock used for timestamps and retry scheduling. Call it before the store is shared.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Factory returns a unit of work factory bound to the store.
func (s *Store) Factory() iuow.Factory {
	return func() iuow.UnitOfWork {
		return NewUnitOfWork(s)
	}
}

func (t *tables) nextID() int64 {
	t.seq++

	return t.seq
}

func (t *tables) clone() *tables {
	return &tables{
		seq:          t.seq,
		buyers:       maps.Clone(t.buyers),
		skus:         maps.Clone(t.skus),
		orders:       maps.Clone(t.orders),
		items:        maps.Clone(t.items),
		records:      maps.Clone(t.records),
		reservations: maps.Clone(t.reservations),
		shipments:    maps.Clone(t.shipments),
		events:       maps.Clone(t.events),
		transactions: maps.Clone(t.transactions),
	}
}

// page applies offset and limit to an already sorted slice.
func page[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return []T{}
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	return rows
}

func timePtr(t time.Time) *time.Time {
	return &t
}
