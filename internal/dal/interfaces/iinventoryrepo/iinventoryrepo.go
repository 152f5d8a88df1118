package iinventoryrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
)

// IInventoryRepository is an interface for the stock ledger and its reservations.
//
// Reserve, Release and Adjust are single conditional updates: the quantity check and the
// write happen in one statement, so concurrent callers can never drive a counter below zero.
type IInventoryRepository interface {
	// Insert creates a record. It returns errs.ErrDuplicateKey when the (sku, warehouse) pair exists.
	Insert(ctx context.Context, r inventory.Record) (inventory.Record, error)
	Get(ctx context.Context, skuID, warehouseID int64) (inventory.Record, error)
	Query(ctx context.Context, filter *inventory.QueryRecordsModel) ([]inventory.Record, error)

	// Reserve moves qty from available to reserved. On errs.ErrInsufficientStock the returned
	// record holds the current counters.
	Reserve(ctx context.Context, skuID, warehouseID int64, qty int) (inventory.Record, error)
	// Release moves qty from reserved back to available.
	Release(ctx context.Context, skuID, warehouseID int64, qty int) (inventory.Record, error)
	// Adjust adds delta to available. It returns errs.ErrInvalidOperation when the result would be negative.
	Adjust(ctx context.Context, skuID, warehouseID int64, delta int) (inventory.Record, error)

	InsertReservation(ctx context.Context, r inventory.Reservation) (inventory.Reservation, error)
	QueryReservations(
		ctx context.Context,
		orderID int64,
		state inventory.ReservationState,
	) ([]inventory.Reservation, error)
	// MarkReleased flips a reserved row to released. It reports false when the row was already released.
	MarkReleased(ctx context.Context, id int64, at time.Time) (bool, error)
}
