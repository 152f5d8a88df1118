// Package inventory serves the reservation ledger endpoints.
package inventory

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
)

type service interface {
	Reserve(ctx context.Context, orderID, warehouseID int64) (inventory.ReserveResult, error)
	Release(ctx context.Context, orderID int64) (inventory.ReleaseResult, error)
	Adjust(ctx context.Context, adj inventory.Adjustment) (inventory.Record, error)
	CreateRecord(
		ctx context.Context,
		skuID, warehouseID int64,
		initialQty int,
		binLocation string,
	) (inventory.Record, error)
	List(ctx context.Context, filter inventory.QueryRecordsModel) ([]inventory.Record, error)
}
