// Package iuow declares the unit of work shared by the postgres and memory storage drivers.
package iuow

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/ibuyerrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iinventoryrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/ishipmentrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iskurepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/itransactionrepo"
)

// UnitOfWork groups repositories that share one transaction after Begin.
// Before Begin every repository call runs on its own. Rollback after Commit is a no-op,
// so callers may always defer it.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	BuyerRepository() ibuyerrepo.IBuyerRepository
	SKURepository() iskurepo.ISKURepository
	InventoryRepository() iinventoryrepo.IInventoryRepository
	ShipmentRepository() ishipmentrepo.IShipmentRepository
	TransactionRepository() itransactionrepo.ITransactionRepository
}

// Factory opens a fresh unit of work. Each call returns an independent instance.
type Factory func() UnitOfWork
