package memory

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

// UnitOfWork is the memory implementation of iuow.UnitOfWork.
type UnitOfWork struct {
	store    *Store
	inTx     bool
	snapshot *tables
}

// NewUnitOfWork creates a unit of work over the store.
func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

// Begin takes the store lock and remembers the current state for Rollback.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.store.txMu.Lock()
	u.snapshot = u.store.data.clone()
	u.inTx = true

	return nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if !u.inTx {
		return nil
	}
	u.inTx = false
	u.snapshot = nil
	u.store.txMu.Unlock()

	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	if !u.inTx {
		return nil
	}
	u.store.data = u.snapshot
	u.inTx = false
	u.snapshot = nil
	u.store.txMu.Unlock()

	return nil
}

// run executes fn against the live tables, taking the store lock unless a transaction holds it.
func (u *UnitOfWork) run(fn func(t *tables) error) error {
	if !u.inTx {
		u.store.txMu.Lock()
		defer u.store.txMu.Unlock()
	}

	return fn(u.store.data)
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return &orderRepository{uow: u}
}

func (u *UnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return &orderItemRepository{uow: u}
}

func (u *UnitOfWork) BuyerRepository() ibuyerrepo.IBuyerRepository {
	return &buyerRepository{uow: u}
}

func (u *UnitOfWork) SKURepository() iskurepo.ISKURepository {
	return &skuRepository{uow: u}
}

func (u *UnitOfWork) InventoryRepository() iinventoryrepo.IInventoryRepository {
	return &inventoryRepository{uow: u}
}

func (u *UnitOfWork) ShipmentRepository() ishipmentrepo.IShipmentRepository {
	return &shipmentRepository{uow: u}
}

func (u *UnitOfWork) TransactionRepository() itransactionrepo.ITransactionRepository {
	return &transactionRepository{uow: u}
}
