package uow

import (
	"context"
	"fmt"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/ibuyerrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iinventoryrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/ishipmentrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iskurepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/itransactionrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/trade/internal/dal/postgres"
	buyerrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/buyer/postgres"
	inventoryrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/inventory/postgres"
	orderrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/orderitem/postgres"
	shipmentrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/shipment/postgres"
	skurepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/sku/postgres"
	transactionrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/transaction/postgres"
	"github.com/jackc/pgx/v5"
)

type unitOfWork struct {
	pool            postgres.Querier
	tx              pgx.Tx
	done            bool
	orderRepo       iorderrepo.IOrderRepository
	orderItemRepo   iorderitemrepo.IOrderItemRepository
	buyerRepo       ibuyerrepo.IBuyerRepository
	skuRepo         iskurepo.ISKURepository
	inventoryRepo   iinventoryrepo.IInventoryRepository
	shipmentRepo    ishipmentrepo.IShipmentRepository
	transactionRepo itransactionrepo.ITransactionRepository
	begin           func(ctx context.Context) (pgx.Tx, error)
}

// NewUnitOfWork creates a unit of work whose repositories run on the pool until Begin.
func NewUnitOfWork(client *postgres.Client) iuow.UnitOfWork {
	u := &unitOfWork{
		pool:  client.Pool(),
		begin: client.Pool().Begin,
	}
	u.bind(client.Pool())

	return u
}

// Factory returns a unit of work factory bound to the client.
func Factory(client *postgres.Client) iuow.Factory {
	return func() iuow.UnitOfWork {
		return NewUnitOfWork(client)
	}
}

func (u *unitOfWork) bind(conn postgres.Querier) {
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(conn)
	u.buyerRepo = buyerrepo.NewPostgresBuyerRepository(conn)
	u.skuRepo = skurepo.NewPostgresSKURepository(conn)
	u.inventoryRepo = inventoryrepo.NewPostgresInventoryRepository(conn)
	u.shipmentRepo = shipmentrepo.NewPostgresShipmentRepository(conn)
	u.transactionRepo = transactionrepo.NewPostgresTransactionRepository(conn)
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) BuyerRepository() ibuyerrepo.IBuyerRepository {
	return u.buyerRepo
}

func (u *unitOfWork) SKURepository() iskurepo.ISKURepository {
	return u.skuRepo
}

func (u *unitOfWork) InventoryRepository() iinventoryrepo.IInventoryRepository {
	return u.inventoryRepo
}

func (u *unitOfWork) ShipmentRepository() ishipmentrepo.IShipmentRepository {
	return u.shipmentRepo
}

func (u *unitOfWork) TransactionRepository() itransactionrepo.ITransactionRepository {
	return u.transactionRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.done = false
	// Repositories now run inside the transaction
	u.bind(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil || u.done {
		return nil
	}
	u.done = true
	defer u.bind(u.pool)

	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil || u.done {
		return nil
	}
	u.done = true
	defer u.bind(u.pool)

	return u.tx.Rollback(ctx)
}
