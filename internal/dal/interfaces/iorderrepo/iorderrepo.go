package iorderrepo

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/service/models/order"
)

// IOrderRepository is an interface for order repository.
type IOrderRepository interface {
	// Insert stores a new order. It returns errs.ErrDuplicateKey when the order number is taken.
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	Get(ctx context.Context, id int64) (order.Order, error)
	// GetForUpdate reads the order and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (order.Order, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	// Update writes every mutable column of o in one statement.
	Update(ctx context.Context, o order.Order) (order.Order, error)
	Delete(ctx context.Context, id int64) error
}
