// Package orders serves the order ledger endpoints.
package orders

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/services/ordersvc"
)

// service is the order ledger as seen by the handlers.
type service interface {
	Create(ctx context.Context, in ordersvc.CreateOrderInput) (order.Order, error)
	Get(ctx context.Context, id int64) (order.Order, error)
	List(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
	Update(ctx context.Context, id int64, patch order.Patch) (order.Order, error)
	Delete(ctx context.Context, id int64) error
}
