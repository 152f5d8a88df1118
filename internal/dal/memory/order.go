package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/orderitem"
)

type orderRepository struct {
	uow *UnitOfWork
}

func (r *orderRepository) Insert(_ context.Context, o order.Order) (order.Order, error) {
	err := r.uow.run(func(t *tables) error {
		for _, existing := range t.orders {
			if existing.OrderNo == o.OrderNo {
				return errs.ErrDuplicateKey
			}
		}
		o.ID = t.nextID()
		o.OrderItems = nil
		t.orders[o.ID] = o

		return nil
	})
	if err != nil {
		return order.Order{}, err
	}
	o.OrderItems = []orderitem.OrderItem{}

	return o, nil
}

func (r *orderRepository) Get(_ context.Context, id int64) (order.Order, error) {
	var o order.Order
	err := r.uow.run(func(t *tables) error {
		found, ok := t.orders[id]
		if !ok {
			return errs.NotFound("order", id)
		}
		o = found

		return nil
	})
	o.OrderItems = []orderitem.OrderItem{}

	return o, err
}

// GetForUpdate needs no row lock here: a transaction already owns the whole store.
func (r *orderRepository) GetForUpdate(ctx context.Context, id int64) (order.Order, error) {
	return r.Get(ctx, id)
}

func (r *orderRepository) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	var result []order.Order
	err := r.uow.run(func(t *tables) error {
		for _, o := range t.orders {
			if len(filter.Ids) > 0 && !slices.Contains(filter.Ids, o.ID) {
				continue
			}
			if len(filter.BuyerIds) > 0 && !slices.Contains(filter.BuyerIds, o.BuyerID) {
				continue
			}
			if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, o.Status) {
				continue
			}
			if filter.OrderNo != "" && o.OrderNo != filter.OrderNo {
				continue
			}
			o.OrderItems = []orderitem.OrderItem{}
			result = append(result, o)
		}

		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return page(result, filter.Limit, filter.Offset), err
}

func (r *orderRepository) Update(_ context.Context, o order.Order) (order.Order, error) {
	err := r.uow.run(func(t *tables) error {
		current, ok := t.orders[o.ID]
		if !ok {
			return errs.NotFound("order", o.ID)
		}
		o.OrderNo = current.OrderNo
		o.BuyerID = current.BuyerID
		o.CreatedAt = current.CreatedAt
		o.UpdatedAt = r.uow.store.now()
		o.OrderItems = nil
		t.orders[o.ID] = o

		return nil
	})
	if err != nil {
		return order.Order{}, err
	}
	o.OrderItems = []orderitem.OrderItem{}

	return o, nil
}

func (r *orderRepository) Delete(_ context.Context, id int64) error {
	return r.uow.run(func(t *tables) error {
		if _, ok := t.orders[id]; !ok {
			return errs.NotFound("order", id)
		}
		delete(t.orders, id)

		return nil
	})
}

type orderItemRepository struct {
	uow *UnitOfWork
}

func (r *orderItemRepository) BulkInsert(
	_ context.Context,
	orderItems []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	result := make([]orderitem.OrderItem, 0, len(orderItems))
	err := r.uow.run(func(t *tables) error {
		for _, item := range orderItems {
			if _, ok := t.orders[item.OrderID]; !ok {
				return errs.NotFound("order", item.OrderID)
			}
			item.ID = t.nextID()
			t.items[item.ID] = item
			result = append(result, item)
		}

		return nil
	})

	return result, err
}

func (r *orderItemRepository) Query(
	_ context.Context,
	filter *orderitem.QueryOrderItemsModel,
) ([]orderitem.OrderItem, error) {
	var result []orderitem.OrderItem
	err := r.uow.run(func(t *tables) error {
		for _, item := range t.items {
			if len(filter.Ids) > 0 && !slices.Contains(filter.Ids, item.ID) {
				continue
			}
			if len(filter.OrderIds) > 0 && !slices.Contains(filter.OrderIds, item.OrderID) {
				continue
			}
			if len(filter.SKUIds) > 0 && (item.SKUID == nil || !slices.Contains(filter.SKUIds, *item.SKUID)) {
				continue
			}
			result = append(result, item)
		}

		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return page(result, filter.Limit, filter.Offset), err
}

func (r *orderItemRepository) DeleteByOrder(_ context.Context, orderID int64) (int64, error) {
	var deleted int64
	err := r.uow.run(func(t *tables) error {
		for id, item := range t.items {
			if item.OrderID == orderID {
				delete(t.items, id)
				deleted++
			}
		}

		return nil
	})

	return deleted, err
}
