package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
)

type shipmentRepository struct {
	uow *UnitOfWork
}

func (r *shipmentRepository) Insert(_ context.Context, s shipment.Shipment) (shipment.Shipment, error) {
	err := r.uow.run(func(t *tables) error {
		if _, ok := t.orders[s.OrderID]; !ok {
			return errs.NotFound("order", s.OrderID)
		}
		for _, existing := range t.shipments {
			if existing.ShipmentNo == s.ShipmentNo {
				return errs.ErrDuplicateKey
			}
		}
		s.ID = t.nextID()
		t.shipments[s.ID] = s

		return nil
	})

	return s, err
}

func (r *shipmentRepository) Get(_ context.Context, id int64) (shipment.Shipment, error) {
	var s shipment.Shipment
	err := r.uow.run(func(t *tables) error {
		found, ok := t.shipments[id]
		if !ok {
			return errs.NotFound("shipment", id)
		}
		s = found

		return nil
	})

	return s, err
}

// GetForUpdate needs no row lock here: a transaction already owns the whole store.
func (r *shipmentRepository) GetForUpdate(ctx context.Context, id int64) (shipment.Shipment, error) {
	return r.Get(ctx, id)
}

func (r *shipmentRepository) GetByTrackingNumber(
	_ context.Context,
	trackingNumber string,
) (shipment.Shipment, error) {
	var s shipment.Shipment
	err := r.uow.run(func(t *tables) error {
		var matched []shipment.Shipment
		for _, existing := range t.shipments {
			if existing.TrackingNumber == trackingNumber {
				matched = append(matched, existing)
			}
		}
		if len(matched) == 0 {
			return errs.NotFound("shipment with tracking number", trackingNumber)
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
		s = matched[0]

		return nil
	})

	return s, err
}

func (r *shipmentRepository) Query(
	_ context.Context,
	filter *shipment.QueryShipmentsModel,
) ([]shipment.Shipment, error) {
	var result []shipment.Shipment
	err := r.uow.run(func(t *tables) error {
		for _, s := range t.shipments {
			if len(filter.Ids) > 0 && !slices.Contains(filter.Ids, s.ID) {
				continue
			}
			if len(filter.OrderIds) > 0 && !slices.Contains(filter.OrderIds, s.OrderID) {
				continue
			}
			if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, s.Status) {
				continue
			}
			result = append(result, s)
		}

		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return page(result, filter.Limit, filter.Offset), err
}

func (r *shipmentRepository) Update(_ context.Context, s shipment.Shipment) (shipment.Shipment, error) {
	err := r.uow.run(func(t *tables) error {
		current, ok := t.shipments[s.ID]
		if !ok {
			return errs.NotFound("shipment", s.ID)
		}
		s.ShipmentNo = current.ShipmentNo
		s.OrderID = current.OrderID
		s.CreatedAt = current.CreatedAt
		s.UpdatedAt = r.uow.store.now()
		t.shipments[s.ID] = s

		return nil
	})

	return s, err
}

func (r *shipmentRepository) InsertEvent(_ context.Context, e shipment.Event) (shipment.Event, error) {
	err := r.uow.run(func(t *tables) error {
		if _, ok := t.shipments[e.ShipmentID]; !ok {
			return errs.NotFound("shipment", e.ShipmentID)
		}
		e.ID = t.nextID()
		t.events[e.ID] = e

		return nil
	})

	return e, err
}

func (r *shipmentRepository) QueryEvents(_ context.Context, shipmentID int64) ([]shipment.Event, error) {
	result := []shipment.Event{}
	err := r.uow.run(func(t *tables) error {
		for _, e := range t.events {
			if e.ShipmentID == shipmentID {
				result = append(result, e)
			}
		}

		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].ID < result[j].ID
		}

		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})

	return result, err
}
