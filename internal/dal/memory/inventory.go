package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
)

type inventoryRepository struct {
	uow *UnitOfWork
}

func findRecord(t *tables, skuID, warehouseID int64) (inventory.Record, bool) {
	for _, rec := range t.records {
		if rec.SKUID == skuID && rec.WarehouseID == warehouseID {
			return rec, true
		}
	}

	return inventory.Record{}, false
}

func (r *inventoryRepository) Insert(_ context.Context, rec inventory.Record) (inventory.Record, error) {
	err := r.uow.run(func(t *tables) error {
		if _, ok := findRecord(t, rec.SKUID, rec.WarehouseID); ok {
			return errs.ErrDuplicateKey
		}
		rec.ID = t.nextID()
		rec.UpdatedAt = r.uow.store.now()
		t.records[rec.ID] = rec

		return nil
	})

	return rec, err
}

func (r *inventoryRepository) Get(_ context.Context, skuID, warehouseID int64) (inventory.Record, error) {
	var rec inventory.Record
	err := r.uow.run(func(t *tables) error {
		found, ok := findRecord(t, skuID, warehouseID)
		if !ok {
			return errs.NotFound("inventory record", skuID)
		}
		rec = found

		return nil
	})

	return rec, err
}

func (r *inventoryRepository) Query(
	_ context.Context,
	filter *inventory.QueryRecordsModel,
) ([]inventory.Record, error) {
	var result []inventory.Record
	err := r.uow.run(func(t *tables) error {
		for _, rec := range t.records {
			if len(filter.SKUIds) > 0 && !slices.Contains(filter.SKUIds, rec.SKUID) {
				continue
			}
			if len(filter.WarehouseIds) > 0 && !slices.Contains(filter.WarehouseIds, rec.WarehouseID) {
				continue
			}
			result = append(result, rec)
		}

		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return page(result, filter.Limit, filter.Offset), err
}

// mutate applies change to the record when allowed reports true, mirroring a conditional UPDATE.
func (r *inventoryRepository) mutate(
	skuID, warehouseID int64,
	allowed func(inventory.Record) bool,
	change func(*inventory.Record),
	rejected error,
) (inventory.Record, error) {
	var rec inventory.Record
	err := r.uow.run(func(t *tables) error {
		found, ok := findRecord(t, skuID, warehouseID)
		if !ok {
			return errs.NotFound("inventory record", skuID)
		}
		rec = found
		if !allowed(found) {
			return rejected
		}
		change(&found)
		found.UpdatedAt = r.uow.store.now()
		t.records[found.ID] = found
		rec = found

		return nil
	})

	return rec, err
}

func (r *inventoryRepository) Reserve(
	_ context.Context,
	skuID, warehouseID int64,
	qty int,
) (inventory.Record, error) {
	return r.mutate(skuID, warehouseID,
		func(rec inventory.Record) bool { return rec.QtyAvailable >= qty },
		func(rec *inventory.Record) {
			rec.QtyAvailable -= qty
			rec.QtyReserved += qty
		},
		errs.ErrInsufficientStock,
	)
}

func (r *inventoryRepository) Release(
	_ context.Context,
	skuID, warehouseID int64,
	qty int,
) (inventory.Record, error) {
	return r.mutate(skuID, warehouseID,
		func(rec inventory.Record) bool { return rec.QtyReserved >= qty },
		func(rec *inventory.Record) {
			rec.QtyReserved -= qty
			rec.QtyAvailable += qty
		},
		errs.ErrInvalidOperation,
	)
}

func (r *inventoryRepository) Adjust(
	_ context.Context,
	skuID, warehouseID int64,
	delta int,
) (inventory.Record, error) {
	return r.mutate(skuID, warehouseID,
		func(rec inventory.Record) bool { return rec.QtyAvailable+delta >= 0 },
		func(rec *inventory.Record) { rec.QtyAvailable += delta },
		errs.ErrInvalidOperation,
	)
}

func (r *inventoryRepository) InsertReservation(
	_ context.Context,
	res inventory.Reservation,
) (inventory.Reservation, error) {
	err := r.uow.run(func(t *tables) error {
		res.ID = t.nextID()
		t.reservations[res.ID] = res

		return nil
	})

	return res, err
}

func (r *inventoryRepository) QueryReservations(
	_ context.Context,
	orderID int64,
	state inventory.ReservationState,
) ([]inventory.Reservation, error) {
	var result []inventory.Reservation
	err := r.uow.run(func(t *tables) error {
		for _, res := range t.reservations {
			if res.OrderID != orderID {
				continue
			}
			if state != "" && res.State != state {
				continue
			}
			result = append(result, res)
		}

		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, err
}

func (r *inventoryRepository) MarkReleased(_ context.Context, id int64, at time.Time) (bool, error) {
	var released bool
	err := r.uow.run(func(t *tables) error {
		res, ok := t.reservations[id]
		if !ok {
			return errs.NotFound("reservation", id)
		}
		if res.State != inventory.ReservationReserved {
			return nil
		}
		res.State = inventory.ReservationReleased
		res.ReleasedAt = timePtr(at)
		t.reservations[id] = res
		released = true

		return nil
	})

	return released, err
}
