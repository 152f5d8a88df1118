package inventorysvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/orderitem"
	"go.opentelemetry.io/otel"
)

type auditor interface {
	Log(ctx context.Context, action, entityType string, entityID any, before, after any, meta map[string]any)
}

// InventoryService is the stock ledger: it reserves, releases and adjusts per (SKU, warehouse) quantities.
type InventoryService struct {
	newUOW  iuow.Factory
	auditor auditor
	now     func() time.Time
}

// option is a function that configures the InventoryService.
type option func(*InventoryService)

// MustNewInventoryService creates a new InventoryService. It panics without a unit of work factory.
func MustNewInventoryService(opts ...option) *InventoryService {
	s := &InventoryService{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		panic("inventorysvc: unit of work factory is required")
	}

	return s
}

// WithUnitOfWork sets the unit of work factory.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWork(factory iuow.Factory) option {
	return func(s *InventoryService) {
		s.newUOW = factory
	}
}

// WithAuditor sets the audit trail.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditor(a auditor) option {
	return func(s *InventoryService) {
		s.auditor = a
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *InventoryService) {
		s.now = now
	}
}

func (s *InventoryService) audit(
	ctx context.Context,
	action, entityType string,
	entityID any,
	before, after any,
	meta map[string]any,
) {
	if s.auditor != nil {
		s.auditor.Log(ctx, action, entityType, entityID, before, after, meta)
	}
}

// Reserve walks the order's items and reserves each one against the warehouse.
// Every item is committed on its own; failures are reported in the result and do not undo
// the items reserved before them. Items that already hold a reservation are skipped, so
// calling Reserve again only retries the lines that failed.
func (s *InventoryService) Reserve(
	ctx context.Context,
	orderID, warehouseID int64,
) (inventory.ReserveResult, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "InventoryService.Reserve")
	defer span.End()

	result := inventory.ReserveResult{
		Reservations: []inventory.Reservation{},
		Errors:       []string{},
	}
	if orderID <= 0 || warehouseID <= 0 {
		return result, errs.Validation("orderId and warehouseId must be positive")
	}

	work := s.newUOW()
	o, err := work.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return result, fmt.Errorf("failed to get order: %w", err)
	}
	if !auditlog.ActorFromContext(ctx).CanAccessBuyer(o.BuyerID) {
		return result, errs.Forbidden("order %d belongs to another buyer", orderID)
	}
	if o.Status == order.StatusCancelled {
		return result, errs.Conflict("order %s is cancelled", o.OrderNo)
	}

	items, err := work.OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{
		OrderIds: []int64{orderID},
	})
	if err != nil {
		return result, fmt.Errorf("failed to query order items: %w", err)
	}

	for _, item := range items {
		if item.SKUID == nil {
			continue
		}

		res, skipped, err := s.reserveItem(ctx, item, warehouseID)
		switch {
		case err == nil && skipped:
			continue
		case err == nil:
			result.Reservations = append(result.Reservations, res)
			s.audit(ctx, auditlog.ActionInventoryReserved, auditlog.EntityReservation, res.ID, nil, res, map[string]any{
				"orderId":     orderID,
				"warehouseId": warehouseID,
			})
		case errs.KindOf(err) == errs.KindInternal:
			return result, err
		default:
			result.Errors = append(result.Errors, reserveErrorMessage(err))
		}
	}

	slog.Info("Reserved order inventory",
		"order_id", orderID,
		"warehouse_id", warehouseID,
		"reserved", len(result.Reservations),
		"failed", len(result.Errors),
	)

	return result, nil
}

// reserveError carries the per-item message placed in ReserveResult.Errors.
type reserveError struct {
	kind error
	msg  string
}

func (e *reserveError) Error() string { return e.msg }
func (e *reserveError) Unwrap() error { return e.kind }

func reserveErrorMessage(err error) string {
	var re *reserveError
	if errors.As(err, &re) {
		return re.msg
	}

	return err.Error()
}

// reserveItem reserves one line in its own transaction. The order row is locked first so two
// concurrent passes over the same order cannot both reserve the same line.
func (s *InventoryService) reserveItem(
	ctx context.Context,
	item orderitem.OrderItem,
	warehouseID int64,
) (res inventory.Reservation, skipped bool, err error) {
	work := s.newUOW()
	if err = work.Begin(ctx); err != nil {
		return res, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	o, err := work.OrderRepository().GetForUpdate(ctx, item.OrderID)
	if err != nil {
		return res, false, fmt.Errorf("failed to lock order: %w", err)
	}
	if o.Status == order.StatusCancelled {
		return res, false, &reserveError{
			kind: errs.ErrConflict,
			msg:  fmt.Sprintf("Order %s was cancelled before SKU %s was reserved", o.OrderNo, item.SKUCode),
		}
	}

	active, err := work.InventoryRepository().QueryReservations(ctx, item.OrderID, inventory.ReservationReserved)
	if err != nil {
		return res, false, fmt.Errorf("failed to query reservations: %w", err)
	}
	for _, r := range active {
		if r.OrderItemID == item.ID {
			return res, true, nil
		}
	}

	rec, err := work.InventoryRepository().Reserve(ctx, *item.SKUID, warehouseID, item.Quantity)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return res, false, &reserveError{
			kind: errs.ErrNotFound,
			msg:  fmt.Sprintf("No inventory found for SKU %s in warehouse", item.SKUCode),
		}
	case errors.Is(err, errs.ErrInsufficientStock):
		return res, false, &reserveError{
			kind: errs.ErrInsufficientStock,
			msg: fmt.Sprintf("Insufficient stock for SKU %s: available %d, requested %d",
				item.SKUCode, rec.QtyAvailable, item.Quantity),
		}
	case err != nil:
		return res, false, fmt.Errorf("failed to reserve stock: %w", err)
	}

	res, err = work.InventoryRepository().InsertReservation(ctx, inventory.Reservation{
		OrderID:     item.OrderID,
		OrderItemID: item.ID,
		SKUID:       *item.SKUID,
		SKUCode:     item.SKUCode,
		WarehouseID: warehouseID,
		Qty:         item.Quantity,
		State:       inventory.ReservationReserved,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return res, false, fmt.Errorf("failed to insert reservation: %w", err)
	}

	if err = work.Commit(ctx); err != nil {
		return res, false, fmt.Errorf("failed to commit reservation: %w", err)
	}

	return res, false, nil
}

// Release returns the quantity of every active reservation of the order to available stock.
func (s *InventoryService) Release(ctx context.Context, orderID int64) (inventory.ReleaseResult, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "InventoryService.Release")
	defer span.End()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return inventory.ReleaseResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	o, err := work.OrderRepository().GetForUpdate(ctx, orderID)
	if err != nil {
		return inventory.ReleaseResult{}, fmt.Errorf("failed to lock order: %w", err)
	}
	if !auditlog.ActorFromContext(ctx).CanAccessBuyer(o.BuyerID) {
		return inventory.ReleaseResult{}, errs.Forbidden("order %d belongs to another buyer", orderID)
	}

	result, err := s.ReleaseInTx(ctx, work, orderID)
	if err != nil {
		return inventory.ReleaseResult{}, err
	}

	if err = work.Commit(ctx); err != nil {
		return inventory.ReleaseResult{}, fmt.Errorf("failed to commit release: %w", err)
	}

	s.AuditReleased(ctx, orderID, result)

	return result, nil
}

// ReleaseInTx releases the order's active reservations inside a transaction the caller owns.
// The caller is expected to hold the order row lock and to record the audit entries after commit.
func (s *InventoryService) ReleaseInTx(
	ctx context.Context,
	work iuow.UnitOfWork,
	orderID int64,
) (inventory.ReleaseResult, error) {
	result := inventory.ReleaseResult{
		Released: []inventory.Reservation{},
		Errors:   []string{},
	}

	active, err := work.InventoryRepository().QueryReservations(ctx, orderID, inventory.ReservationReserved)
	if err != nil {
		return result, fmt.Errorf("failed to query reservations: %w", err)
	}

	now := s.now()
	for _, res := range active {
		ok, err := work.InventoryRepository().MarkReleased(ctx, res.ID, now)
		if err != nil {
			return result, fmt.Errorf("failed to mark reservation released: %w", err)
		}
		if !ok {
			continue
		}

		rec, err := work.InventoryRepository().Release(ctx, res.SKUID, res.WarehouseID, res.Qty)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			result.Errors = append(result.Errors,
				fmt.Sprintf("No inventory found for SKU %s in warehouse", res.SKUCode))
			continue
		case errors.Is(err, errs.ErrInvalidOperation):
			result.Errors = append(result.Errors,
				fmt.Sprintf("Reserved stock for SKU %s is %d, cannot release %d", res.SKUCode, rec.QtyReserved, res.Qty))
			continue
		case err != nil:
			return result, fmt.Errorf("failed to release stock: %w", err)
		}

		res.State = inventory.ReservationReleased
		res.ReleasedAt = &now
		result.Released = append(result.Released, res)
	}

	return result, nil
}

// AuditReleased records one entry per released reservation.
func (s *InventoryService) AuditReleased(ctx context.Context, orderID int64, result inventory.ReleaseResult) {
	for _, res := range result.Released {
		s.audit(ctx, auditlog.ActionInventoryReleased, auditlog.EntityReservation, res.ID,
			map[string]any{"state": inventory.ReservationReserved},
			map[string]any{"state": inventory.ReservationReleased},
			map[string]any{"orderId": orderID, "qty": res.Qty, "skuId": res.SKUID, "warehouseId": res.WarehouseID},
		)
	}
	if len(result.Errors) > 0 {
		slog.Warn("Release left stock untouched for some reservations",
			"order_id", orderID,
			"errors", strings.Join(result.Errors, "; "),
		)
	}
}

// Adjust adds adj.Delta to available stock. A result below zero is rejected with errs.ErrInvalidOperation.
func (s *InventoryService) Adjust(ctx context.Context, adj inventory.Adjustment) (inventory.Record, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "InventoryService.Adjust")
	defer span.End()

	if auditlog.ActorFromContext(ctx).IsBuyer() {
		return inventory.Record{}, errs.Forbidden("buyers cannot adjust inventory")
	}
	if adj.SKUID <= 0 || adj.WarehouseID <= 0 {
		return inventory.Record{}, errs.Validation("skuId and warehouseId must be positive")
	}

	work := s.newUOW()
	rec, err := work.InventoryRepository().Adjust(ctx, adj.SKUID, adj.WarehouseID, adj.Delta)
	if errors.Is(err, errs.ErrInvalidOperation) {
		return inventory.Record{}, fmt.Errorf("%w: available stock is %d, adjustment of %d would make it negative",
			errs.ErrInvalidOperation, rec.QtyAvailable, adj.Delta)
	}
	if err != nil {
		return inventory.Record{}, fmt.Errorf("failed to adjust inventory: %w", err)
	}

	s.audit(ctx, auditlog.ActionInventoryAdjusted, auditlog.EntityInventory, rec.ID,
		map[string]any{"qtyAvailable": rec.QtyAvailable - adj.Delta},
		map[string]any{"qtyAvailable": rec.QtyAvailable},
		map[string]any{"delta": adj.Delta, "reason": adj.Reason, "skuId": adj.SKUID, "warehouseId": adj.WarehouseID},
	)

	return rec, nil
}

// CreateRecord opens a stock ledger row for a (SKU, warehouse) pair.
func (s *InventoryService) CreateRecord(
	ctx context.Context,
	skuID, warehouseID int64,
	initialQty int,
	binLocation string,
) (inventory.Record, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "InventoryService.CreateRecord")
	defer span.End()

	if auditlog.ActorFromContext(ctx).IsBuyer() {
		return inventory.Record{}, errs.Forbidden("buyers cannot create inventory records")
	}
	if skuID <= 0 || warehouseID <= 0 {
		return inventory.Record{}, errs.Validation("skuId and warehouseId must be positive")
	}
	if initialQty < 0 {
		return inventory.Record{}, errs.Validation("initial quantity must not be negative")
	}

	work := s.newUOW()
	item, err := work.SKURepository().Get(ctx, skuID)
	if err != nil {
		return inventory.Record{}, fmt.Errorf("failed to get sku: %w", err)
	}

	rec, err := work.InventoryRepository().Insert(ctx, inventory.Record{
		SKUID:        skuID,
		WarehouseID:  warehouseID,
		QtyAvailable: initialQty,
		BinLocation:  strings.TrimSpace(binLocation),
		UpdatedAt:    s.now(),
	})
	if errors.Is(err, errs.ErrDuplicateKey) {
		return inventory.Record{}, errs.Conflict("inventory for SKU %s in warehouse %d already exists",
			item.Code, warehouseID)
	}
	if err != nil {
		return inventory.Record{}, fmt.Errorf("failed to insert inventory record: %w", err)
	}

	s.audit(ctx, auditlog.ActionInventoryCreated, auditlog.EntityInventory, rec.ID, nil, rec, nil)

	return rec, nil
}

// List returns inventory records matching filter.
func (s *InventoryService) List(
	ctx context.Context,
	filter inventory.QueryRecordsModel,
) ([]inventory.Record, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "InventoryService.List")
	defer span.End()

	records, err := s.newUOW().InventoryRepository().Query(ctx, &filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	if records == nil {
		records = []inventory.Record{}
	}

	return records, nil
}
