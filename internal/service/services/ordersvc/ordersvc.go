package ordersvc

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
	"github.com/corray333/backend-labs/trade/internal/service/models/currency"
	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/service/models/sku"
	"github.com/corray333/backend-labs/trade/internal/service/models/transaction"
	"github.com/corray333/backend-labs/trade/internal/service/numbering"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

type auditor interface {
	Log(ctx context.Context, action, entityType string, entityID any, before, after any, meta map[string]any)
}

// taxRateProvider supplies the order-wide tax rate as a fraction (0.18 for 18%).
type taxRateProvider interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

// reservationReleaser returns reserved stock inside a caller-owned transaction.
type reservationReleaser interface {
	ReleaseInTx(ctx context.Context, work iuow.UnitOfWork, orderID int64) (inventory.ReleaseResult, error)
	AuditReleased(ctx context.Context, orderID int64, result inventory.ReleaseResult)
}

// OrderService is the order and line-item ledger.
type OrderService struct {
	newUOW          iuow.Factory
	numbers         *numbering.Generator
	taxRates        taxRateProvider
	auditor         auditor
	releaser        reservationReleaser
	defaultCurrency currency.Currency
	defaultIncoterm order.Incoterm
	now             func() time.Time
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService. It panics when a required collaborator is missing.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		defaultCurrency: currency.CurrencyUSD,
		defaultIncoterm: order.IncotermFOB,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		panic("ordersvc: unit of work factory is required")
	}
	if s.taxRates == nil {
		panic("ordersvc: tax rate provider is required")
	}
	if s.numbers == nil {
		s.numbers = numbering.NewGenerator(nil)
	}

	return s
}

// WithUnitOfWork sets the unit of work factory.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWork(factory iuow.Factory) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// WithNumberGenerator sets the generator of order numbers.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNumberGenerator(g *numbering.Generator) option {
	return func(s *OrderService) {
		s.numbers = g
	}
}

// WithTaxRateProvider sets the source of the order-wide tax rate.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTaxRateProvider(p taxRateProvider) option {
	return func(s *OrderService) {
		s.taxRates = p
	}
}

// WithAuditor sets the audit trail.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditor(a auditor) option {
	return func(s *OrderService) {
		s.auditor = a
	}
}

// WithReservationReleaser sets what releases stock when an order is cancelled or deleted.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithReservationReleaser(r reservationReleaser) option {
	return func(s *OrderService) {
		s.releaser = r
	}
}

// WithDefaults overrides the currency and incoterm used when a create request leaves them empty.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDefaults(cur currency.Currency, incoterm order.Incoterm) option {
	return func(s *OrderService) {
		if cur != "" {
			s.defaultCurrency = cur
		}
		if incoterm != "" {
			s.defaultIncoterm = incoterm
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

func (s *OrderService) audit(
	ctx context.Context,
	action string,
	entityID any,
	before, after any,
	meta map[string]any,
) {
	if s.auditor != nil {
		s.auditor.Log(ctx, action, auditlog.EntityOrder, entityID, before, after, meta)
	}
}

// CreateItemInput is one requested order line. SKU is matched by SKUID first, then by SKUCode;
// unmatched lines keep the caller's description, price and HS code.
type CreateItemInput struct {
	SKUID       *int64
	SKUCode     string
	Description string
	HSCode      string
	Unit        string
	Quantity    int
	UnitPrice   *decimal.Decimal
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
}

// CreateOrderInput is a request to create an order with its lines.
type CreateOrderInput struct {
	OrderNo          string
	BuyerID          int64
	Incoterm         order.Incoterm
	Currency         currency.Currency
	DiscountAmount   decimal.Decimal
	ShippingAddress  string
	BillingAddress   string
	PortOfLoading    string
	PortOfDischarge  string
	ExpectedShipDate *time.Time
	Notes            string
	Items            []CreateItemInput
}

// Create stores a new draft order with its items and computed totals.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.Create")
	defer span.End()

	if err := s.validateCreate(ctx, in); err != nil {
		return order.Order{}, err
	}

	rate, err := s.taxRates.TaxRate(ctx)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to get tax rate: %w", err)
	}

	work := s.newUOW()

	b, err := work.BuyerRepository().Get(ctx, in.BuyerID)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to get buyer: %w", err)
	}
	if !b.CanOrder() {
		return order.Order{}, errs.NotFound("active buyer", in.BuyerID)
	}

	items, err := s.resolveItems(ctx, work, in.Items)
	if err != nil {
		return order.Order{}, err
	}

	now := s.now()
	o := order.Order{
		OrderNo:          strings.TrimSpace(in.OrderNo),
		BuyerID:          in.BuyerID,
		Incoterm:         in.Incoterm,
		Currency:         in.Currency,
		Status:           order.StatusDraft,
		PaymentStatus:    order.PaymentPending,
		DiscountAmount:   in.DiscountAmount,
		ShippingAddress:  in.ShippingAddress,
		BillingAddress:   in.BillingAddress,
		PortOfLoading:    in.PortOfLoading,
		PortOfDischarge:  in.PortOfDischarge,
		OrderDate:        now,
		ExpectedShipDate: in.ExpectedShipDate,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if o.Incoterm == "" {
		o.Incoterm = s.defaultIncoterm
	}
	if o.Currency == "" {
		o.Currency = s.defaultCurrency
	}
	o.ApplyTotals(items, rate)

	if err = work.Begin(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	if o.OrderNo != "" {
		o, err = work.OrderRepository().Insert(ctx, o)
		if errors.Is(err, errs.ErrDuplicateKey) {
			return order.Order{}, errs.Conflict("order number %s is already taken", in.OrderNo)
		}
	} else {
		draft := o
		_, err = s.numbers.Assign(ctx, numbering.PrefixOrder, func(no string) error {
			draft.OrderNo = no
			var insertErr error
			o, insertErr = work.OrderRepository().Insert(ctx, draft)

			return insertErr
		})
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = o.ID
		items[i].CreatedAt = now
		items[i].UpdatedAt = now
	}
	items, err = work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order items: %w", err)
	}
	o.OrderItems = items

	if err = work.Commit(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to commit order: %w", err)
	}

	slog.Info("Order created", "order_id", o.ID, "order_no", o.OrderNo, "items", len(items))
	s.audit(ctx, auditlog.ActionOrderCreated, o.ID, nil, o, nil)

	return o, nil
}

func (s *OrderService) validateCreate(ctx context.Context, in CreateOrderInput) error {
	if in.BuyerID <= 0 {
		return errs.Validation("buyerId is required")
	}
	if !auditlog.ActorFromContext(ctx).CanAccessBuyer(in.BuyerID) {
		return errs.Forbidden("cannot create orders for buyer %d", in.BuyerID)
	}
	if len(in.Items) == 0 {
		return errs.Validation("order must contain at least one item")
	}
	if in.DiscountAmount.IsNegative() {
		return errs.Validation("discountAmount must not be negative")
	}
	for i, item := range in.Items {
		if item.Quantity <= 0 {
			return errs.Validation("items[%d]: quantity must be positive", i)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return errs.Validation("items[%d]: unitPrice must not be negative", i)
		}
		if item.DiscountPct.IsNegative() || item.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
			return errs.Validation("items[%d]: discountPct must be between 0 and 100", i)
		}
		if item.TaxPct.IsNegative() {
			return errs.Validation("items[%d]: taxPct must not be negative", i)
		}
	}

	return nil
}

// resolveItems matches every input line against the catalog and prices it.
func (s *OrderService) resolveItems(
	ctx context.Context,
	work iuow.UnitOfWork,
	inputs []CreateItemInput,
) ([]orderitem.OrderItem, error) {
	items := make([]orderitem.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		item := orderitem.OrderItem{
			SKUCode:     sku.NormalizeCode(in.SKUCode),
			Description: strings.TrimSpace(in.Description),
			HSCode:      strings.TrimSpace(in.HSCode),
			Unit:        strings.TrimSpace(in.Unit),
			Quantity:    in.Quantity,
			DiscountPct: in.DiscountPct,
			TaxPct:      in.TaxPct,
		}

		matched, found, err := s.lookupSKU(ctx, work, in)
		if err != nil {
			return nil, err
		}
		if found {
			if matched.State == sku.StateDeactivated {
				return nil, errs.Validation("items[%d]: SKU %s is deactivated", i, matched.Code)
			}
			id := matched.ID
			item.SKUID = &id
			item.SKUCode = matched.Code
			if item.Description == "" {
				item.Description = matched.Description
			}
			if item.HSCode == "" {
				item.HSCode = matched.HSCode
			}
			if item.Unit == "" {
				item.Unit = matched.Unit
			}
			item.UnitPrice = matched.UnitPrice
		}

		if in.UnitPrice != nil {
			item.UnitPrice = *in.UnitPrice
		} else if !found {
			return nil, errs.Validation("items[%d]: unitPrice is required for unknown SKU %q", i, in.SKUCode)
		}
		if item.SKUCode == "" {
			return nil, errs.Validation("items[%d]: skuId or skuCode is required", i)
		}
		if item.Description == "" {
			item.Description = item.SKUCode
		}

		item.Recompute()
		items = append(items, item)
	}

	return items, nil
}

func (s *OrderService) lookupSKU(
	ctx context.Context,
	work iuow.UnitOfWork,
	in CreateItemInput,
) (sku.SKU, bool, error) {
	var (
		matched sku.SKU
		err     error
	)
	switch {
	case in.SKUID != nil:
		matched, err = work.SKURepository().Get(ctx, *in.SKUID)
	case strings.TrimSpace(in.SKUCode) != "":
		matched, err = work.SKURepository().GetByCode(ctx, sku.NormalizeCode(in.SKUCode))
	default:
		return sku.SKU{}, false, nil
	}
	if errors.Is(err, errs.ErrNotFound) {
		return sku.SKU{}, false, nil
	}
	if err != nil {
		return sku.SKU{}, false, fmt.Errorf("failed to get sku: %w", err)
	}

	return matched, true, nil
}

// Get returns the order with its items.
func (s *OrderService) Get(ctx context.Context, id int64) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.Get")
	defer span.End()

	work := s.newUOW()
	o, err := work.OrderRepository().Get(ctx, id)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	if !auditlog.ActorFromContext(ctx).CanAccessBuyer(o.BuyerID) {
		return order.Order{}, errs.Forbidden("order %d belongs to another buyer", id)
	}

	items, err := work.OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{OrderIds: []int64{id}})
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to query order items: %w", err)
	}
	o.OrderItems = items
	if o.OrderItems == nil {
		o.OrderItems = []orderitem.OrderItem{}
	}

	return o, nil
}

// List returns orders matching filter with their items. Buyer actors only see their own orders.
func (s *OrderService) List(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.List")
	defer span.End()

	if actor := auditlog.ActorFromContext(ctx); actor.IsBuyer() {
		filter.BuyerIds = []int64{actor.BuyerID}
	}

	work := s.newUOW()
	orders, err := work.OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	itemQuery := &orderitem.QueryOrderItemsModel{}
	for _, o := range orders {
		itemQuery.OrderIds = append(itemQuery.OrderIds, o.ID)
	}
	items, err := work.OrderItemRepository().Query(ctx, itemQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}

	byOrder := make(map[int64][]orderitem.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].OrderItems = byOrder[orders[i].ID]
		if orders[i].OrderItems == nil {
			orders[i].OrderItems = []orderitem.OrderItem{}
		}
	}

	return orders, nil
}

// Update applies patch as one write under the order row lock. Totals are not recomputed.
// Moving the order to cancelled releases its active reservations in the same transaction.
func (s *OrderService) Update(ctx context.Context, id int64, patch order.Patch) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.Update")
	defer span.End()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	current, err := work.OrderRepository().GetForUpdate(ctx, id)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to lock order: %w", err)
	}
	if !auditlog.ActorFromContext(ctx).CanAccessBuyer(current.BuyerID) {
		return order.Order{}, errs.Forbidden("order %d belongs to another buyer", id)
	}
	if patch.Status != nil && !current.Status.CanTransitionTo(*patch.Status) {
		return order.Order{}, errs.Conflict("order %s cannot move from %s to %s",
			current.OrderNo, current.Status, *patch.Status)
	}

	next := current
	patch.Apply(&next)

	updated, err := work.OrderRepository().Update(ctx, next)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to update order: %w", err)
	}

	var released inventory.ReleaseResult
	cancelled := current.Status != order.StatusCancelled && updated.Status == order.StatusCancelled
	if cancelled && s.releaser != nil {
		released, err = s.releaser.ReleaseInTx(ctx, work, id)
		if err != nil {
			return order.Order{}, fmt.Errorf("failed to release reservations: %w", err)
		}
	}

	if err = work.Commit(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to commit order update: %w", err)
	}

	items, err := s.newUOW().OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{OrderIds: []int64{id}})
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to query order items: %w", err)
	}
	updated.OrderItems = items
	if updated.OrderItems == nil {
		updated.OrderItems = []orderitem.OrderItem{}
	}

	s.audit(ctx, auditlog.ActionOrderUpdated, id, current, updated, nil)
	if cancelled && s.releaser != nil {
		s.releaser.AuditReleased(ctx, id, released)
	}

	return updated, nil
}

// Delete removes a draft-stage order with its items. Orders that shipped, or that already have
// shipments or transactions, are kept.
func (s *OrderService) Delete(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.Delete")
	defer span.End()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	current, err := work.OrderRepository().GetForUpdate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}
	if !auditlog.ActorFromContext(ctx).CanAccessBuyer(current.BuyerID) {
		return errs.Forbidden("order %d belongs to another buyer", id)
	}
	if !current.Deletable() {
		return errs.Conflict("order %s is %s and cannot be deleted", current.OrderNo, current.Status)
	}

	shipments, err := work.ShipmentRepository().Query(ctx, &shipment.QueryShipmentsModel{
		OrderIds: []int64{id},
		Limit:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to query shipments: %w", err)
	}
	if len(shipments) > 0 {
		return errs.Conflict("order %s has shipments and cannot be deleted", current.OrderNo)
	}

	txns, err := work.TransactionRepository().Query(ctx, &transaction.QueryTransactionsModel{
		OrderIds: []int64{id},
		Limit:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to query transactions: %w", err)
	}
	if len(txns) > 0 {
		return errs.Conflict("order %s has transactions and cannot be deleted", current.OrderNo)
	}

	var released inventory.ReleaseResult
	if s.releaser != nil {
		released, err = s.releaser.ReleaseInTx(ctx, work, id)
		if err != nil {
			return fmt.Errorf("failed to release reservations: %w", err)
		}
	}

	removed, err := work.OrderItemRepository().DeleteByOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	if err = work.OrderRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	if err = work.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order delete: %w", err)
	}

	slog.Info("Order deleted", "order_id", id, "order_no", current.OrderNo, "items", removed)
	s.audit(ctx, auditlog.ActionOrderDeleted, id, current, nil, map[string]any{"itemsDeleted": removed})
	if s.releaser != nil {
		s.releaser.AuditReleased(ctx, id, released)
	}

	return nil
}
