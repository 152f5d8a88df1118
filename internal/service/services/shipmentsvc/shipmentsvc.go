package shipmentsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/notification"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/service/numbering"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const (
	notifyConcurrency = 3
	notifyTimeout     = 30 * time.Second
)

type auditor interface {
	Log(ctx context.Context, action, entityType string, entityID any, before, after any, meta map[string]any)
}

type notifier interface {
	SendShipmentStatusChanged(ctx context.Context, n notification.ShipmentStatusChanged) error
}

// ShipmentService drives the shipment lifecycle and its effect on the parent order.
type ShipmentService struct {
	newUOW      iuow.Factory
	numbers     *numbering.Generator
	auditor     auditor
	notifier    notifier
	subscribers []string
	now         func() time.Time
}

// option is a function that configures the ShipmentService.
type option func(*ShipmentService)

// MustNewShipmentService creates a new ShipmentService.
func MustNewShipmentService(opts ...option) *ShipmentService {
	s := &ShipmentService{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		panic("shipmentsvc: unit of work factory is required")
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
	return func(s *ShipmentService) {
		s.newUOW = factory
	}
}

// WithNumberGenerator sets the generator of shipment numbers.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNumberGenerator(g *numbering.Generator) option {
	return func(s *ShipmentService) {
		s.numbers = g
	}
}

// WithAuditor sets the audit trail.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditor(a auditor) option {
	return func(s *ShipmentService) {
		s.auditor = a
	}
}

// WithNotifier sets where status change notifications go. subscribers receive every
// notification next to the buyer contact.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotifier(n notifier, subscribers ...string) option {
	return func(s *ShipmentService) {
		s.notifier = n
		s.subscribers = subscribers
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *ShipmentService) {
		s.now = now
	}
}

func (s *ShipmentService) audit(
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

// CreateShipmentInput is a request to create a shipment for an order.
type CreateShipmentInput struct {
	OrderID            int64
	Carrier            string
	TrackingNumber     string
	VesselOrFlight     string
	ContainerNo        string
	SealNo             string
	Mode               shipment.Mode
	EstimatedDeparture *time.Time
	EstimatedArrival   *time.Time
	FreightCost        decimal.Decimal
	InsuranceCost      decimal.Decimal
	TrackingURL        string
	Notes              string
}

// Create stores a shipment. A confirmed or packed order is moved to shipped in the same transaction.
func (s *ShipmentService) Create(ctx context.Context, in CreateShipmentInput) (shipment.Shipment, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ShipmentService.Create")
	defer span.End()

	if in.OrderID <= 0 {
		return shipment.Shipment{}, errs.Validation("orderId is required")
	}
	if in.FreightCost.IsNegative() || in.InsuranceCost.IsNegative() {
		return shipment.Shipment{}, errs.Validation("freight and insurance costs must not be negative")
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	o, err := work.OrderRepository().GetForUpdate(ctx, in.OrderID)
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to lock order: %w", err)
	}
	if !auditlog.ActorFromContext(ctx).CanAccessBuyer(o.BuyerID) {
		return shipment.Shipment{}, errs.Forbidden("order %d belongs to another buyer", o.ID)
	}
	if o.Status == order.StatusCancelled {
		return shipment.Shipment{}, errs.Conflict("order %s is cancelled", o.OrderNo)
	}

	now := s.now()
	draft := shipment.Shipment{
		OrderID:            in.OrderID,
		Carrier:            strings.TrimSpace(in.Carrier),
		TrackingNumber:     strings.TrimSpace(in.TrackingNumber),
		VesselOrFlight:     in.VesselOrFlight,
		ContainerNo:        in.ContainerNo,
		SealNo:             in.SealNo,
		Mode:               in.Mode,
		Status:             shipment.StatusCreated,
		EstimatedDeparture: in.EstimatedDeparture,
		EstimatedArrival:   in.EstimatedArrival,
		FreightCost:        in.FreightCost,
		InsuranceCost:      in.InsuranceCost,
		TrackingURL:        in.TrackingURL,
		Notes:              in.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if draft.Mode == "" {
		draft.Mode = shipment.ModeSea
	}

	var created shipment.Shipment
	_, err = s.numbers.Assign(ctx, numbering.PrefixShipment, func(no string) error {
		draft.ShipmentNo = no
		var insertErr error
		created, insertErr = work.ShipmentRepository().Insert(ctx, draft)

		return insertErr
	})
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to insert shipment: %w", err)
	}

	var forced *order.Order
	if o.Status == order.StatusConfirmed || o.Status == order.StatusPacked {
		next := o
		next.Status = order.StatusShipped
		next.ActualShipDate = &now
		updated, err := work.OrderRepository().Update(ctx, next)
		if err != nil {
			return shipment.Shipment{}, fmt.Errorf("failed to mark order shipped: %w", err)
		}
		forced = &updated
	}

	if err = work.Commit(ctx); err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to commit shipment: %w", err)
	}

	slog.Info("Shipment created", "shipment_id", created.ID, "shipment_no", created.ShipmentNo, "order_id", o.ID)
	s.audit(ctx, auditlog.ActionShipmentCreated, auditlog.EntityShipment, created.ID, nil, created, nil)
	if forced != nil {
		s.audit(ctx, auditlog.ActionOrderStatusForced, auditlog.EntityOrder, o.ID,
			map[string]any{"status": o.Status},
			map[string]any{"status": forced.Status, "actualShipDate": forced.ActualShipDate},
			map[string]any{"shipmentId": created.ID},
		)
	}

	return created, nil
}

// Update applies patch to the shipment. Any status is accepted; a status change notifies the
// buyer contact and the configured subscribers.
func (s *ShipmentService) Update(ctx context.Context, id int64, patch shipment.Patch) (shipment.Shipment, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ShipmentService.Update")
	defer span.End()

	if patch.FreightCost != nil && patch.FreightCost.IsNegative() {
		return shipment.Shipment{}, errs.Validation("freightCost must not be negative")
	}
	if patch.InsuranceCost != nil && patch.InsuranceCost.IsNegative() {
		return shipment.Shipment{}, errs.Validation("insuranceCost must not be negative")
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	current, err := work.ShipmentRepository().GetForUpdate(ctx, id)
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to get shipment: %w", err)
	}
	if err = s.checkAccess(ctx, work, current.OrderID); err != nil {
		return shipment.Shipment{}, err
	}

	next := current
	patch.Apply(&next)

	updated, err := work.ShipmentRepository().Update(ctx, next)
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to update shipment: %w", err)
	}

	if err = work.Commit(ctx); err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to commit shipment update: %w", err)
	}

	s.audit(ctx, auditlog.ActionShipmentUpdated, auditlog.EntityShipment, id, current, updated, nil)
	if current.Status != updated.Status {
		s.notifyStatusChange(ctx, current.Status, updated)
	}

	return updated, nil
}

// Get returns one shipment.
func (s *ShipmentService) Get(ctx context.Context, id int64) (shipment.Shipment, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ShipmentService.Get")
	defer span.End()

	work := s.newUOW()
	sh, err := work.ShipmentRepository().Get(ctx, id)
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to get shipment: %w", err)
	}
	if err = s.checkAccess(ctx, work, sh.OrderID); err != nil {
		return shipment.Shipment{}, err
	}

	return sh, nil
}

// List returns shipments matching filter. Buyer actors only see shipments of their own orders.
func (s *ShipmentService) List(ctx context.Context, filter shipment.QueryShipmentsModel) ([]shipment.Shipment, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ShipmentService.List")
	defer span.End()

	work := s.newUOW()

	if actor := auditlog.ActorFromContext(ctx); actor.IsBuyer() {
		owned, err := buyerOrderIDs(ctx, work, actor.BuyerID)
		if err != nil {
			return nil, err
		}
		filter.OrderIds = scopeIDs(filter.OrderIds, owned)
		if len(filter.OrderIds) == 0 {
			return []shipment.Shipment{}, nil
		}
	}

	shipments, err := work.ShipmentRepository().Query(ctx, &filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	if shipments == nil {
		shipments = []shipment.Shipment{}
	}

	return shipments, nil
}

// Track returns the shipment with its carrier events in the order they occurred.
func (s *ShipmentService) Track(ctx context.Context, id int64) (shipment.Tracking, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ShipmentService.Track")
	defer span.End()

	sh, err := s.Get(ctx, id)
	if err != nil {
		return shipment.Tracking{}, err
	}

	events, err := s.newUOW().ShipmentRepository().QueryEvents(ctx, id)
	if err != nil {
		return shipment.Tracking{}, fmt.Errorf("failed to query shipment events: %w", err)
	}
	if events == nil {
		events = []shipment.Event{}
	}

	return shipment.Tracking{Shipment: sh, Events: events}, nil
}

// HandleCarrierUpdate records a carrier event and applies its mapped status. Carrier statuses
// without a mapping are recorded without changing the shipment. A repeated update is a no-op.
func (s *ShipmentService) HandleCarrierUpdate(
	ctx context.Context,
	upd shipment.CarrierUpdate,
) (shipment.Shipment, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ShipmentService.HandleCarrierUpdate")
	defer span.End()

	upd.TrackingNumber = strings.TrimSpace(upd.TrackingNumber)
	upd.Status = strings.ToLower(strings.TrimSpace(upd.Status))
	upd.Location = strings.TrimSpace(upd.Location)
	if upd.TrackingNumber == "" {
		return shipment.Shipment{}, errs.Validation("trackingNumber is required")
	}
	if upd.Status == "" {
		return shipment.Shipment{}, errs.Validation("status is required")
	}
	if upd.Timestamp.IsZero() {
		upd.Timestamp = s.now()
	}
	upd.Timestamp = upd.Timestamp.UTC()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	found, err := work.ShipmentRepository().GetByTrackingNumber(ctx, upd.TrackingNumber)
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to find shipment: %w", err)
	}
	current, err := work.ShipmentRepository().GetForUpdate(ctx, found.ID)
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to lock shipment: %w", err)
	}

	events, err := work.ShipmentRepository().QueryEvents(ctx, current.ID)
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to query shipment events: %w", err)
	}
	for _, e := range events {
		if e.CarrierStatus == upd.Status && e.Location == upd.Location && e.OccurredAt.Equal(upd.Timestamp) {
			slog.Info("Duplicate carrier update ignored",
				"shipment_id", current.ID,
				"tracking_number", upd.TrackingNumber,
				"status", upd.Status,
			)

			return current, nil
		}
	}

	mapped, ok := shipment.MapCarrierStatus(upd.Status)
	event := shipment.Event{
		ShipmentID:    current.ID,
		CarrierStatus: upd.Status,
		Location:      upd.Location,
		Carrier:       strings.TrimSpace(upd.Carrier),
		OccurredAt:    upd.Timestamp,
		CreatedAt:     s.now(),
	}
	if ok {
		event.MappedStatus = mapped
	}
	if _, err = work.ShipmentRepository().InsertEvent(ctx, event); err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to insert shipment event: %w", err)
	}

	updated := current
	if ok {
		arrival := current.ActualArrival
		changed := updated.ApplyCarrierStatus(mapped, upd.Timestamp)
		if changed || arrival != updated.ActualArrival {
			updated, err = work.ShipmentRepository().Update(ctx, updated)
			if err != nil {
				return shipment.Shipment{}, fmt.Errorf("failed to update shipment: %w", err)
			}
		}
	} else {
		slog.Warn("Unmapped carrier status", "shipment_id", current.ID, "status", upd.Status)
	}

	if err = work.Commit(ctx); err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to commit carrier update: %w", err)
	}

	s.audit(ctx, auditlog.ActionShipmentTracked, auditlog.EntityShipment, current.ID,
		map[string]any{"status": current.Status, "actualArrival": current.ActualArrival},
		map[string]any{"status": updated.Status, "actualArrival": updated.ActualArrival},
		map[string]any{"carrierStatus": upd.Status, "location": upd.Location, "carrier": upd.Carrier},
	)
	if current.Status != updated.Status {
		s.notifyStatusChange(ctx, current.Status, updated)
	}

	return updated, nil
}

func (s *ShipmentService) checkAccess(ctx context.Context, work iuow.UnitOfWork, orderID int64) error {
	actor := auditlog.ActorFromContext(ctx)
	if !actor.IsBuyer() {
		return nil
	}

	o, err := work.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if !actor.CanAccessBuyer(o.BuyerID) {
		return errs.Forbidden("shipment belongs to another buyer")
	}

	return nil
}

// notifyStatusChange tells the buyer contact and every subscriber about the new status.
// Failures are logged only.
func (s *ShipmentService) notifyStatusChange(ctx context.Context, previous shipment.Status, sh shipment.Shipment) {
	if s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	work := s.newUOW()
	o, err := work.OrderRepository().Get(ctx, sh.OrderID)
	if err != nil {
		slog.Error("Failed to load order for shipment notification", "shipment_id", sh.ID, "error", err)

		return
	}

	recipients := make([]string, 0, len(s.subscribers)+1)
	b, err := work.BuyerRepository().Get(ctx, o.BuyerID)
	switch {
	case err == nil && b.ContactEmail != "":
		recipients = append(recipients, b.ContactEmail)
	case err != nil && !errors.Is(err, errs.ErrNotFound):
		slog.Error("Failed to load buyer for shipment notification", "shipment_id", sh.ID, "error", err)
	}
	for _, sub := range s.subscribers {
		if sub != "" && !slices.Contains(recipients, sub) {
			recipients = append(recipients, sub)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(notifyConcurrency)
	for _, recipient := range recipients {
		n := notification.ShipmentStatusChanged{
			Recipient:      recipient,
			ShipmentID:     sh.ID,
			ShipmentNo:     sh.ShipmentNo,
			OrderID:        o.ID,
			OrderNo:        o.OrderNo,
			PreviousStatus: string(previous),
			Status:         string(sh.Status),
			TrackingNumber: sh.TrackingNumber,
			TrackingURL:    sh.TrackingURL,
			ChangedAt:      s.now(),
		}
		eg.Go(func() error {
			if err := s.notifier.SendShipmentStatusChanged(egCtx, n); err != nil {
				slog.Error("Failed to send shipment notification",
					"shipment_id", sh.ID,
					"recipient", n.Recipient,
					"error", err,
				)
			}

			return nil
		})
	}
	_ = eg.Wait()
}

func buyerOrderIDs(ctx context.Context, work iuow.UnitOfWork, buyerID int64) ([]int64, error) {
	orders, err := work.OrderRepository().Query(ctx, &order.QueryOrdersModel{BuyerIds: []int64{buyerID}})
	if err != nil {
		return nil, fmt.Errorf("failed to query buyer orders: %w", err)
	}
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	return ids, nil
}

// scopeIDs narrows requested to the ids in owned. An empty request means all owned ids.
func scopeIDs(requested, owned []int64) []int64 {
	if len(requested) == 0 {
		return owned
	}
	scoped := make([]int64, 0, len(requested))
	for _, id := range requested {
		if slices.Contains(owned, id) {
			scoped = append(scoped, id)
		}
	}

	return scoped
}
