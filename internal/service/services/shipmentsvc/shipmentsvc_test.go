package shipmentsvc

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/service/services/servicetest"
)

var shipmentNoPattern = regexp.MustCompile(`^SHP-\d{6}-\d{4}$`)

type fixture struct {
	env      *servicetest.Env
	auditor  *servicetest.Auditor
	notifier *servicetest.Notifier
	svc      *ShipmentService
	clock    time.Time
}

func newFixture() *fixture {
	env := servicetest.NewEnv()
	f := &fixture{
		env:      env,
		auditor:  &servicetest.Auditor{},
		notifier: &servicetest.Notifier{},
		clock:    time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
	}
	f.svc = MustNewShipmentService(
		WithUnitOfWork(env.Factory),
		WithAuditor(f.auditor),
		WithNotifier(f.notifier, "logistics@exporter.test", "ops@acme.test"),
		WithClock(func() time.Time { return f.clock }),
	)

	return f
}

func (f *fixture) orderWithStatus(t *testing.T, st order.Status) order.Order {
	t.Helper()

	b := f.env.Buyer(t, "Acme GmbH", "ops@acme.test")
	o := f.env.Order(t, b.ID, "", servicetest.Line{Qty: 1})
	if st == order.StatusDraft {
		return o
	}
	o.Status = st
	o, err := f.env.Factory().OrderRepository().Update(context.Background(), o)
	if err != nil {
		t.Fatalf("update order: %v", err)
	}

	return o
}

func (f *fixture) reloadOrder(t *testing.T, id int64) order.Order {
	t.Helper()

	o, err := f.env.Factory().OrderRepository().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}

	return o
}

func TestCreateShipsConfirmedOrder(t *testing.T) {
	for _, st := range []order.Status{order.StatusConfirmed, order.StatusPacked} {
		f := newFixture()
		o := f.orderWithStatus(t, st)

		sh, err := f.svc.Create(context.Background(), CreateShipmentInput{OrderID: o.ID, Carrier: "Maersk"})
		if err != nil {
			t.Fatalf("%s: Create: %v", st, err)
		}
		if !shipmentNoPattern.MatchString(sh.ShipmentNo) {
			t.Fatalf("shipment number %q does not match the contract", sh.ShipmentNo)
		}
		if sh.Status != shipment.StatusCreated || sh.Mode != shipment.ModeSea {
			t.Fatalf("defaults = %s/%s, want created/sea", sh.Status, sh.Mode)
		}

		got := f.reloadOrder(t, o.ID)
		if got.Status != order.StatusShipped {
			t.Fatalf("%s: order status = %s, want shipped", st, got.Status)
		}
		if got.ActualShipDate == nil || !got.ActualShipDate.Equal(f.clock) {
			t.Fatalf("%s: actual ship date = %v, want %v", st, got.ActualShipDate, f.clock)
		}

		actions := f.auditor.Actions()
		if len(actions) != 2 || actions[1] != auditlog.ActionOrderStatusForced {
			t.Fatalf("%s: audit actions = %v", st, actions)
		}
	}
}

func TestCreateLeavesDraftOrderAlone(t *testing.T) {
	f := newFixture()
	o := f.orderWithStatus(t, order.StatusDraft)

	if _, err := f.svc.Create(context.Background(), CreateShipmentInput{OrderID: o.ID, Mode: shipment.ModeAir}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := f.reloadOrder(t, o.ID); got.Status != order.StatusDraft || got.ActualShipDate != nil {
		t.Fatalf("draft order changed: %s %v", got.Status, got.ActualShipDate)
	}
}

func TestCreateRejects(t *testing.T) {
	f := newFixture()
	cancelled := f.orderWithStatus(t, order.StatusCancelled)

	if _, err := f.svc.Create(context.Background(), CreateShipmentInput{OrderID: 31337}); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("unknown order err = %v, want not found", err)
	}
	if _, err := f.svc.Create(context.Background(), CreateShipmentInput{OrderID: cancelled.ID}); errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("cancelled order err = %v, want conflict", err)
	}
}

func TestUpdateNotifiesOnStatusChange(t *testing.T) {
	f := newFixture()
	o := f.orderWithStatus(t, order.StatusConfirmed)
	ctx := context.Background()

	sh, err := f.svc.Create(ctx, CreateShipmentInput{OrderID: o.ID, TrackingNumber: "MAEU1234567"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	vessel := "MSC Aurora"
	if _, err = f.svc.Update(ctx, sh.ID, shipment.Patch{VesselOrFlight: &vessel}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(f.notifier.Sent) != 0 {
		t.Fatalf("update without status change sent %d notifications", len(f.notifier.Sent))
	}

	next := shipment.StatusInTransit
	updated, err := f.svc.Update(ctx, sh.ID, shipment.Patch{Status: &next})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != shipment.StatusInTransit || updated.VesselOrFlight != vessel {
		t.Fatalf("unexpected shipment: %+v", updated)
	}

	// The buyer contact is also a subscriber and is notified once.
	if len(f.notifier.Sent) != 2 {
		t.Fatalf("sent %d notifications, want 2", len(f.notifier.Sent))
	}
	for _, n := range f.notifier.Sent {
		if n.PreviousStatus != "created" || n.Status != "in_transit" || n.OrderNo != o.OrderNo {
			t.Fatalf("unexpected notification: %+v", n)
		}
	}

	if _, err = f.svc.Update(ctx, 777777, shipment.Patch{Status: &next}); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("unknown shipment err = %v, want not found", err)
	}
}

func TestUpdateIgnoresNotifierFailure(t *testing.T) {
	f := newFixture()
	f.notifier.Err = errors.New("smtp relay down")
	o := f.orderWithStatus(t, order.StatusDraft)
	ctx := context.Background()

	sh, err := f.svc.Create(ctx, CreateShipmentInput{OrderID: o.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	next := shipment.StatusReturned
	if _, err = f.svc.Update(ctx, sh.ID, shipment.Patch{Status: &next}); err != nil {
		t.Fatalf("Update must not fail on notification errors: %v", err)
	}
}

func TestCarrierDeliveryStampsArrivalOnce(t *testing.T) {
	f := newFixture()
	o := f.orderWithStatus(t, order.StatusConfirmed)
	ctx := context.Background()

	sh, err := f.svc.Create(ctx, CreateShipmentInput{OrderID: o.ID, TrackingNumber: "AWB-555"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	delivered := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	upd := shipment.CarrierUpdate{
		TrackingNumber: "AWB-555",
		Status:         "delivered",
		Location:       "Hamburg",
		Timestamp:      delivered,
		Carrier:        "DHL",
	}
	got, err := f.svc.HandleCarrierUpdate(ctx, upd)
	if err != nil {
		t.Fatalf("HandleCarrierUpdate: %v", err)
	}
	if got.Status != shipment.StatusDelivered || got.ActualArrival == nil || !got.ActualArrival.Equal(delivered) {
		t.Fatalf("after delivery: %s %v", got.Status, got.ActualArrival)
	}

	f.clock = f.clock.Add(48 * time.Hour)
	again, err := f.svc.HandleCarrierUpdate(ctx, upd)
	if err != nil {
		t.Fatalf("repeated HandleCarrierUpdate: %v", err)
	}
	if !again.ActualArrival.Equal(delivered) {
		t.Fatalf("repeated webhook moved actual arrival to %v", again.ActualArrival)
	}

	tracking, err := f.svc.Track(ctx, sh.ID)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(tracking.Events) != 1 {
		t.Fatalf("repeated webhook stored %d events, want 1", len(tracking.Events))
	}
}

func TestCarrierUpdatesMapping(t *testing.T) {
	f := newFixture()
	o := f.orderWithStatus(t, order.StatusDraft)
	ctx := context.Background()

	sh, err := f.svc.Create(ctx, CreateShipmentInput{OrderID: o.ID, TrackingNumber: "BL-42"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	base := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	steps := []struct {
		status string
		want   shipment.Status
	}{
		{"picked_up", shipment.StatusBooked},
		{"customs_hold", shipment.StatusBooked},
		{"in_transit", shipment.StatusInTransit},
		{"arrived", shipment.StatusArrived},
	}
	for i, step := range steps {
		got, err := f.svc.HandleCarrierUpdate(ctx, shipment.CarrierUpdate{
			TrackingNumber: "BL-42",
			Status:         step.status,
			Timestamp:      base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("%s: %v", step.status, err)
		}
		if got.Status != step.want {
			t.Fatalf("%s: status = %s, want %s", step.status, got.Status, step.want)
		}
	}

	tracking, err := f.svc.Track(ctx, sh.ID)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(tracking.Events) != len(steps) {
		t.Fatalf("events = %d, want %d", len(tracking.Events), len(steps))
	}
	if tracking.Events[1].MappedStatus != "" {
		t.Fatalf("unmapped status recorded as %q", tracking.Events[1].MappedStatus)
	}
	for i := 1; i < len(tracking.Events); i++ {
		if tracking.Events[i].OccurredAt.Before(tracking.Events[i-1].OccurredAt) {
			t.Fatal("events are not ordered by occurrence")
		}
	}

	_, err = f.svc.HandleCarrierUpdate(ctx, shipment.CarrierUpdate{TrackingNumber: "NOPE", Status: "arrived"})
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("unknown tracking number err = %v, want not found", err)
	}
	_, err = f.svc.HandleCarrierUpdate(ctx, shipment.CarrierUpdate{TrackingNumber: "BL-42"})
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("missing status err = %v, want validation", err)
	}
}

func TestBuyerSeesOwnShipmentsOnly(t *testing.T) {
	f := newFixture()
	mine := f.orderWithStatus(t, order.StatusDraft)
	theirs := f.orderWithStatus(t, order.StatusDraft)
	ctx := context.Background()

	own, err := f.svc.Create(ctx, CreateShipmentInput{OrderID: mine.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	other, err := f.svc.Create(ctx, CreateShipmentInput{OrderID: theirs.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	buyerCtx := auditlog.WithActor(ctx, auditlog.Actor{ID: "b", Role: auditlog.RoleBuyer, BuyerID: mine.BuyerID})
	list, err := f.svc.List(buyerCtx, shipment.QueryShipmentsModel{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != own.ID {
		t.Fatalf("buyer list = %+v", list)
	}
	if _, err = f.svc.Get(buyerCtx, other.ID); errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("get other buyer's shipment err = %v, want forbidden", err)
	}
}

func TestBuyerCannotUpdateOtherBuyersShipment(t *testing.T) {
	f := newFixture()
	mine := f.orderWithStatus(t, order.StatusDraft)
	theirs := f.orderWithStatus(t, order.StatusDraft)
	ctx := context.Background()

	other, err := f.svc.Create(ctx, CreateShipmentInput{OrderID: theirs.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.auditor.Calls = nil

	buyerCtx := auditlog.WithActor(ctx, auditlog.Actor{ID: "b", Role: auditlog.RoleBuyer, BuyerID: mine.BuyerID})
	delivered := shipment.StatusDelivered
	if _, err = f.svc.Update(buyerCtx, other.ID, shipment.Patch{Status: &delivered}); errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("update other buyer's shipment err = %v, want forbidden", err)
	}

	got, err := f.svc.Get(ctx, other.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != shipment.StatusCreated {
		t.Fatalf("status = %s, want created", got.Status)
	}
	if len(f.notifier.Sent) != 0 || len(f.auditor.Calls) != 0 {
		t.Fatalf("rejected update sent %d notifications and %d audit entries", len(f.notifier.Sent), len(f.auditor.Calls))
	}

	ownerCtx := auditlog.WithActor(ctx, auditlog.Actor{ID: "o", Role: auditlog.RoleBuyer, BuyerID: theirs.BuyerID})
	if _, err = f.svc.Update(ownerCtx, other.ID, shipment.Patch{Status: &delivered}); err != nil {
		t.Fatalf("owner Update: %v", err)
	}
}

func TestConcurrentUpdateKeepsCarrierArrival(t *testing.T) {
	f := newFixture()
	o := f.orderWithStatus(t, order.StatusConfirmed)
	ctx := context.Background()

	sh, err := f.svc.Create(ctx, CreateShipmentInput{OrderID: o.ID, TrackingNumber: "AWB-777"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	delivered := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vessel := fmt.Sprintf("MSC Aurora %d", i)
			if _, err := f.svc.Update(ctx, sh.ID, shipment.Patch{VesselOrFlight: &vessel}); err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.svc.HandleCarrierUpdate(ctx, shipment.CarrierUpdate{
			TrackingNumber: "AWB-777",
			Status:         "delivered",
			Timestamp:      delivered,
			Carrier:        "DHL",
		})
		if err != nil {
			t.Errorf("HandleCarrierUpdate: %v", err)
		}
	}()
	wg.Wait()

	got, err := f.svc.Get(ctx, sh.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != shipment.StatusDelivered || got.ActualArrival == nil || !got.ActualArrival.Equal(delivered) {
		t.Fatalf("carrier delivery lost: status=%s arrival=%v", got.Status, got.ActualArrival)
	}
}
