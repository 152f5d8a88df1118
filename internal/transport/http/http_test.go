package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/service/services/auditsvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/consumersvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/inventorysvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/paymentsvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/servicetest"
	"github.com/corray333/backend-labs/trade/internal/service/services/shipmentsvc"
	"github.com/corray333/backend-labs/trade/internal/transport/http/actor"
	"github.com/shopspring/decimal"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

type server struct {
	env     *servicetest.Env
	handler http.Handler
}

func newTestServer() *server {
	env := servicetest.NewEnv()
	history := consumersvc.MustNewConsumerService(consumersvc.WithAuditRepository(env.Store.AuditRepository()))
	auditor := auditsvc.MustNewAuditService(auditsvc.WithPublisher(history))

	inv := inventorysvc.MustNewInventoryService(
		inventorysvc.WithUnitOfWork(env.Factory),
		inventorysvc.WithAuditor(auditor),
	)
	transport := NewHTTPTransport(Services{
		Orders: ordersvc.MustNewOrderService(
			ordersvc.WithUnitOfWork(env.Factory),
			ordersvc.WithTaxRateProvider(servicetest.TaxRate("0.18")),
			ordersvc.WithAuditor(auditor),
			ordersvc.WithReservationReleaser(inv),
		),
		Inventory: inv,
		Shipments: shipmentsvc.MustNewShipmentService(
			shipmentsvc.WithUnitOfWork(env.Factory),
			shipmentsvc.WithAuditor(auditor),
		),
		Payments: paymentsvc.MustNewPaymentService(
			paymentsvc.WithUnitOfWork(env.Factory),
			paymentsvc.WithAuditor(auditor),
		),
		AuditLog: history,
	})
	transport.RegisterRoutes()

	return &server{env: env, handler: transport.Handler()}
}

func (s *server) do(t *testing.T, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: response is not an envelope: %v (%s)", method, path, err, rec.Body.String())
	}

	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, raw)
	}

	return v
}

func (s *server) createOrder(t *testing.T, buyerID int64, items ...map[string]any) order.Order {
	t.Helper()

	code, env := s.do(t, http.MethodPost, "/api/orders", map[string]any{"buyerId": buyerID, "items": items}, nil)
	if code != http.StatusCreated || !env.Success {
		t.Fatalf("create order: %d %s", code, env.Error)
	}

	return decode[order.Order](t, env.Data)
}

func TestCreateAndGetOrder(t *testing.T) {
	s := newTestServer()
	b := s.env.Buyer(t, "Acme GmbH", "ops@acme.test")
	s.env.SKU(t, "SKU-001", "10.00")

	created := s.createOrder(t, b.ID, map[string]any{"skuCode": "sku-001", "quantity": 2})
	if !created.GrandTotal.Equal(decimal.RequireFromString("23.60")) {
		t.Fatalf("grand total = %s, want 23.60", created.GrandTotal)
	}

	code, env := s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", created.ID), nil, nil)
	if code != http.StatusOK {
		t.Fatalf("get order: %d %s", code, env.Error)
	}
	got := decode[order.Order](t, env.Data)
	if got.OrderNo != created.OrderNo || len(got.OrderItems) != 1 {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer()
	b := s.env.Buyer(t, "Acme GmbH", "ops@acme.test")
	other := s.env.Buyer(t, "Globex", "ap@globex.test")
	o := s.env.Order(t, b.ID, "")

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		headers map[string]string
		want    int
	}{
		{
			name:   "no items",
			method: http.MethodPost,
			path:   "/api/orders",
			body:   map[string]any{"buyerId": b.ID, "items": []any{}},
			want:   http.StatusBadRequest,
		},
		{
			name:   "unknown incoterm",
			method: http.MethodPost,
			path:   "/api/orders",
			body: map[string]any{
				"buyerId":  b.ID,
				"incoterm": "XYZ",
				"items":    []any{map[string]any{"skuCode": "X", "quantity": 1, "unitPrice": "1"}},
			},
			want: http.StatusBadRequest,
		},
		{name: "bad id", method: http.MethodGet, path: "/api/orders/abc", want: http.StatusBadRequest},
		{name: "missing order", method: http.MethodGet, path: "/api/orders/9999", want: http.StatusNotFound},
		{
			name:    "other buyer",
			method:  http.MethodGet,
			path:    fmt.Sprintf("/api/orders/%d", o.ID),
			headers: map[string]string{actor.HeaderRole: "buyer", actor.HeaderBuyerID: fmt.Sprint(other.ID)},
			want:    http.StatusForbidden,
		},
		{
			name:   "cancel",
			method: http.MethodPut,
			path:   fmt.Sprintf("/api/orders/%d", o.ID),
			body:   map[string]any{"status": "cancelled"},
			want:   http.StatusOK,
		},
		{
			name:   "cancelled is terminal",
			method: http.MethodPut,
			path:   fmt.Sprintf("/api/orders/%d", o.ID),
			body:   map[string]any{"status": "confirmed"},
			want:   http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, tt.method, tt.path, tt.body, tt.headers)
			if code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", code, tt.want, env.Error)
			}
			if (code < 300) != env.Success {
				t.Fatalf("success = %v for status %d", env.Success, code)
			}
		})
	}
}

func TestReserveReportsPartialSuccess(t *testing.T) {
	s := newTestServer()
	b := s.env.Buyer(t, "Acme GmbH", "ops@acme.test")
	stocked := s.env.SKU(t, "SKU-A", "5.00")
	missing := s.env.SKU(t, "SKU-B", "5.00")
	s.env.Stock(t, stocked.ID, 1, 10)

	o := s.createOrder(t, b.ID,
		map[string]any{"skuId": stocked.ID, "quantity": 4},
		map[string]any{"skuId": missing.ID, "quantity": 1},
	)

	code, env := s.do(t, http.MethodPost, "/api/inventory/reserve", map[string]any{"orderId": o.ID, "warehouseId": 1}, nil)
	if code != http.StatusOK {
		t.Fatalf("reserve: %d %s", code, env.Error)
	}
	result := decode[struct {
		Success      bool                    `json:"success"`
		Reservations []inventory.Reservation `json:"reservations"`
		Errors       []string                `json:"errors"`
	}](t, env.Data)
	if result.Success || len(result.Reservations) != 1 || len(result.Errors) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if want := "No inventory found for SKU SKU-B in warehouse"; result.Errors[0] != want {
		t.Fatalf("error = %q, want %q", result.Errors[0], want)
	}

	if rec := s.env.Record(t, stocked.ID, 1); rec.QtyAvailable != 6 || rec.QtyReserved != 4 {
		t.Fatalf("inventory = %d/%d, want 6/4", rec.QtyAvailable, rec.QtyReserved)
	}

	code, env = s.do(t, http.MethodPost, "/api/inventory/adjust", map[string]any{
		"skuId": stocked.ID, "warehouseId": 1, "delta": -7, "reason": "cycle count",
	}, nil)
	if code != http.StatusConflict {
		t.Fatalf("adjust below zero: %d %s", code, env.Error)
	}
}

func TestShipmentAndPaymentFlow(t *testing.T) {
	s := newTestServer()
	b := s.env.Buyer(t, "Acme GmbH", "ops@acme.test")
	s.env.SKU(t, "SKU-001", "10.00")
	o := s.createOrder(t, b.ID, map[string]any{"skuCode": "SKU-001", "quantity": 2})

	if code, env := s.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d", o.ID), map[string]any{"status": "confirmed"}, nil); code != http.StatusOK {
		t.Fatalf("confirm: %d %s", code, env.Error)
	}

	code, env := s.do(t, http.MethodPost, "/api/shipments", map[string]any{
		"orderId": o.ID, "carrier": "Maersk", "trackingNumber": "MAEU1234567",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("create shipment: %d %s", code, env.Error)
	}
	sh := decode[shipment.Shipment](t, env.Data)

	webhook := map[string]any{
		"trackingNumber": "MAEU1234567",
		"status":         "delivered",
		"location":       "Hamburg",
		"timestamp":      "2026-03-02T10:00:00Z",
		"carrier":        "maersk",
	}
	for range 2 {
		if code, env := s.do(t, http.MethodPost, "/api/webhooks/carrier", webhook, nil); code != http.StatusOK {
			t.Fatalf("carrier webhook: %d %s", code, env.Error)
		}
	}

	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/shipments/%d/track", sh.ID), nil, nil)
	if code != http.StatusOK {
		t.Fatalf("track: %d %s", code, env.Error)
	}
	tracking := decode[shipment.Tracking](t, env.Data)
	if tracking.Shipment.Status != shipment.StatusDelivered || len(tracking.Events) != 1 {
		t.Fatalf("tracking = %s with %d events, want delivered with 1", tracking.Shipment.Status, len(tracking.Events))
	}

	code, env = s.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"orderId": o.ID, "amount": "23.60", "method": "wire",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("record transaction: %d %s", code, env.Error)
	}

	_, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", o.ID), nil, nil)
	got := decode[order.Order](t, env.Data)
	if got.Status != order.StatusShipped || got.PaymentStatus != order.PaymentPaid {
		t.Fatalf("order = %s/%s, want shipped/paid", got.Status, got.PaymentStatus)
	}

	code, env = s.do(t, http.MethodDelete, fmt.Sprintf("/api/orders/%d", o.ID), nil, nil)
	if code != http.StatusConflict {
		t.Fatalf("delete shipped order: %d %s", code, env.Error)
	}
}

func TestAuditHistory(t *testing.T) {
	s := newTestServer()
	b := s.env.Buyer(t, "Acme GmbH", "ops@acme.test")
	s.env.SKU(t, "SKU-001", "10.00")
	o := s.createOrder(t, b.ID, map[string]any{"skuCode": "SKU-001", "quantity": 2})

	staff := map[string]string{actor.HeaderID: "u-1", actor.HeaderRole: "staff"}
	if code, env := s.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d", o.ID), map[string]any{"notes": "rush"}, staff); code != http.StatusOK {
		t.Fatalf("update: %d %s", code, env.Error)
	}

	path := fmt.Sprintf("/api/audit-log?entityType=order&entityId=%d", o.ID)
	code, env := s.do(t, http.MethodGet, path, nil, staff)
	if code != http.StatusOK {
		t.Fatalf("history: %d %s", code, env.Error)
	}
	entries := decode[[]auditlog.Entry](t, env.Data)
	if len(entries) != 2 || entries[0].Action != auditlog.ActionOrderCreated || entries[1].ActorID != "u-1" {
		t.Fatalf("unexpected history: %+v", entries)
	}

	buyer := map[string]string{actor.HeaderRole: "buyer", actor.HeaderBuyerID: fmt.Sprint(b.ID)}
	if code, _ := s.do(t, http.MethodGet, path, nil, buyer); code != http.StatusForbidden {
		t.Fatalf("buyer history: %d, want 403", code)
	}
}
