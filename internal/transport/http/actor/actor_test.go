package actor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
)

func serve(t *testing.T, headers map[string]string) (auditlog.Actor, int) {
	t.Helper()

	a, rec := serveRecorded(t, headers)

	return a, rec.Code
}

func serveRecorded(t *testing.T, headers map[string]string) (auditlog.Actor, *httptest.ResponseRecorder) {
	t.Helper()

	var got auditlog.Actor
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = auditlog.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.RemoteAddr = "10.0.0.5:4411"
	req.Header.Set("User-Agent", "curl/8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return got, rec
}

func TestMiddlewareBuyer(t *testing.T) {
	a, code := serve(t, map[string]string{HeaderID: "u-9", HeaderRole: "Buyer", HeaderBuyerID: "42"})
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !a.IsBuyer() || a.BuyerID != 42 || a.ID != "u-9" {
		t.Errorf("unexpected actor: %+v", a)
	}
	if a.IP != "10.0.0.5" || a.UserAgent != "curl/8" {
		t.Errorf("unexpected client info: %+v", a)
	}
}

func TestMiddlewareBuyerWithoutID(t *testing.T) {
	_, rec := serveRecorded(t, map[string]string{HeaderRole: "buyer"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Errorf("unexpected body: %+v", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestMiddlewareDefaults(t *testing.T) {
	a, _ := serve(t, map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"})
	if a.Role != auditlog.RoleStaff || a.ID != "anonymous" || a.IP != "203.0.113.9" {
		t.Errorf("unexpected actor: %+v", a)
	}
}
