package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/trade/internal/errs"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.Validation("bad"), http.StatusBadRequest},
		{errs.NotFound("order", 1), http.StatusNotFound},
		{errs.Conflict("taken"), http.StatusConflict},
		{errs.ErrInsufficientStock, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", errs.ErrInvalidOperation), http.StatusConflict},
		{errs.Forbidden("nope"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil), errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["success"] != false || body["error"] != "internal server error" {
		t.Errorf("unexpected body: %v", body)
	}
	if _, ok := body["details"].(map[string]any)["requestId"]; !ok {
		t.Errorf("expected request id in details: %v", body)
	}
}

func TestOKEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]int{"id": 7})

	var body struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !body.Success || body.Data["id"] != 7 {
		t.Errorf("unexpected body: %+v", body)
	}
}
