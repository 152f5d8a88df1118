package shipment

import (
	"testing"
	"time"
)

func TestMapCarrierStatus(t *testing.T) {
	cases := []struct {
		in     string
		want   Status
		wantOK bool
	}{
		{"picked_up", StatusBooked, true},
		{"IN_TRANSIT", StatusInTransit, true},
		{"arrived", StatusArrived, true},
		{" delivered ", StatusDelivered, true},
		{"out_for_delivery", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := MapCarrierStatus(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("MapCarrierStatus(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestApplyCarrierStatusStampsArrivalOnce(t *testing.T) {
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(6 * time.Hour)
	s := &Shipment{Status: StatusInTransit}

	if !s.ApplyCarrierStatus(StatusDelivered, first) {
		t.Fatal("first delivery should change status")
	}
	if s.ActualArrival == nil || !s.ActualArrival.Equal(first) {
		t.Fatalf("actual arrival = %v, want %v", s.ActualArrival, first)
	}

	if s.ApplyCarrierStatus(StatusDelivered, second) {
		t.Fatal("repeated delivery should not change status")
	}
	if !s.ActualArrival.Equal(first) {
		t.Fatalf("actual arrival moved to %v", s.ActualArrival)
	}
}

func TestApplyCarrierStatusAcceptsOutOfOrder(t *testing.T) {
	s := &Shipment{Status: StatusDelivered}
	if !s.ApplyCarrierStatus(StatusBooked, time.Now()) {
		t.Fatal("out of order update should still apply")
	}
	if s.Status != StatusBooked {
		t.Fatalf("status = %s, want booked", s.Status)
	}
}
