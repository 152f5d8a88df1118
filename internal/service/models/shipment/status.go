package shipment

import (
	"fmt"
	"strings"
	"time"
)

// Status is a shipment lifecycle state.
// The lifecycle is advisory: updates may move between any two states.
type Status string

const (
	StatusCreated        Status = "created"
	StatusBooked         Status = "booked"
	StatusInTransit      Status = "in_transit"
	StatusArrived        Status = "arrived"
	StatusCustomsCleared Status = "customs_cleared"
	StatusDelivered      Status = "delivered"
	StatusReturned       Status = "returned"
	StatusCancelled      Status = "cancelled"
)

var statuses = []Status{
	StatusCreated, StatusBooked, StatusInTransit, StatusArrived,
	StatusCustomsCleared, StatusDelivered, StatusReturned, StatusCancelled,
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range statuses {
		if known == st {
			return st, nil
		}
	}

	return "", fmt.Errorf("unknown shipment status %q", s)
}

// carrierStatuses maps external carrier statuses onto the lifecycle.
var carrierStatuses = map[string]Status{
	"picked_up":  StatusBooked,
	"in_transit": StatusInTransit,
	"arrived":    StatusArrived,
	"delivered":  StatusDelivered,
}

// MapCarrierStatus translates a carrier status. ok is false for unmapped input.
func MapCarrierStatus(carrierStatus string) (Status, bool) {
	st, ok := carrierStatuses[strings.ToLower(strings.TrimSpace(carrierStatus))]

	return st, ok
}

// ApplyCarrierStatus moves s to the mapped status and stamps the arrival time on first delivery.
// It reports whether the status changed.
func (s *Shipment) ApplyCarrierStatus(next Status, at time.Time) bool {
	changed := s.Status != next
	s.Status = next
	if next == StatusDelivered && s.ActualArrival == nil {
		stamp := at
		s.ActualArrival = &stamp
	}

	return changed
}

// Mode is the mode of transport.
type Mode string

const (
	ModeSea     Mode = "sea"
	ModeAir     Mode = "air"
	ModeRoad    Mode = "road"
	ModeRail    Mode = "rail"
	ModeCourier Mode = "courier"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSea, ModeAir, ModeRoad, ModeRail, ModeCourier:
		return m, nil
	default:
		return "", fmt.Errorf("unknown transport mode %q", s)
	}
}
