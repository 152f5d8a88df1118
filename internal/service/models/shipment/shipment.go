package shipment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipment is one logistics movement fulfilling all or part of an order.
type Shipment struct {
	ID                 int64           `json:"id"`
	ShipmentNo         string          `json:"shipmentNo"`
	OrderID            int64           `json:"orderId"`
	Carrier            string          `json:"carrier,omitempty"`
	TrackingNumber     string          `json:"trackingNumber,omitempty"`
	VesselOrFlight     string          `json:"vesselOrFlight,omitempty"`
	ContainerNo        string          `json:"containerNo,omitempty"`
	SealNo             string          `json:"sealNo,omitempty"`
	Mode               Mode            `json:"mode"`
	Status             Status          `json:"status"`
	EstimatedDeparture *time.Time      `json:"estimatedDeparture,omitempty"`
	ActualDeparture    *time.Time      `json:"actualDeparture,omitempty"`
	EstimatedArrival   *time.Time      `json:"estimatedArrival,omitempty"`
	ActualArrival      *time.Time      `json:"actualArrival,omitempty"`
	FreightCost        decimal.Decimal `json:"freightCost"`
	InsuranceCost      decimal.Decimal `json:"insuranceCost"`
	TrackingURL        string          `json:"trackingUrl,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Event is one carrier update received for a shipment.
// MappedStatus is empty when the carrier status has no mapping.
type Event struct {
	ID            int64     `json:"id"`
	ShipmentID    int64     `json:"shipmentId"`
	CarrierStatus string    `json:"carrierStatus"`
	MappedStatus  Status    `json:"mappedStatus,omitempty"`
	Location      string    `json:"location,omitempty"`
	Carrier       string    `json:"carrier,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Tracking is the view returned by the track operation.
type Tracking struct {
	Shipment Shipment `json:"shipment"`
	Events   []Event  `json:"events"`
}

// CarrierUpdate is the payload of an inbound carrier webhook.
type CarrierUpdate struct {
	TrackingNumber string
	Status         string
	Location       string
	Timestamp      time.Time
	Carrier        string
}

// QueryShipmentsModel represents filter parameters for listing shipments.
type QueryShipmentsModel struct {
	Ids      []int64  `json:"ids,omitempty"`
	OrderIds []int64  `json:"orderIds,omitempty"`
	Statuses []Status `json:"statuses,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

// Patch carries the fields updateShipment may change. Nil fields are left untouched.
type Patch struct {
	Status             *Status
	Carrier            *string
	TrackingNumber     *string
	VesselOrFlight     *string
	ContainerNo        *string
	SealNo             *string
	Mode               *Mode
	EstimatedDeparture *time.Time
	ActualDeparture    *time.Time
	EstimatedArrival   *time.Time
	ActualArrival      *time.Time
	FreightCost        *decimal.Decimal
	InsuranceCost      *decimal.Decimal
	TrackingURL        *string
	Notes              *string
}

// Apply writes the non-nil fields of p onto s.
func (p Patch) Apply(s *Shipment) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Carrier != nil {
		s.Carrier = *p.Carrier
	}
	if p.TrackingNumber != nil {
		s.TrackingNumber = *p.TrackingNumber
	}
	if p.VesselOrFlight != nil {
		s.VesselOrFlight = *p.VesselOrFlight
	}
	if p.ContainerNo != nil {
		s.ContainerNo = *p.ContainerNo
	}
	if p.SealNo != nil {
		s.SealNo = *p.SealNo
	}
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	if p.EstimatedDeparture != nil {
		s.EstimatedDeparture = p.EstimatedDeparture
	}
	if p.ActualDeparture != nil {
		s.ActualDeparture = p.ActualDeparture
	}
	if p.EstimatedArrival != nil {
		s.EstimatedArrival = p.EstimatedArrival
	}
	if p.ActualArrival != nil {
		s.ActualArrival = p.ActualArrival
	}
	if p.FreightCost != nil {
		s.FreightCost = *p.FreightCost
	}
	if p.InsuranceCost != nil {
		s.InsuranceCost = *p.InsuranceCost
	}
	if p.TrackingURL != nil {
		s.TrackingURL = *p.TrackingURL
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
}
