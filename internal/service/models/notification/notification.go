package notification

import "time"

// ShipmentStatusChanged is sent to the buyer contact and subscribers when a shipment changes status.
type ShipmentStatusChanged struct {
	Recipient      string    `json:"recipient"`
	ShipmentID     int64     `json:"shipmentId"`
	ShipmentNo     string    `json:"shipmentNo"`
	OrderID        int64     `json:"orderId"`
	OrderNo        string    `json:"orderNo"`
	PreviousStatus string    `json:"previousStatus"`
	Status         string    `json:"status"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
	TrackingURL    string    `json:"trackingUrl,omitempty"`
	ChangedAt      time.Time `json:"changedAt"`
}
