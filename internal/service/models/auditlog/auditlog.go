package auditlog

import (
	"encoding/json"
	"time"
)

// Entity types recorded in the audit trail.
const (
	EntityOrder       = "order"
	EntityInventory   = "inventory"
	EntityReservation = "reservation"
	EntityShipment    = "shipment"
	EntityTransaction = "transaction"
)

// Actions recorded in the audit trail.
const (
	ActionOrderCreated        = "order.created"
	ActionOrderUpdated        = "order.updated"
	ActionOrderDeleted        = "order.deleted"
	ActionOrderStatusForced   = "order.status_forced"
	ActionOrderPaymentStatus  = "order.payment_status_changed"
	ActionInventoryCreated    = "inventory.created"
	ActionInventoryAdjusted   = "inventory.adjusted"
	ActionInventoryReserved   = "inventory.reserved"
	ActionInventoryReleased   = "inventory.released"
	ActionShipmentCreated     = "shipment.created"
	ActionShipmentUpdated     = "shipment.updated"
	ActionShipmentTracked     = "shipment.carrier_update"
	ActionTransactionRecorded = "transaction.recorded"
	ActionTransactionUpdated  = "transaction.status_changed"
)

// Changes holds before/after snapshots of the mutated entity.
type Changes struct {
	Before any `json:"before,omitempty"`
	After  any `json:"after,omitempty"`
}

// Entry is one append-only audit record.
type Entry struct {
	ID         int64           `json:"id"`
	MessageID  string          `json:"messageId"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	Meta       json.RawMessage `json:"meta,omitempty"`
	IP         string          `json:"ip,omitempty"`
	UserAgent  string          `json:"userAgent,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
