package inventory

import "time"

// Record is the stock ledger row for one (SKU, warehouse) pair.
type Record struct {
	ID           int64     `json:"id"`
	SKUID        int64     `json:"skuId"`
	WarehouseID  int64     `json:"warehouseId"`
	QtyAvailable int       `json:"qtyAvailable"`
	QtyReserved  int       `json:"qtyReserved"`
	QtyInTransit int       `json:"qtyInTransit"`
	BinLocation  string    `json:"binLocation,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ReservationState tracks whether reserved stock still backs the order.
type ReservationState string

const (
	ReservationReserved ReservationState = "reserved"
	ReservationReleased ReservationState = "released"
)

// Reservation is the quantity of one order line held in one warehouse.
type Reservation struct {
	ID          int64            `json:"id"`
	OrderID     int64            `json:"orderId"`
	OrderItemID int64            `json:"orderItemId"`
	SKUID       int64            `json:"skuId"`
	SKUCode     string           `json:"skuCode"`
	WarehouseID int64            `json:"warehouseId"`
	Qty         int              `json:"qty"`
	State       ReservationState `json:"state"`
	CreatedAt   time.Time        `json:"createdAt"`
	ReleasedAt  *time.Time       `json:"releasedAt,omitempty"`
}

// ReserveResult reports a reservation pass over an order.
// Errors holds one message per line that could not be reserved; the other lines stay reserved.
type ReserveResult struct {
	Reservations []Reservation `json:"reservations"`
	Errors       []string      `json:"errors"`
}

// Success reports whether every reservable line was reserved.
func (r ReserveResult) Success() bool {
	return len(r.Errors) == 0
}

// ReleaseResult reports a release pass over an order's reservations.
type ReleaseResult struct {
	Released []Reservation `json:"released"`
	Errors   []string      `json:"errors"`
}

// Adjustment is a manual correction of available stock.
type Adjustment struct {
	SKUID       int64  `json:"skuId"`
	WarehouseID int64  `json:"warehouseId"`
	Delta       int    `json:"delta"`
	Reason      string `json:"reason"`
}

// QueryRecordsModel represents filter parameters for listing inventory.
type QueryRecordsModel struct {
	SKUIds       []int64 `json:"skuIds,omitempty"`
	WarehouseIds []int64 `json:"warehouseIds,omitempty"`
	Limit        int     `json:"limit,omitempty"`
	Offset       int     `json:"offset,omitempty"`
}
