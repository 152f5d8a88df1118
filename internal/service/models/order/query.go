package order

import "time"

// QueryOrdersModel represents filter parameters for querying orders
type QueryOrdersModel struct {
	Ids      []int64  `json:"ids,omitempty"`
	BuyerIds []int64  `json:"buyerIds,omitempty"`
	Statuses []Status `json:"statuses,omitempty"`
	OrderNo  string   `json:"orderNo,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

// Patch carries the fields updateOrder may change. Nil fields are left untouched.
type Patch struct {
	Status           *Status
	PaymentStatus    *PaymentStatus
	ShippingAddress  *string
	BillingAddress   *string
	PortOfLoading    *string
	PortOfDischarge  *string
	ExpectedShipDate *time.Time
	ActualShipDate   *time.Time
	Notes            *string
}

// Apply writes the non-nil fields of p onto o.
func (p Patch) Apply(o *Order) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.ShippingAddress != nil {
		o.ShippingAddress = *p.ShippingAddress
	}
	if p.BillingAddress != nil {
		o.BillingAddress = *p.BillingAddress
	}
	if p.PortOfLoading != nil {
		o.PortOfLoading = *p.PortOfLoading
	}
	if p.PortOfDischarge != nil {
		o.PortOfDischarge = *p.PortOfDischarge
	}
	if p.ExpectedShipDate != nil {
		o.ExpectedShipDate = p.ExpectedShipDate
	}
	if p.ActualShipDate != nil {
		o.ActualShipDate = p.ActualShipDate
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
}
