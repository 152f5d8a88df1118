package order

import (
	"time"

	"github.com/corray333/backend-labs/trade/internal/service/models/currency"
	"github.com/corray333/backend-labs/trade/internal/service/models/money"
	"github.com/corray333/backend-labs/trade/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// Order represents one export transaction with a single buyer.
type Order struct {
	ID               int64                 `json:"id"`
	OrderNo          string                `json:"orderNo"`
	BuyerID          int64                 `json:"buyerId"`
	Incoterm         Incoterm              `json:"incoterm"`
	Currency         currency.Currency     `json:"currency"`
	Status           Status                `json:"status"`
	PaymentStatus    PaymentStatus         `json:"paymentStatus"`
	TotalAmount      decimal.Decimal       `json:"totalAmount"`
	TaxAmount        decimal.Decimal       `json:"taxAmount"`
	DiscountAmount   decimal.Decimal       `json:"discountAmount"`
	GrandTotal       decimal.Decimal       `json:"grandTotal"`
	ShippingAddress  string                `json:"shippingAddress,omitempty"`
	BillingAddress   string                `json:"billingAddress,omitempty"`
	PortOfLoading    string                `json:"portOfLoading,omitempty"`
	PortOfDischarge  string                `json:"portOfDischarge,omitempty"`
	OrderDate        time.Time             `json:"orderDate"`
	ExpectedShipDate *time.Time            `json:"expectedShipDate,omitempty"`
	ActualShipDate   *time.Time            `json:"actualShipDate,omitempty"`
	Notes            string                `json:"notes,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	OrderItems       []orderitem.OrderItem `json:"orderItems"`
}

// ApplyTotals sums the line totals of items and applies the order-wide tax rate.
// Tax is charged on the summed total, not per line, and each figure is rounded on its own.
func (o *Order) ApplyTotals(items []orderitem.OrderItem, taxRate decimal.Decimal) {
	lines := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.LineTotal)
	}

	o.TotalAmount = money.Round2(money.Sum(lines...))
	o.TaxAmount = money.Round2(o.TotalAmount.Mul(taxRate))
	o.DiscountAmount = money.Round2(o.DiscountAmount)
	o.GrandTotal = money.Round2(o.TotalAmount.Add(o.TaxAmount).Sub(o.DiscountAmount))
}

// Deletable reports whether the order may still be removed.
func (o *Order) Deletable() bool {
	switch o.Status {
	case StatusShipped, StatusInvoiced, StatusClosed:
		return false
	default:
		return true
	}
}

// Clone returns a copy that shares no slices with o.
func (o *Order) Clone() *Order {
	c := *o
	c.OrderItems = append([]orderitem.OrderItem(nil), o.OrderItems...)

	return &c
}
