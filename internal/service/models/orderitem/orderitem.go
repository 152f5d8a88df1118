package orderitem

import (
	"time"

	"github.com/corray333/backend-labs/trade/internal/service/models/money"
	"github.com/shopspring/decimal"
)

// OrderItem represents one priced line within an order.
// SKUID is nil when the line did not match a catalog entry; SKUCode then carries the free-text code.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"orderId"`
	SKUID       *int64          `json:"skuId,omitempty"`
	SKUCode     string          `json:"skuCode"`
	Description string          `json:"description"`
	HSCode      string          `json:"hsCode,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	DiscountPct decimal.Decimal `json:"discountPct"`
	TaxPct      decimal.Decimal `json:"taxPct"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ComputeLineTotal returns qty * unit_price * (1 - discount%) * (1 + tax%) rounded to cents.
func ComputeLineTotal(qty int, unitPrice, discountPct, taxPct decimal.Decimal) decimal.Decimal {
	gross := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
	afterDiscount := gross.Mul(decimal.NewFromInt(1).Sub(money.Percent(discountPct)))

	return money.Round2(afterDiscount.Mul(decimal.NewFromInt(1).Add(money.Percent(taxPct))))
}

// Recompute refreshes LineTotal from the priced fields.
func (i *OrderItem) Recompute() {
	i.LineTotal = ComputeLineTotal(i.Quantity, i.UnitPrice, i.DiscountPct, i.TaxPct)
}
