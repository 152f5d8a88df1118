package order

import (
	"testing"

	"github.com/corray333/backend-labs/trade/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

func TestApplyTotalsUsesOrderWideTaxRate(t *testing.T) {
	item := orderitem.OrderItem{Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")}
	item.Recompute()

	o := &Order{}
	o.ApplyTotals([]orderitem.OrderItem{item}, decimal.RequireFromString("0.18"))

	if !o.TotalAmount.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("total = %s, want 20.00", o.TotalAmount)
	}
	if !o.TaxAmount.Equal(decimal.RequireFromString("3.60")) {
		t.Fatalf("tax = %s, want 3.60", o.TaxAmount)
	}
	if !o.GrandTotal.Equal(decimal.RequireFromString("23.60")) {
		t.Fatalf("grand total = %s, want 23.60", o.GrandTotal)
	}
}

func TestApplyTotalsKeepsGrandTotalIdentity(t *testing.T) {
	prices := []string{"0.01", "3.333", "19.995", "1234.5678", "7"}
	rates := []string{"0", "0.05", "0.18", "0.275"}
	for _, p := range prices {
		for _, r := range rates {
			items := []orderitem.OrderItem{
				{Quantity: 3, UnitPrice: decimal.RequireFromString(p), DiscountPct: decimal.NewFromInt(7), TaxPct: decimal.NewFromInt(5)},
				{Quantity: 1, UnitPrice: decimal.RequireFromString(p)},
			}
			for i := range items {
				items[i].Recompute()
			}
			o := &Order{DiscountAmount: decimal.RequireFromString("1.005")}
			o.ApplyTotals(items, decimal.RequireFromString(r))

			want := o.TotalAmount.Add(o.TaxAmount).Sub(o.DiscountAmount).Round(2)
			if !o.GrandTotal.Equal(want) {
				t.Fatalf("price %s rate %s: grand total %s, want %s", p, r, o.GrandTotal, want)
			}
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusConfirmed, true},
		{StatusDraft, StatusShipped, true},
		{StatusShipped, StatusPacked, false},
		{StatusConfirmed, StatusCancelled, true},
		{StatusCancelled, StatusDraft, false},
		{StatusClosed, StatusCancelled, false},
		{StatusPacked, StatusPacked, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestDeletable(t *testing.T) {
	for _, st := range []Status{StatusShipped, StatusInvoiced, StatusClosed} {
		if (&Order{Status: st}).Deletable() {
			t.Fatalf("status %s must not be deletable", st)
		}
	}
	for _, st := range []Status{StatusDraft, StatusConfirmed, StatusPacked, StatusCancelled} {
		if !(&Order{Status: st}).Deletable() {
			t.Fatalf("status %s must be deletable", st)
		}
	}
}

func TestParseIncoterm(t *testing.T) {
	if got, err := ParseIncoterm("cif"); err != nil || got != IncotermCIF {
		t.Fatalf("ParseIncoterm(cif) = %s, %v", got, err)
	}
	if _, err := ParseIncoterm("XYZ"); err == nil {
		t.Fatal("ParseIncoterm(XYZ) should fail")
	}
}
