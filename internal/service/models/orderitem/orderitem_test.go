package orderitem

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeLineTotal(t *testing.T) {
	cases := []struct {
		name     string
		qty      int
		price    string
		discount string
		tax      string
		want     string
	}{
		{"plain", 2, "10.00", "0", "0", "20"},
		{"discount", 3, "19.99", "10", "0", "53.97"},
		{"tax", 1, "100", "0", "18", "118"},
		{"discount and tax", 7, "12.345", "5", "12.5", "92.36"},
		{"rounds half up", 1, "0.125", "0", "0", "0.13"},
	}
	for _, tc := range cases {
		got := ComputeLineTotal(
			tc.qty,
			decimal.RequireFromString(tc.price),
			decimal.RequireFromString(tc.discount),
			decimal.RequireFromString(tc.tax),
		)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("%s: ComputeLineTotal() = %s, want %s", tc.name, got, tc.want)
		}
	}
}
