package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestHasCents(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"23.60", true},
		{"23.600", true},
		{"100", true},
		{"23.595", false},
		{"0.001", false},
	}
	for _, tc := range cases {
		if got := HasCents(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Errorf("HasCents(%s) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(decimal.RequireFromString("2.345")); !got.Equal(decimal.RequireFromString("2.35")) {
		t.Errorf("Round2(2.345) = %s", got)
	}
}
