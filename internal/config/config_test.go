package config

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

func TestTaxRateProvider(t *testing.T) {
	t.Cleanup(viper.Reset)

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "0.18", want: "0.18"},
		{raw: "", want: "0"},
		{raw: "eighteen", wantErr: true},
		{raw: "-0.1", wantErr: true},
	}

	for _, tt := range tests {
		viper.Set("orders.tax_rate", tt.raw)

		got, err := TaxRateProvider{}.TaxRate(context.Background())
		if tt.wantErr {
			if err == nil {
				t.Errorf("TaxRate(%q) expected error", tt.raw)
			}

			continue
		}
		if err != nil {
			t.Fatalf("TaxRate(%q) error: %v", tt.raw, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("TaxRate(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
