package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/corray333/backend-labs/trade/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// MustInit loads .env and config.yaml and installs the process logger.
func MustInit() {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}
	setDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/trade-svc")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

func setDefaults() {
	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("storage.driver", "postgres")
	viper.SetDefault("orders.tax_rate", "0")
	viper.SetDefault("orders.default_currency", "USD")
	viper.SetDefault("orders.default_incoterm", "FOB")
	viper.SetDefault("numbering.max_attempts", 5)
	viper.SetDefault("payments.lock_ttl_seconds", 10)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
}

func SetupLogger() {
	handler := logger.NewHandler(
		os.Stdout,
		logger.ParseLevel(viper.GetString("logger.level")),
		viper.GetString("logger.format"),
	)
	log := slog.New(handler)
	slog.SetDefault(log)
}

// TaxRateProvider reads the order-wide tax rate from orders.tax_rate on every call,
// so a config reload takes effect for the next order.
type TaxRateProvider struct{}

func (TaxRateProvider) TaxRate(_ context.Context) (decimal.Decimal, error) {
	raw := viper.GetString("orders.tax_rate")
	if raw == "" {
		return decimal.Zero, nil
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid orders.tax_rate %q: %w", raw, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("orders.tax_rate must not be negative, got %s", rate)
	}

	return rate, nil
}
