package currency

import (
	"database/sql/driver"
	"errors"
	"strings"
)

// Currency is an ISO 4217 alphabetic code, always uppercase.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyINR Currency = "INR"
)

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

// ParseCurrency normalizes s and checks it is a three-letter code.
func ParseCurrency(s string) (Currency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}

	return Currency(s), nil
}
