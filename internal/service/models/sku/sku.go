package sku

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// State is the catalog lifecycle state of a SKU.
type State string

const (
	StateActive       State = "active"
	StateDiscontinued State = "discontinued"
	StateDeactivated  State = "deactivated"
)

// SKU is a catalog entry.
type SKU struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	HSCode       string          `json:"hsCode"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	ReorderLevel int             `json:"reorderLevel"`
	State        State           `json:"state"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NormalizeCode returns the canonical uppercase form of a SKU code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
