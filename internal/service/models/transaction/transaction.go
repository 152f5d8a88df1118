package transaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/corray333/backend-labs/trade/internal/service/models/currency"
	"github.com/shopspring/decimal"
)

// Type is the kind of financial event.
type Type string

const (
	TypePayment    Type = "payment"
	TypeRefund     Type = "refund"
	TypeAdjustment Type = "adjustment"
	TypeCreditNote Type = "credit_note"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypePayment, TypeRefund, TypeAdjustment, TypeCreditNote:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// Status is the settlement state of a transaction.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
}

// Transaction is an immutable financial event against an order.
// Once completed its amount and type never change; corrections are new transactions.
type Transaction struct {
	ID               int64             `json:"id"`
	TransactionNo    string            `json:"transactionNo"`
	OrderID          int64             `json:"orderId"`
	Type             Type              `json:"type"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         currency.Currency `json:"currency"`
	Status           Status            `json:"status"`
	PaymentMethod    string            `json:"paymentMethod,omitempty"`
	PaymentReference string            `json:"paymentReference,omitempty"`
	Gateway          string            `json:"gateway,omitempty"`
	PaymentDate      *time.Time        `json:"paymentDate,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Final reports whether the transaction can no longer change status.
func (t *Transaction) Final() bool {
	return t.Status == StatusCompleted
}

// QueryTransactionsModel represents filter parameters for listing transactions.
type QueryTransactionsModel struct {
	Ids      []int64  `json:"ids,omitempty"`
	OrderIds []int64  `json:"orderIds,omitempty"`
	Types    []Type   `json:"types,omitempty"`
	Statuses []Status `json:"statuses,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

// GatewayUpdate is the payload of an inbound payment webhook.
type GatewayUpdate struct {
	OrderID       int64
	TransactionID string
	Status        Status
	Amount        decimal.Decimal
	Gateway       string
}
