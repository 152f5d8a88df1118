package itransactionrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/trade/internal/service/models/transaction"
	"github.com/shopspring/decimal"
)

// ITransactionRepository is an interface for transaction repository.
type ITransactionRepository interface {
	// Insert stores a new transaction. It returns errs.ErrDuplicateKey when the transaction number is taken.
	Insert(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error)
	Get(ctx context.Context, id int64) (transaction.Transaction, error)
	// FindForOrder matches key against the transaction number or the payment reference.
	FindForOrder(ctx context.Context, orderID int64, key string) (transaction.Transaction, error)
	Query(ctx context.Context, filter *transaction.QueryTransactionsModel) ([]transaction.Transaction, error)
	// UpdateStatus changes the status of a transaction that is not completed yet.
	// It returns errs.ErrInvalidOperation for completed transactions.
	UpdateStatus(
		ctx context.Context,
		id int64,
		status transaction.Status,
		paymentDate *time.Time,
	) (transaction.Transaction, error)
	SumCompleted(ctx context.Context, orderID int64, typ transaction.Type) (decimal.Decimal, error)
}
