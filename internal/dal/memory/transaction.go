package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/transaction"
	"github.com/shopspring/decimal"
)

type transactionRepository struct {
	uow *UnitOfWork
}

func (r *transactionRepository) Insert(
	_ context.Context,
	txn transaction.Transaction,
) (transaction.Transaction, error) {
	err := r.uow.run(func(t *tables) error {
		if _, ok := t.orders[txn.OrderID]; !ok {
			return errs.NotFound("order", txn.OrderID)
		}
		for _, existing := range t.transactions {
			if existing.TransactionNo == txn.TransactionNo {
				return errs.ErrDuplicateKey
			}
		}
		txn.ID = t.nextID()
		t.transactions[txn.ID] = txn

		return nil
	})

	return txn, err
}

func (r *transactionRepository) Get(_ context.Context, id int64) (transaction.Transaction, error) {
	var txn transaction.Transaction
	err := r.uow.run(func(t *tables) error {
		found, ok := t.transactions[id]
		if !ok {
			return errs.NotFound("transaction", id)
		}
		txn = found

		return nil
	})

	return txn, err
}

func (r *transactionRepository) FindForOrder(
	_ context.Context,
	orderID int64,
	key string,
) (transaction.Transaction, error) {
	var txn transaction.Transaction
	err := r.uow.run(func(t *tables) error {
		var matched []transaction.Transaction
		for _, existing := range t.transactions {
			if existing.OrderID != orderID {
				continue
			}
			if existing.TransactionNo == key || existing.PaymentReference == key {
				matched = append(matched, existing)
			}
		}
		if len(matched) == 0 {
			return errs.NotFound("transaction", key)
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
		txn = matched[0]

		return nil
	})

	return txn, err
}

func (r *transactionRepository) Query(
	_ context.Context,
	filter *transaction.QueryTransactionsModel,
) ([]transaction.Transaction, error) {
	var result []transaction.Transaction
	err := r.uow.run(func(t *tables) error {
		for _, txn := range t.transactions {
			if len(filter.Ids) > 0 && !slices.Contains(filter.Ids, txn.ID) {
				continue
			}
			if len(filter.OrderIds) > 0 && !slices.Contains(filter.OrderIds, txn.OrderID) {
				continue
			}
			if len(filter.Types) > 0 && !slices.Contains(filter.Types, txn.Type) {
				continue
			}
			if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, txn.Status) {
				continue
			}
			result = append(result, txn)
		}

		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return page(result, filter.Limit, filter.Offset), err
}

func (r *transactionRepository) UpdateStatus(
	_ context.Context,
	id int64,
	status transaction.Status,
	paymentDate *time.Time,
) (transaction.Transaction, error) {
	var txn transaction.Transaction
	err := r.uow.run(func(t *tables) error {
		found, ok := t.transactions[id]
		if !ok {
			return errs.NotFound("transaction", id)
		}
		if found.Final() {
			return errs.ErrInvalidOperation
		}
		found.Status = status
		if paymentDate != nil {
			found.PaymentDate = paymentDate
		}
		found.UpdatedAt = r.uow.store.now()
		t.transactions[id] = found
		txn = found

		return nil
	})

	return txn, err
}

func (r *transactionRepository) SumCompleted(
	_ context.Context,
	orderID int64,
	typ transaction.Type,
) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.uow.run(func(t *tables) error {
		for _, txn := range t.transactions {
			if txn.OrderID == orderID && txn.Type == typ && txn.Status == transaction.StatusCompleted {
				sum = sum.Add(txn.Amount)
			}
		}

		return nil
	})

	return sum, err
}
