package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/trade/internal/dal/postgres"
	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/currency"
	"github.com/corray333/backend-labs/trade/internal/service/models/transaction"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionDal represents transaction data access layer model
type TransactionDal struct {
	Id               int64           `db:"id"`
	TransactionNo    string          `db:"transaction_no"`
	OrderId          int64           `db:"order_id"`
	Type             string          `db:"type"`
	Amount           decimal.Decimal `db:"amount"`
	Currency         string          `db:"currency"`
	Status           string          `db:"status"`
	PaymentMethod    string          `db:"payment_method"`
	PaymentReference string          `db:"payment_reference"`
	Gateway          string          `db:"gateway"`
	PaymentDate      *time.Time      `db:"payment_date"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

var transactionColumns = []string{
	"id",
	"transaction_no",
	"order_id",
	"type",
	"amount",
	"currency",
	"status",
	"payment_method",
	"payment_reference",
	"gateway",
	"payment_date",
	"created_at",
	"updated_at",
}

func (d *TransactionDal) scanTargets() []any {
	return []any{
		&d.Id,
		&d.TransactionNo,
		&d.OrderId,
		&d.Type,
		&d.Amount,
		&d.Currency,
		&d.Status,
		&d.PaymentMethod,
		&d.PaymentReference,
		&d.Gateway,
		&d.PaymentDate,
		&d.CreatedAt,
		&d.UpdatedAt,
	}
}

// ToModel converts TransactionDal to service layer Transaction model
func (d *TransactionDal) ToModel() (transaction.Transaction, error) {
	cur, err := currency.ParseCurrency(d.Currency)
	if err != nil {
		return transaction.Transaction{}, err
	}
	typ, err := transaction.ParseType(d.Type)
	if err != nil {
		return transaction.Transaction{}, err
	}
	status, err := transaction.ParseStatus(d.Status)
	if err != nil {
		return transaction.Transaction{}, err
	}

	return transaction.Transaction{
		ID:               d.Id,
		TransactionNo:    d.TransactionNo,
		OrderID:          d.OrderId,
		Type:             typ,
		Amount:           d.Amount,
		Currency:         cur,
		Status:           status,
		PaymentMethod:    d.PaymentMethod,
		PaymentReference: d.PaymentReference,
		Gateway:          d.Gateway,
		PaymentDate:      d.PaymentDate,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

type PostgresTransactionRepository struct {
	conn postgres.Querier
}

func NewPostgresTransactionRepository(conn postgres.Querier) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{
		conn: conn,
	}
}

func (r *PostgresTransactionRepository) Insert(
	ctx context.Context,
	t transaction.Transaction,
) (transaction.Transaction, error) {
	query, args, err := sq.Insert("transactions").
		Columns(transactionColumns[1:]...).
		Values(
			t.TransactionNo,
			t.OrderID,
			string(t.Type),
			t.Amount,
			t.Currency.String(),
			string(t.Status),
			t.PaymentMethod,
			t.PaymentReference,
			t.Gateway,
			t.PaymentDate,
			t.CreatedAt,
			t.UpdatedAt,
		).
		Suffix("ON CONFLICT (transaction_no) DO NOTHING RETURNING " + strings.Join(transactionColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	inserted, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return transaction.Transaction{}, errs.ErrDuplicateKey
	}
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return inserted, nil
}

func (r *PostgresTransactionRepository) Get(ctx context.Context, id int64) (transaction.Transaction, error) {
	return r.getOne(ctx, sq.Select(transactionColumns...).From("transactions").Where(sq.Eq{"id": id}), id)
}

func (r *PostgresTransactionRepository) FindForOrder(
	ctx context.Context,
	orderID int64,
	key string,
) (transaction.Transaction, error) {
	return r.getOne(ctx,
		sq.Select(transactionColumns...).
			From("transactions").
			Where(sq.Eq{"order_id": orderID}).
			Where(sq.Or{sq.Eq{"transaction_no": key}, sq.Eq{"payment_reference": key}}).
			OrderBy("id DESC").
			Limit(1),
		key,
	)
}

func (r *PostgresTransactionRepository) getOne(
	ctx context.Context,
	builder sq.SelectBuilder,
	key any,
) (transaction.Transaction, error) {
	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to build select query: %w", err)
	}

	t, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return transaction.Transaction{}, errs.NotFound("transaction", key)
	}
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}

	return t, nil
}

func (r *PostgresTransactionRepository) Query(
	ctx context.Context,
	filter *transaction.QueryTransactionsModel,
) ([]transaction.Transaction, error) {
	builder := sq.Select(transactionColumns...).
		From("transactions").
		OrderBy("id DESC").
		PlaceholderFormat(sq.Dollar)
	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.OrderIds) > 0 {
		builder = builder.Where(sq.Eq{"order_id": filter.OrderIds})
	}
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		builder = builder.Where(sq.Eq{"type": types})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	result := []transaction.Transaction{}
	for rows.Next() {
		var dal TransactionDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert transaction dal to model: %w", err)
		}
		result = append(result, model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// UpdateStatus never touches completed rows: the guard sits in the WHERE clause.
func (r *PostgresTransactionRepository) UpdateStatus(
	ctx context.Context,
	id int64,
	status transaction.Status,
	paymentDate *time.Time,
) (transaction.Transaction, error) {
	builder := sq.Update("transactions").
		Set("status", string(status)).
		Set("updated_at", sq.Expr("NOW()"))
	if paymentDate != nil {
		builder = builder.Set("payment_date", *paymentDate)
	}
	query, args, err := builder.
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"status": string(transaction.StatusCompleted)}).
		Suffix("RETURNING " + strings.Join(transactionColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to build update query: %w", err)
	}

	updated, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return transaction.Transaction{}, fmt.Errorf("failed to update transaction: %w", err)
	}
	if _, err := r.Get(ctx, id); err != nil {
		return transaction.Transaction{}, err
	}

	return transaction.Transaction{}, errs.ErrInvalidOperation
}

func (r *PostgresTransactionRepository) SumCompleted(
	ctx context.Context,
	orderID int64,
	typ transaction.Type,
) (decimal.Decimal, error) {
	query, args, err := sq.Select("COALESCE(SUM(amount), 0)").
		From("transactions").
		Where(sq.Eq{
			"order_id": orderID,
			"type":     string(typ),
			"status":   string(transaction.StatusCompleted),
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build sum query: %w", err)
	}

	var sum decimal.Decimal
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}

	return sum, nil
}

func (r *PostgresTransactionRepository) scanOne(row pgx.Row) (transaction.Transaction, error) {
	var dal TransactionDal
	if err := row.Scan(dal.scanTargets()...); err != nil {
		return transaction.Transaction{}, err
	}
	model, err := dal.ToModel()
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to convert transaction dal to model: %w", err)
	}

	return model, nil
}
