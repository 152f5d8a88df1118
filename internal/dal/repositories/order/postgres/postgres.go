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
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/orderitem"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrderDal represents order data access layer model
type OrderDal struct {
	Id               int64           `db:"id"`
	OrderNo          string          `db:"order_no"`
	BuyerId          int64           `db:"buyer_id"`
	Incoterm         string          `db:"incoterm"`
	Currency         string          `db:"currency"`
	Status           string          `db:"status"`
	PaymentStatus    string          `db:"payment_status"`
	TotalAmount      decimal.Decimal `db:"total_amount"`
	TaxAmount        decimal.Decimal `db:"tax_amount"`
	DiscountAmount   decimal.Decimal `db:"discount_amount"`
	GrandTotal       decimal.Decimal `db:"grand_total"`
	ShippingAddress  string          `db:"shipping_address"`
	BillingAddress   string          `db:"billing_address"`
	PortOfLoading    string          `db:"port_of_loading"`
	PortOfDischarge  string          `db:"port_of_discharge"`
	OrderDate        time.Time       `db:"order_date"`
	ExpectedShipDate *time.Time      `db:"expected_ship_date"`
	ActualShipDate   *time.Time      `db:"actual_ship_date"`
	Notes            string          `db:"notes"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

var orderColumns = []string{
	"id",
	"order_no",
	"buyer_id",
	"incoterm",
	"currency",
	"status",
	"payment_status",
	"total_amount",
	"tax_amount",
	"discount_amount",
	"grand_total",
	"shipping_address",
	"billing_address",
	"port_of_loading",
	"port_of_discharge",
	"order_date",
	"expected_ship_date",
	"actual_ship_date",
	"notes",
	"created_at",
	"updated_at",
}

func (o *OrderDal) scanTargets() []any {
	return []any{
		&o.Id,
		&o.OrderNo,
		&o.BuyerId,
		&o.Incoterm,
		&o.Currency,
		&o.Status,
		&o.PaymentStatus,
		&o.TotalAmount,
		&o.TaxAmount,
		&o.DiscountAmount,
		&o.GrandTotal,
		&o.ShippingAddress,
		&o.BillingAddress,
		&o.PortOfLoading,
		&o.PortOfDischarge,
		&o.OrderDate,
		&o.ExpectedShipDate,
		&o.ActualShipDate,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

// ToModel converts OrderDal to service layer Order model
func (o *OrderDal) ToModel() (*order.Order, error) {
	cur, err := currency.ParseCurrency(o.Currency)
	if err != nil {
		return nil, err
	}
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}
	paymentStatus, err := order.ParsePaymentStatus(o.PaymentStatus)
	if err != nil {
		return nil, err
	}
	incoterm, err := order.ParseIncoterm(o.Incoterm)
	if err != nil {
		return nil, err
	}

	return &order.Order{
		ID:               o.Id,
		OrderNo:          o.OrderNo,
		BuyerID:          o.BuyerId,
		Incoterm:         incoterm,
		Currency:         cur,
		Status:           status,
		PaymentStatus:    paymentStatus,
		TotalAmount:      o.TotalAmount,
		TaxAmount:        o.TaxAmount,
		DiscountAmount:   o.DiscountAmount,
		GrandTotal:       o.GrandTotal,
		ShippingAddress:  o.ShippingAddress,
		BillingAddress:   o.BillingAddress,
		PortOfLoading:    o.PortOfLoading,
		PortOfDischarge:  o.PortOfDischarge,
		OrderDate:        o.OrderDate,
		ExpectedShipDate: o.ExpectedShipDate,
		ActualShipDate:   o.ActualShipDate,
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		OrderItems:       []orderitem.OrderItem{}, // Will be populated separately
	}, nil
}

// OrderDalFromModel converts service layer Order model to OrderDal
func OrderDalFromModel(o *order.Order) *OrderDal {
	return &OrderDal{
		Id:               o.ID,
		OrderNo:          o.OrderNo,
		BuyerId:          o.BuyerID,
		Incoterm:         string(o.Incoterm),
		Currency:         o.Currency.String(),
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		TotalAmount:      o.TotalAmount,
		TaxAmount:        o.TaxAmount,
		DiscountAmount:   o.DiscountAmount,
		GrandTotal:       o.GrandTotal,
		ShippingAddress:  o.ShippingAddress,
		BillingAddress:   o.BillingAddress,
		PortOfLoading:    o.PortOfLoading,
		PortOfDischarge:  o.PortOfDischarge,
		OrderDate:        o.OrderDate,
		ExpectedShipDate: o.ExpectedShipDate,
		ActualShipDate:   o.ActualShipDate,
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

type PostgresOrderRepository struct {
	conn postgres.Querier
}

func NewPostgresOrderRepository(conn postgres.Querier) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Insert stores the order. A taken order number yields no row and maps to errs.ErrDuplicateKey,
// which keeps a surrounding transaction usable for the retry.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	dal := OrderDalFromModel(&o)
	query, args, err := sq.Insert("orders").
		Columns(orderColumns[1:]...).
		Values(
			dal.OrderNo,
			dal.BuyerId,
			dal.Incoterm,
			dal.Currency,
			dal.Status,
			dal.PaymentStatus,
			dal.TotalAmount,
			dal.TaxAmount,
			dal.DiscountAmount,
			dal.GrandTotal,
			dal.ShippingAddress,
			dal.BillingAddress,
			dal.PortOfLoading,
			dal.PortOfDischarge,
			dal.OrderDate,
			dal.ExpectedShipDate,
			dal.ActualShipDate,
			dal.Notes,
			dal.CreatedAt,
			dal.UpdatedAt,
		).
		Suffix("ON CONFLICT (order_no) DO NOTHING RETURNING " + strings.Join(orderColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	inserted, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return order.Order{}, errs.ErrDuplicateKey
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return *inserted, nil
}

func (r *PostgresOrderRepository) Get(ctx context.Context, id int64) (order.Order, error) {
	return r.get(ctx, id, false)
}

func (r *PostgresOrderRepository) GetForUpdate(ctx context.Context, id int64) (order.Order, error) {
	return r.get(ctx, id, true)
}

func (r *PostgresOrderRepository) get(ctx context.Context, id int64, forUpdate bool) (order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build select query: %w", err)
	}

	o, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return order.Order{}, errs.NotFound("order", id)
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	return *o, nil
}

// Query retrieves orders based on filter criteria
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		OrderBy("id DESC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.BuyerIds) > 0 {
		builder = builder.Where(sq.Eq{"buyer_id": filter.BuyerIds})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}
	if filter.OrderNo != "" {
		builder = builder.Where(sq.Eq{"order_no": filter.OrderNo})
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
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := []order.Order{}
	for rows.Next() {
		var dal OrderDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Update writes the mutable columns in one statement.
func (r *PostgresOrderRepository) Update(ctx context.Context, o order.Order) (order.Order, error) {
	dal := OrderDalFromModel(&o)
	query, args, err := sq.Update("orders").
		Set("incoterm", dal.Incoterm).
		Set("currency", dal.Currency).
		Set("status", dal.Status).
		Set("payment_status", dal.PaymentStatus).
		Set("total_amount", dal.TotalAmount).
		Set("tax_amount", dal.TaxAmount).
		Set("discount_amount", dal.DiscountAmount).
		Set("grand_total", dal.GrandTotal).
		Set("shipping_address", dal.ShippingAddress).
		Set("billing_address", dal.BillingAddress).
		Set("port_of_loading", dal.PortOfLoading).
		Set("port_of_discharge", dal.PortOfDischarge).
		Set("expected_ship_date", dal.ExpectedShipDate).
		Set("actual_ship_date", dal.ActualShipDate).
		Set("notes", dal.Notes).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": dal.Id}).
		Suffix("RETURNING " + strings.Join(orderColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build update query: %w", err)
	}

	updated, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return order.Order{}, errs.NotFound("order", o.ID)
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to update order: %w", err)
	}

	return *updated, nil
}

func (r *PostgresOrderRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := sq.Delete("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("order", id)
	}

	return nil
}

func (r *PostgresOrderRepository) scanOne(row pgx.Row) (*order.Order, error) {
	var dal OrderDal
	if err := row.Scan(dal.scanTargets()...); err != nil {
		return nil, err
	}
	model, err := dal.ToModel()
	if err != nil {
		return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
	}

	return model, nil
}
