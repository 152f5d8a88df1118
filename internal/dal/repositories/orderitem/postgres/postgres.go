package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/trade/internal/dal/postgres"
	"github.com/corray333/backend-labs/trade/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// OrderItemDal represents order item data access layer model
type OrderItemDal struct {
	Id          int64           `db:"id"`
	OrderId     int64           `db:"order_id"`
	SkuId       *int64          `db:"sku_id"`
	SkuCode     string          `db:"sku_code"`
	Description string          `db:"description"`
	HsCode      string          `db:"hs_code"`
	Unit        string          `db:"unit"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	DiscountPct decimal.Decimal `db:"discount_pct"`
	TaxPct      decimal.Decimal `db:"tax_pct"`
	LineTotal   decimal.Decimal `db:"line_total"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

var orderItemColumns = []string{
	"id",
	"order_id",
	"sku_id",
	"sku_code",
	"description",
	"hs_code",
	"unit",
	"quantity",
	"unit_price",
	"discount_pct",
	"tax_pct",
	"line_total",
	"created_at",
	"updated_at",
}

func (o *OrderItemDal) scanTargets() []any {
	return []any{
		&o.Id,
		&o.OrderId,
		&o.SkuId,
		&o.SkuCode,
		&o.Description,
		&o.HsCode,
		&o.Unit,
		&o.Quantity,
		&o.UnitPrice,
		&o.DiscountPct,
		&o.TaxPct,
		&o.LineTotal,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

// ToModel converts OrderItemDal to service layer OrderItem model
func (o *OrderItemDal) ToModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ID:          o.Id,
		OrderID:     o.OrderId,
		SKUID:       o.SkuId,
		SKUCode:     o.SkuCode,
		Description: o.Description,
		HSCode:      o.HsCode,
		Unit:        o.Unit,
		Quantity:    o.Quantity,
		UnitPrice:   o.UnitPrice,
		DiscountPct: o.DiscountPct,
		TaxPct:      o.TaxPct,
		LineTotal:   o.LineTotal,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

type PostgresOrderItemRepository struct {
	conn postgres.Querier
}

func NewPostgresOrderItemRepository(conn postgres.Querier) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
	}
}

// BulkInsert inserts multiple order items and returns them with IDs, in input order
func (r *PostgresOrderItemRepository) BulkInsert(
	ctx context.Context,
	orderItems []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	if len(orderItems) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	builder := sq.Insert("order_items").
		Columns(orderItemColumns[1:]...).
		Suffix("RETURNING " + strings.Join(orderItemColumns, ", ")).
		PlaceholderFormat(sq.Dollar)
	for _, item := range orderItems {
		builder = builder.Values(
			item.OrderID,
			item.SKUID,
			item.SKUCode,
			item.Description,
			item.HSCode,
			item.Unit,
			item.Quantity,
			item.UnitPrice,
			item.DiscountPct,
			item.TaxPct,
			item.LineTotal,
			item.CreatedAt,
			item.UpdatedAt,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	return r.queryItems(ctx, query, args, "failed to bulk insert order items")
}

// Query retrieves order items based on filter criteria
func (r *PostgresOrderItemRepository) Query(
	ctx context.Context,
	filter *orderitem.QueryOrderItemsModel,
) ([]orderitem.OrderItem, error) {
	builder := sq.Select(orderItemColumns...).
		From("order_items").
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.OrderIds) > 0 {
		builder = builder.Where(sq.Eq{"order_id": filter.OrderIds})
	}
	if len(filter.SKUIds) > 0 {
		builder = builder.Where(sq.Eq{"sku_id": filter.SKUIds})
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

	return r.queryItems(ctx, query, args, "failed to query order items")
}

func (r *PostgresOrderItemRepository) DeleteByOrder(ctx context.Context, orderID int64) (int64, error) {
	query, args, err := sq.Delete("order_items").
		Where(sq.Eq{"order_id": orderID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete order items: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresOrderItemRepository) queryItems(
	ctx context.Context,
	query string,
	args []any,
	failure string,
) ([]orderitem.OrderItem, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", failure, err)
	}
	defer rows.Close()

	result := []orderitem.OrderItem{}
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
