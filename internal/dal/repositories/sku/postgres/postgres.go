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
	"github.com/corray333/backend-labs/trade/internal/service/models/sku"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SKUDal represents catalog entry data access layer model
type SKUDal struct {
	Id           int64           `db:"id"`
	Code         string          `db:"code"`
	Description  string          `db:"description"`
	HsCode       string          `db:"hs_code"`
	Unit         string          `db:"unit"`
	UnitPrice    decimal.Decimal `db:"unit_price"`
	CostPrice    decimal.Decimal `db:"cost_price"`
	ReorderLevel int             `db:"reorder_level"`
	State        string          `db:"state"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

var skuColumns = []string{
	"id", "code", "description", "hs_code", "unit", "unit_price",
	"cost_price", "reorder_level", "state", "created_at", "updated_at",
}

func (s *SKUDal) scanTargets() []any {
	return []any{
		&s.Id, &s.Code, &s.Description, &s.HsCode, &s.Unit, &s.UnitPrice,
		&s.CostPrice, &s.ReorderLevel, &s.State, &s.CreatedAt, &s.UpdatedAt,
	}
}

func (s *SKUDal) ToModel() sku.SKU {
	return sku.SKU{
		ID:           s.Id,
		Code:         s.Code,
		Description:  s.Description,
		HSCode:       s.HsCode,
		Unit:         s.Unit,
		UnitPrice:    s.UnitPrice,
		CostPrice:    s.CostPrice,
		ReorderLevel: s.ReorderLevel,
		State:        sku.State(s.State),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type PostgresSKURepository struct {
	conn postgres.Querier
}

func NewPostgresSKURepository(conn postgres.Querier) *PostgresSKURepository {
	return &PostgresSKURepository{
		conn: conn,
	}
}

func (r *PostgresSKURepository) Insert(ctx context.Context, s sku.SKU) (sku.SKU, error) {
	query, args, err := sq.Insert("skus").
		Columns(skuColumns[1:]...).
		Values(
			sku.NormalizeCode(s.Code),
			s.Description,
			s.HSCode,
			s.Unit,
			s.UnitPrice,
			s.CostPrice,
			s.ReorderLevel,
			string(s.State),
			s.CreatedAt,
			s.UpdatedAt,
		).
		Suffix("ON CONFLICT (code) DO NOTHING RETURNING " + strings.Join(skuColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return sku.SKU{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	var dal SKUDal
	err = r.conn.QueryRow(ctx, query, args...).Scan(dal.scanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return sku.SKU{}, errs.ErrDuplicateKey
	}
	if err != nil {
		return sku.SKU{}, fmt.Errorf("failed to insert sku: %w", err)
	}

	return dal.ToModel(), nil
}

func (r *PostgresSKURepository) Get(ctx context.Context, id int64) (sku.SKU, error) {
	return r.getBy(ctx, sq.Eq{"id": id}, id)
}

func (r *PostgresSKURepository) GetByCode(ctx context.Context, code string) (sku.SKU, error) {
	code = sku.NormalizeCode(code)

	return r.getBy(ctx, sq.Eq{"code": code}, code)
}

func (r *PostgresSKURepository) getBy(ctx context.Context, where sq.Eq, key any) (sku.SKU, error) {
	query, args, err := sq.Select(skuColumns...).
		From("skus").
		Where(where).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return sku.SKU{}, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal SKUDal
	err = r.conn.QueryRow(ctx, query, args...).Scan(dal.scanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return sku.SKU{}, errs.NotFound("sku", key)
	}
	if err != nil {
		return sku.SKU{}, fmt.Errorf("failed to get sku: %w", err)
	}

	return dal.ToModel(), nil
}
