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
	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/jackc/pgx/v5"
)

// RecordDal represents inventory record data access layer model
type RecordDal struct {
	Id           int64     `db:"id"`
	SkuId        int64     `db:"sku_id"`
	WarehouseId  int64     `db:"warehouse_id"`
	QtyAvailable int       `db:"qty_available"`
	QtyReserved  int       `db:"qty_reserved"`
	QtyInTransit int       `db:"qty_in_transit"`
	BinLocation  string    `db:"bin_location"`
	UpdatedAt    time.Time `db:"updated_at"`
}

var recordColumns = []string{
	"id", "sku_id", "warehouse_id", "qty_available", "qty_reserved", "qty_in_transit", "bin_location", "updated_at",
}

func (d *RecordDal) scanTargets() []any {
	return []any{
		&d.Id, &d.SkuId, &d.WarehouseId, &d.QtyAvailable, &d.QtyReserved, &d.QtyInTransit, &d.BinLocation, &d.UpdatedAt,
	}
}

func (d *RecordDal) ToModel() inventory.Record {
	return inventory.Record{
		ID:           d.Id,
		SKUID:        d.SkuId,
		WarehouseID:  d.WarehouseId,
		QtyAvailable: d.QtyAvailable,
		QtyReserved:  d.QtyReserved,
		QtyInTransit: d.QtyInTransit,
		BinLocation:  d.BinLocation,
		UpdatedAt:    d.UpdatedAt,
	}
}

// ReservationDal represents reservation data access layer model
type ReservationDal struct {
	Id          int64      `db:"id"`
	OrderId     int64      `db:"order_id"`
	OrderItemId int64      `db:"order_item_id"`
	SkuId       int64      `db:"sku_id"`
	SkuCode     string     `db:"sku_code"`
	WarehouseId int64      `db:"warehouse_id"`
	Qty         int        `db:"qty"`
	State       string     `db:"state"`
	CreatedAt   time.Time  `db:"created_at"`
	ReleasedAt  *time.Time `db:"released_at"`
}

var reservationColumns = []string{
	"id", "order_id", "order_item_id", "sku_id", "sku_code", "warehouse_id", "qty", "state", "created_at", "released_at",
}

func (d *ReservationDal) scanTargets() []any {
	return []any{
		&d.Id, &d.OrderId, &d.OrderItemId, &d.SkuId, &d.SkuCode, &d.WarehouseId, &d.Qty, &d.State, &d.CreatedAt, &d.ReleasedAt,
	}
}

func (d *ReservationDal) ToModel() inventory.Reservation {
	return inventory.Reservation{
		ID:          d.Id,
		OrderID:     d.OrderId,
		OrderItemID: d.OrderItemId,
		SKUID:       d.SkuId,
		SKUCode:     d.SkuCode,
		WarehouseID: d.WarehouseId,
		Qty:         d.Qty,
		State:       inventory.ReservationState(d.State),
		CreatedAt:   d.CreatedAt,
		ReleasedAt:  d.ReleasedAt,
	}
}

type PostgresInventoryRepository struct {
	conn postgres.Querier
}

func NewPostgresInventoryRepository(conn postgres.Querier) *PostgresInventoryRepository {
	return &PostgresInventoryRepository{
		conn: conn,
	}
}

func (r *PostgresInventoryRepository) Insert(ctx context.Context, rec inventory.Record) (inventory.Record, error) {
	query, args, err := sq.Insert("inventory").
		Columns(recordColumns[1:]...).
		Values(
			rec.SKUID,
			rec.WarehouseID,
			rec.QtyAvailable,
			rec.QtyReserved,
			rec.QtyInTransit,
			rec.BinLocation,
			sq.Expr("NOW()"),
		).
		Suffix("ON CONFLICT (sku_id, warehouse_id) DO NOTHING RETURNING " + strings.Join(recordColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return inventory.Record{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	inserted, err := r.scanRecord(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Record{}, errs.ErrDuplicateKey
	}
	if err != nil {
		return inventory.Record{}, fmt.Errorf("failed to insert inventory record: %w", err)
	}

	return inserted, nil
}

func (r *PostgresInventoryRepository) Get(
	ctx context.Context,
	skuID, warehouseID int64,
) (inventory.Record, error) {
	query, args, err := sq.Select(recordColumns...).
		From("inventory").
		Where(sq.Eq{"sku_id": skuID, "warehouse_id": warehouseID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return inventory.Record{}, fmt.Errorf("failed to build select query: %w", err)
	}

	rec, err := r.scanRecord(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Record{}, errs.NotFound("inventory record", skuID)
	}
	if err != nil {
		return inventory.Record{}, fmt.Errorf("failed to get inventory record: %w", err)
	}

	return rec, nil
}

func (r *PostgresInventoryRepository) Query(
	ctx context.Context,
	filter *inventory.QueryRecordsModel,
) ([]inventory.Record, error) {
	builder := sq.Select(recordColumns...).
		From("inventory").
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar)
	if len(filter.SKUIds) > 0 {
		builder = builder.Where(sq.Eq{"sku_id": filter.SKUIds})
	}
	if len(filter.WarehouseIds) > 0 {
		builder = builder.Where(sq.Eq{"warehouse_id": filter.WarehouseIds})
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
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	result := []inventory.Record{}
	for rows.Next() {
		var dal RecordDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan inventory record: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Reserve runs UPDATE ... WHERE qty_available >= qty so the check and the decrement are one statement.
func (r *PostgresInventoryRepository) Reserve(
	ctx context.Context,
	skuID, warehouseID int64,
	qty int,
) (inventory.Record, error) {
	return r.conditionalUpdate(ctx, skuID, warehouseID,
		sq.Update("inventory").
			Set("qty_available", sq.Expr("qty_available - ?", qty)).
			Set("qty_reserved", sq.Expr("qty_reserved + ?", qty)).
			Where(sq.GtOrEq{"qty_available": qty}),
		errs.ErrInsufficientStock,
	)
}

func (r *PostgresInventoryRepository) Release(
	ctx context.Context,
	skuID, warehouseID int64,
	qty int,
) (inventory.Record, error) {
	return r.conditionalUpdate(ctx, skuID, warehouseID,
		sq.Update("inventory").
			Set("qty_available", sq.Expr("qty_available + ?", qty)).
			Set("qty_reserved", sq.Expr("qty_reserved - ?", qty)).
			Where(sq.GtOrEq{"qty_reserved": qty}),
		errs.ErrInvalidOperation,
	)
}

func (r *PostgresInventoryRepository) Adjust(
	ctx context.Context,
	skuID, warehouseID int64,
	delta int,
) (inventory.Record, error) {
	return r.conditionalUpdate(ctx, skuID, warehouseID,
		sq.Update("inventory").
			Set("qty_available", sq.Expr("qty_available + ?", delta)).
			Where(sq.Expr("qty_available + ? >= 0", delta)),
		errs.ErrInvalidOperation,
	)
}

// conditionalUpdate runs the guarded update. When no row matches it tells a missing record
// apart from a failed guard and returns the current counters with rejected.
func (r *PostgresInventoryRepository) conditionalUpdate(
	ctx context.Context,
	skuID, warehouseID int64,
	builder sq.UpdateBuilder,
	rejected error,
) (inventory.Record, error) {
	query, args, err := builder.
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"sku_id": skuID, "warehouse_id": warehouseID}).
		Suffix("RETURNING " + strings.Join(recordColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return inventory.Record{}, fmt.Errorf("failed to build update query: %w", err)
	}

	rec, err := r.scanRecord(r.conn.QueryRow(ctx, query, args...))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return inventory.Record{}, fmt.Errorf("failed to update inventory record: %w", err)
	}

	current, err := r.Get(ctx, skuID, warehouseID)
	if err != nil {
		return inventory.Record{}, err
	}

	return current, rejected
}

func (r *PostgresInventoryRepository) InsertReservation(
	ctx context.Context,
	res inventory.Reservation,
) (inventory.Reservation, error) {
	query, args, err := sq.Insert("inventory_reservations").
		Columns(reservationColumns[1:]...).
		Values(
			res.OrderID,
			res.OrderItemID,
			res.SKUID,
			res.SKUCode,
			res.WarehouseID,
			res.Qty,
			string(res.State),
			res.CreatedAt,
			res.ReleasedAt,
		).
		Suffix("RETURNING " + strings.Join(reservationColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return inventory.Reservation{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	var dal ReservationDal
	if err := r.conn.QueryRow(ctx, query, args...).Scan(dal.scanTargets()...); err != nil {
		return inventory.Reservation{}, fmt.Errorf("failed to insert reservation: %w", err)
	}

	return dal.ToModel(), nil
}

func (r *PostgresInventoryRepository) QueryReservations(
	ctx context.Context,
	orderID int64,
	state inventory.ReservationState,
) ([]inventory.Reservation, error) {
	builder := sq.Select(reservationColumns...).
		From("inventory_reservations").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar)
	if state != "" {
		builder = builder.Where(sq.Eq{"state": string(state)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	result := []inventory.Reservation{}
	for rows.Next() {
		var dal ReservationDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *PostgresInventoryRepository) MarkReleased(ctx context.Context, id int64, at time.Time) (bool, error) {
	query, args, err := sq.Update("inventory_reservations").
		Set("state", string(inventory.ReservationReleased)).
		Set("released_at", at).
		Where(sq.Eq{"id": id, "state": string(inventory.ReservationReserved)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to release reservation: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PostgresInventoryRepository) scanRecord(row pgx.Row) (inventory.Record, error) {
	var dal RecordDal
	if err := row.Scan(dal.scanTargets()...); err != nil {
		return inventory.Record{}, err
	}

	return dal.ToModel(), nil
}
