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
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ShipmentDal represents shipment data access layer model
type ShipmentDal struct {
	Id                 int64           `db:"id"`
	ShipmentNo         string          `db:"shipment_no"`
	OrderId            int64           `db:"order_id"`
	Carrier            string          `db:"carrier"`
	TrackingNumber     string          `db:"tracking_number"`
	VesselOrFlight     string          `db:"vessel_or_flight"`
	ContainerNo        string          `db:"container_no"`
	SealNo             string          `db:"seal_no"`
	Mode               string          `db:"mode"`
	Status             string          `db:"status"`
	EstimatedDeparture *time.Time      `db:"estimated_departure"`
	ActualDeparture    *time.Time      `db:"actual_departure"`
	EstimatedArrival   *time.Time      `db:"estimated_arrival"`
	ActualArrival      *time.Time      `db:"actual_arrival"`
	FreightCost        decimal.Decimal `db:"freight_cost"`
	InsuranceCost      decimal.Decimal `db:"insurance_cost"`
	TrackingUrl        string          `db:"tracking_url"`
	Notes              string          `db:"notes"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

var shipmentColumns = []string{
	"id",
	"shipment_no",
	"order_id",
	"carrier",
	"tracking_number",
	"vessel_or_flight",
	"container_no",
	"seal_no",
	"mode",
	"status",
	"estimated_departure",
	"actual_departure",
	"estimated_arrival",
	"actual_arrival",
	"freight_cost",
	"insurance_cost",
	"tracking_url",
	"notes",
	"created_at",
	"updated_at",
}

func (d *ShipmentDal) scanTargets() []any {
	return []any{
		&d.Id,
		&d.ShipmentNo,
		&d.OrderId,
		&d.Carrier,
		&d.TrackingNumber,
		&d.VesselOrFlight,
		&d.ContainerNo,
		&d.SealNo,
		&d.Mode,
		&d.Status,
		&d.EstimatedDeparture,
		&d.ActualDeparture,
		&d.EstimatedArrival,
		&d.ActualArrival,
		&d.FreightCost,
		&d.InsuranceCost,
		&d.TrackingUrl,
		&d.Notes,
		&d.CreatedAt,
		&d.UpdatedAt,
	}
}

// ToModel converts ShipmentDal to service layer Shipment model
func (d *ShipmentDal) ToModel() (shipment.Shipment, error) {
	status, err := shipment.ParseStatus(d.Status)
	if err != nil {
		return shipment.Shipment{}, err
	}
	mode, err := shipment.ParseMode(d.Mode)
	if err != nil {
		return shipment.Shipment{}, err
	}

	return shipment.Shipment{
		ID:                 d.Id,
		ShipmentNo:         d.ShipmentNo,
		OrderID:            d.OrderId,
		Carrier:            d.Carrier,
		TrackingNumber:     d.TrackingNumber,
		VesselOrFlight:     d.VesselOrFlight,
		ContainerNo:        d.ContainerNo,
		SealNo:             d.SealNo,
		Mode:               mode,
		Status:             status,
		EstimatedDeparture: d.EstimatedDeparture,
		ActualDeparture:    d.ActualDeparture,
		EstimatedArrival:   d.EstimatedArrival,
		ActualArrival:      d.ActualArrival,
		FreightCost:        d.FreightCost,
		InsuranceCost:      d.InsuranceCost,
		TrackingURL:        d.TrackingUrl,
		Notes:              d.Notes,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}, nil
}

// ShipmentDalFromModel converts service layer Shipment model to ShipmentDal
func ShipmentDalFromModel(s *shipment.Shipment) *ShipmentDal {
	return &ShipmentDal{
		Id:                 s.ID,
		ShipmentNo:         s.ShipmentNo,
		OrderId:            s.OrderID,
		Carrier:            s.Carrier,
		TrackingNumber:     s.TrackingNumber,
		VesselOrFlight:     s.VesselOrFlight,
		ContainerNo:        s.ContainerNo,
		SealNo:             s.SealNo,
		Mode:               string(s.Mode),
		Status:             string(s.Status),
		EstimatedDeparture: s.EstimatedDeparture,
		ActualDeparture:    s.ActualDeparture,
		EstimatedArrival:   s.EstimatedArrival,
		ActualArrival:      s.ActualArrival,
		FreightCost:        s.FreightCost,
		InsuranceCost:      s.InsuranceCost,
		TrackingUrl:        s.TrackingURL,
		Notes:              s.Notes,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

type PostgresShipmentRepository struct {
	conn postgres.Querier
}

func NewPostgresShipmentRepository(conn postgres.Querier) *PostgresShipmentRepository {
	return &PostgresShipmentRepository{
		conn: conn,
	}
}

func (r *PostgresShipmentRepository) Insert(ctx context.Context, s shipment.Shipment) (shipment.Shipment, error) {
	dal := ShipmentDalFromModel(&s)
	query, args, err := sq.Insert("shipments").
		Columns(shipmentColumns[1:]...).
		Values(
			dal.ShipmentNo,
			dal.OrderId,
			dal.Carrier,
			dal.TrackingNumber,
			dal.VesselOrFlight,
			dal.ContainerNo,
			dal.SealNo,
			dal.Mode,
			dal.Status,
			dal.EstimatedDeparture,
			dal.ActualDeparture,
			dal.EstimatedArrival,
			dal.ActualArrival,
			dal.FreightCost,
			dal.InsuranceCost,
			dal.TrackingUrl,
			dal.Notes,
			dal.CreatedAt,
			dal.UpdatedAt,
		).
		Suffix("ON CONFLICT (shipment_no) DO NOTHING RETURNING " + strings.Join(shipmentColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	inserted, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return shipment.Shipment{}, errs.ErrDuplicateKey
	}
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to insert shipment: %w", err)
	}

	return inserted, nil
}

func (r *PostgresShipmentRepository) Get(ctx context.Context, id int64) (shipment.Shipment, error) {
	return r.getOne(ctx, sq.Select(shipmentColumns...).From("shipments").Where(sq.Eq{"id": id}), id)
}

func (r *PostgresShipmentRepository) GetForUpdate(ctx context.Context, id int64) (shipment.Shipment, error) {
	return r.getOne(ctx,
		sq.Select(shipmentColumns...).From("shipments").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"),
		id,
	)
}

func (r *PostgresShipmentRepository) GetByTrackingNumber(
	ctx context.Context,
	trackingNumber string,
) (shipment.Shipment, error) {
	return r.getOne(ctx,
		sq.Select(shipmentColumns...).
			From("shipments").
			Where(sq.Eq{"tracking_number": trackingNumber}).
			OrderBy("id DESC").
			Limit(1),
		trackingNumber,
	)
}

func (r *PostgresShipmentRepository) getOne(
	ctx context.Context,
	builder sq.SelectBuilder,
	key any,
) (shipment.Shipment, error) {
	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to build select query: %w", err)
	}

	s, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return shipment.Shipment{}, errs.NotFound("shipment", key)
	}
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to get shipment: %w", err)
	}

	return s, nil
}

func (r *PostgresShipmentRepository) Query(
	ctx context.Context,
	filter *shipment.QueryShipmentsModel,
) ([]shipment.Shipment, error) {
	builder := sq.Select(shipmentColumns...).
		From("shipments").
		OrderBy("id DESC").
		PlaceholderFormat(sq.Dollar)
	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.OrderIds) > 0 {
		builder = builder.Where(sq.Eq{"order_id": filter.OrderIds})
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
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	defer rows.Close()

	result := []shipment.Shipment{}
	for rows.Next() {
		var dal ShipmentDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan shipment: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert shipment dal to model: %w", err)
		}
		result = append(result, model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *PostgresShipmentRepository) Update(ctx context.Context, s shipment.Shipment) (shipment.Shipment, error) {
	dal := ShipmentDalFromModel(&s)
	query, args, err := sq.Update("shipments").
		Set("carrier", dal.Carrier).
		Set("tracking_number", dal.TrackingNumber).
		Set("vessel_or_flight", dal.VesselOrFlight).
		Set("container_no", dal.ContainerNo).
		Set("seal_no", dal.SealNo).
		Set("mode", dal.Mode).
		Set("status", dal.Status).
		Set("estimated_departure", dal.EstimatedDeparture).
		Set("actual_departure", dal.ActualDeparture).
		Set("estimated_arrival", dal.EstimatedArrival).
		Set("actual_arrival", dal.ActualArrival).
		Set("freight_cost", dal.FreightCost).
		Set("insurance_cost", dal.InsuranceCost).
		Set("tracking_url", dal.TrackingUrl).
		Set("notes", dal.Notes).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": dal.Id}).
		Suffix("RETURNING " + strings.Join(shipmentColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to build update query: %w", err)
	}

	updated, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return shipment.Shipment{}, errs.NotFound("shipment", s.ID)
	}
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to update shipment: %w", err)
	}

	return updated, nil
}

var eventColumns = []string{
	"id", "shipment_id", "carrier_status", "mapped_status", "location", "carrier", "occurred_at", "created_at",
}

func (r *PostgresShipmentRepository) InsertEvent(ctx context.Context, e shipment.Event) (shipment.Event, error) {
	query, args, err := sq.Insert("shipment_events").
		Columns(eventColumns[1:]...).
		Values(e.ShipmentID, e.CarrierStatus, string(e.MappedStatus), e.Location, e.Carrier, e.OccurredAt, e.CreatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return shipment.Event{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&e.ID); err != nil {
		return shipment.Event{}, fmt.Errorf("failed to insert shipment event: %w", err)
	}

	return e, nil
}

func (r *PostgresShipmentRepository) QueryEvents(ctx context.Context, shipmentID int64) ([]shipment.Event, error) {
	query, args, err := sq.Select(eventColumns...).
		From("shipment_events").
		Where(sq.Eq{"shipment_id": shipmentID}).
		OrderBy("occurred_at ASC", "id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipment events: %w", err)
	}
	defer rows.Close()

	result := []shipment.Event{}
	for rows.Next() {
		var (
			e      shipment.Event
			mapped string
		)
		err := rows.Scan(&e.ID, &e.ShipmentID, &e.CarrierStatus, &mapped, &e.Location, &e.Carrier, &e.OccurredAt, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shipment event: %w", err)
		}
		e.MappedStatus = shipment.Status(mapped)
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *PostgresShipmentRepository) scanOne(row pgx.Row) (shipment.Shipment, error) {
	var dal ShipmentDal
	if err := row.Scan(dal.scanTargets()...); err != nil {
		return shipment.Shipment{}, err
	}
	model, err := dal.ToModel()
	if err != nil {
		return shipment.Shipment{}, fmt.Errorf("failed to convert shipment dal to model: %w", err)
	}

	return model, nil
}
