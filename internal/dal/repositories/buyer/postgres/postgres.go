package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/trade/internal/dal/postgres"
	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/buyer"
	"github.com/jackc/pgx/v5"
)

// BuyerDal represents buyer data access layer model
type BuyerDal struct {
	Id           int64     `db:"id"`
	Name         string    `db:"name"`
	Country      string    `db:"country"`
	ContactEmail string    `db:"contact_email"`
	State        string    `db:"state"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (b *BuyerDal) ToModel() buyer.Buyer {
	return buyer.Buyer{
		ID:           b.Id,
		Name:         b.Name,
		Country:      b.Country,
		ContactEmail: b.ContactEmail,
		State:        buyer.State(b.State),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

const buyerReturning = "RETURNING id, name, country, contact_email, state, created_at, updated_at"

type PostgresBuyerRepository struct {
	conn postgres.Querier
}

func NewPostgresBuyerRepository(conn postgres.Querier) *PostgresBuyerRepository {
	return &PostgresBuyerRepository{
		conn: conn,
	}
}

func (r *PostgresBuyerRepository) Insert(ctx context.Context, b buyer.Buyer) (buyer.Buyer, error) {
	query, args, err := sq.Insert("buyers").
		Columns("name", "country", "contact_email", "state", "created_at", "updated_at").
		Values(b.Name, b.Country, b.ContactEmail, string(b.State), b.CreatedAt, b.UpdatedAt).
		Suffix(buyerReturning).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	var dal BuyerDal
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&dal.Id, &dal.Name, &dal.Country, &dal.ContactEmail, &dal.State, &dal.CreatedAt, &dal.UpdatedAt,
	)
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("failed to insert buyer: %w", err)
	}

	return dal.ToModel(), nil
}

func (r *PostgresBuyerRepository) Get(ctx context.Context, id int64) (buyer.Buyer, error) {
	query, args, err := sq.Select("id", "name", "country", "contact_email", "state", "created_at", "updated_at").
		From("buyers").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal BuyerDal
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&dal.Id, &dal.Name, &dal.Country, &dal.ContactEmail, &dal.State, &dal.CreatedAt, &dal.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return buyer.Buyer{}, errs.NotFound("buyer", id)
	}
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("failed to get buyer: %w", err)
	}

	return dal.ToModel(), nil
}
