package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/viper"
)

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
}

// Querier is implemented by both *pgxpool.Pool and pgx.Tx, so repositories run the same
// statements inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() {
	p.pool.Close()
}

// MustNewClient creates a new Postgres client and applies pending migrations.
func MustNewClient() *Client {
	port := os.Getenv("TRADE_PG_PORT")
	if port == "" {
		port = "5432"
	}
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("TRADE_PG_HOST"),
		port,
		os.Getenv("TRADE_PG_USER"),
		os.Getenv("TRADE_PG_PASSWORD"),
		os.Getenv("TRADE_PG_DB"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		panic(err)
	}
	if maxConns := viper.GetInt32("postgres.max_conns"); maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		panic(err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		panic(err)
	}

	// Run migrations using goose with stdlib adapter
	if err := goose.SetDialect("postgres"); err != nil {
		panic(err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := goose.Up(db, viper.GetString("postgres.migrations_path")); err != nil {
		panic(err)
	}

	return &Client{
		pool: pool,
	}
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
