package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
	"github.com/zatekoja/opticalqc/pkg/config"
	"github.com/zatekoja/opticalqc/pkg/retry"
)

// Client holds the order store connection pool. Goqu-built statements run on
// DB; statistics reads scan structs through DBX.
type Client struct {
	db  *sql.DB
	dbx *sqlx.DB
}

// NewClient opens the pool and waits for PostgreSQL to accept connections.
func NewClient(ctx context.Context, cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger := observability.WithComponent("postgres")
	if err := retry.Dial(ctx, retry.StartupPolicy(), "postgres", &logger, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Connected to PostgreSQL")
	return NewClientFromDB(db), nil
}

// NewClientFromDB wraps an existing connection pool.
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db, dbx: sqlx.NewDb(db, "postgres")}
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) DBX() *sqlx.DB {
	return c.dbx
}

func (c *Client) Close() error {
	return c.db.Close()
}

// BeginTx starts a read-committed transaction.
func (c *Client) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// Ping implements the readiness check.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
