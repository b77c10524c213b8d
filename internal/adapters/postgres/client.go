package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"phi/internal/adapters/config"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

const connectTimeout = 10 * time.Second

// Client holds the pooled connection behind the persona, prediction and
// reasoning repositories.
type Client struct {
	db *sqlx.DB
}

// NewClient opens the pool and pings the server before returning. The ping is
// bounded by ctx and by connectTimeout, whichever is sooner.
func NewClient(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping postgres %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	}

	logger.Component("postgres").Debugw("Connection pool ready",
		"host", cfg.Host, "database", cfg.Database, "max_conns", maxConns)
	return &Client{db: db}, nil
}

func (c *Client) DB() *sqlx.DB {
	return c.db
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Health pings the server; used by the readiness probe.
func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
