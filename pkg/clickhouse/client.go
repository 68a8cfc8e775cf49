package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Client owns the connection pool shared by the bar, signal and backtest stores.
type Client struct {
	db       *sql.DB
	database string
}

// NewClient opens the pool and pings until the server answers or the
// attempts run out.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("clickhouse host is required")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	db, err := sql.Open("clickhouse", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := ping(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Client{db: db, database: cfg.Database}, nil
}

// NewClientFromDB wraps an open pool.
func NewClientFromDB(db *sql.DB, database string) *Client {
	return &Client{db: db, database: database}
}

func ping(ctx context.Context, db *sql.DB, cfg Config) error {
	attempts := max(cfg.ConnectAttempts, 1)
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var err error
	for i := 1; i <= attempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = db.PingContext(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("clickhouse ping %s:%d after %d attempts: %w", cfg.Host, cfg.Port, attempts, err)
}

func (c *Client) DB() *sql.DB { return c.db }

// Database is the schema the stores qualify their tables with.
func (c *Client) Database() string { return c.database }

func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InitSchema runs stmts, or the service schema when none are given.
func (c *Client) InitSchema(ctx context.Context, stmts ...string) error {
	if len(stmts) == 0 {
		stmts = Schema(c.database)
	}
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
