package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOption tweaks the parsed pool configuration before the pool is built.
type PoolOption func(*pgxpool.Config)

// WithMaxConns caps the number of open connections. Zero keeps the pgx default.
func WithMaxConns(n int32) PoolOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = n
		}
	}
}

// WithConnLifetime bounds how long a connection may be reused.
func WithConnLifetime(idle, lifetime time.Duration) PoolOption {
	return func(cfg *pgxpool.Config) {
		if idle > 0 {
			cfg.MaxConnIdleTime = idle
		}
		if lifetime > 0 {
			cfg.MaxConnLifetime = lifetime
		}
	}
}

// WithApplicationName tags every backend with application_name so that
// operators (and the chaos tooling) can tell our sessions apart.
func WithApplicationName(name string) PoolOption {
	return func(cfg *pgxpool.Config) {
		if name != "" {
			cfg.ConnConfig.RuntimeParams["application_name"] = name
		}
	}
}

// WithSearchPath pins unqualified table names to schema. Test harnesses use
// it to isolate a run inside a shared database.
func WithSearchPath(schema string) PoolOption {
	return func(cfg *pgxpool.Config) {
		if schema != "" {
			cfg.ConnConfig.RuntimeParams["search_path"] = schema
		}
	}
}

// NewPool constructs a pgx connection pool using the provided connection string.
func NewPool(ctx context.Context, connString string, opts ...PoolOption) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("db: empty connection string")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("db: parse config: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: create pool: %w", err)
	}
	return pool, nil
}
