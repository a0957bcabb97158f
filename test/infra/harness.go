package infra

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options selects where the harness gets its database from.
type Options struct {
	// DSN reuses an existing database instead of starting one.
	DSN string
	// AppName tags the application pool's sessions in pg_stat_activity.
	AppName  string
	MaxConns int32
}

// Harness owns a migrated, isolated Postgres schema and the pools used by a
// test run: one for the code under test and one for invariant checks.
type Harness struct {
	container *PGContainer
	schema    *Schema
	pool      *pgxpool.Pool
	oracle    *pgxpool.Pool
	dsn       string
	appName   string
}

// NewHarness resolves a database (Options.DSN, STRESS_TEST_PG_DSN,
// DATABASE_URL, a docker container, or a local server, in that order),
// creates a private schema and applies migrations.
func NewHarness(ctx context.Context, opts Options) (*Harness, error) {
	if opts.AppName == "" {
		opts.AppName = "jobpazar-stress"
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 32
	}

	h := &Harness{appName: opts.AppName}

	dsn := firstNonEmpty(opts.DSN, os.Getenv("STRESS_TEST_PG_DSN"), os.Getenv("DATABASE_URL"))
	switch {
	case dsn != "":
	case DockerAvailable(ctx):
		c, containerDSN, err := StartPostgres16(ctx)
		if err != nil {
			return nil, fmt.Errorf("start postgres: %w", err)
		}
		h.container, dsn = c, containerDSN
	default:
		localDSN, err := InitLocalDatabase(ctx)
		if err != nil {
			return nil, fmt.Errorf("init local database: %w", err)
		}
		dsn = localDSN
	}
	h.dsn = dsn

	schema, err := CreateSchema(ctx, dsn)
	if err != nil {
		h.Close(ctx)
		return nil, err
	}
	h.schema = schema

	if h.pool, err = OpenPool(ctx, dsn, schema.Name, opts.AppName, opts.MaxConns); err != nil {
		h.Close(ctx)
		return nil, err
	}
	if err := ApplyMigrations(ctx, h.pool); err != nil {
		h.Close(ctx)
		return nil, err
	}
	if h.oracle, err = OpenPool(ctx, dsn, schema.Name, opts.AppName+"-oracle", 4); err != nil {
		h.Close(ctx)
		return nil, err
	}
	return h, nil
}

// Pool is the pool handed to the code under test.
func (h *Harness) Pool() *pgxpool.Pool {
	return h.pool
}

// OraclePool is a separate pool so that chaos targeting the application
// sessions never interrupts invariant checks.
func (h *Harness) OraclePool() *pgxpool.Pool {
	return h.oracle
}

// AppName is the application_name carried by Pool's sessions.
func (h *Harness) AppName() string {
	return h.appName
}

// DSN returns the connection string for direct connections.
func (h *Harness) DSN() string {
	return h.dsn
}

// Reset truncates mutable tables to provide a clean slate between runs.
func (h *Harness) Reset(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, `TRUNCATE TABLE outbox, notifications, proposals, jobs, users CASCADE`); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// Close tears down pools, the schema and the container.
func (h *Harness) Close(ctx context.Context) error {
	if h.oracle != nil {
		h.oracle.Close()
	}
	if h.pool != nil {
		h.pool.Close()
	}
	var errs []error
	if h.container == nil && h.schema != nil {
		// Shared database: drop our schema. A container is discarded whole.
		errs = append(errs, h.schema.Drop(ctx))
	}
	errs = append(errs, h.container.Terminate(ctx))
	return errors.Join(errs...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
