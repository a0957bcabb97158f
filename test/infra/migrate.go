package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpazar/db"
)

// Schema is an isolated namespace inside a shared database.
type Schema struct {
	dsn  string
	Name string
}

// CreateSchema makes a fresh per-run schema so concurrent runs against the
// same database never see each other's rows.
func CreateSchema(ctx context.Context, dsn string) (*Schema, error) {
	name := fmt.Sprintf("stress_run_%d", time.Now().UnixNano())

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect for schema: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{name}.Sanitize()); err != nil {
		return nil, fmt.Errorf("create schema %s: %w", name, err)
	}
	return &Schema{dsn: dsn, Name: name}, nil
}

// Drop removes the schema and everything in it.
func (s *Schema) Drop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{s.Name}.Sanitize()+" CASCADE")
	return err
}

// OpenPool connects to dsn, optionally pinned to schema, tagging sessions
// with appName.
func OpenPool(ctx context.Context, dsn, schema, appName string, maxConns int32) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, dsn,
		db.WithMaxConns(maxConns),
		db.WithConnLifetime(30*time.Second, 5*time.Minute),
		db.WithApplicationName(appName),
		db.WithSearchPath(schema),
	)
}

// ApplyMigrations runs the embedded application migrations through pool.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
