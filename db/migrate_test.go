package db

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestMigrationNames_Sorted(t *testing.T) {
	names, err := MigrationNames()
	if err != nil {
		t.Fatalf("migration names: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if names[0] != "0001_init.sql" {
		t.Fatalf("expected 0001_init.sql first, got %s", names[0])
	}
	for i := 1; i < len(names); i++ {
		if names[i] <= names[i-1] {
			t.Fatalf("migrations not sorted: %v", names)
		}
	}
}

func TestNewPool_EmptyConnString(t *testing.T) {
	if _, err := NewPool(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty connection string")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dsn, WithApplicationName("jobpazar-migrate-test"))
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, pool); err != nil {
			t.Fatalf("migrate run %d: %v", i+1, err)
		}
	}

	names, _ := MigrationNames()
	var recorded int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE name = ANY($1)`, names).Scan(&recorded); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if recorded != len(names) {
		t.Fatalf("expected %d recorded migrations, got %d", len(names), recorded)
	}
}
