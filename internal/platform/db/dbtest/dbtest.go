// Package dbtest opens the Postgres database named by TEST_DATABASE_URL for
// repository tests, migrated and emptied. Tests sharing the database must
// not run in parallel across packages (go test -p 1).
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diaguide/diaguide/internal/platform/db"
	"github.com/diaguide/diaguide/migrations"
)

const EnvURL = "TEST_DATABASE_URL"

// tables in truncation order; CASCADE handles the rest.
var tables = []string{
	"notification",
	"appointment_request",
	"assignment_request",
	"medecin_language",
	"patient",
	"medecin",
	"language",
	"users",
}

// Open skips the test when TEST_DATABASE_URL is unset. The pool is closed
// by t.Cleanup.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skipf("%s not set", EnvURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, url, 4, 1)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range tables {
		if _, err := pool.Exec(ctx, `TRUNCATE `+table+` CASCADE`); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return pool
}
