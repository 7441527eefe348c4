// Package postgrestest opens the integration test database. Tests that use
// it are skipped when PostgreSQL is not reachable.
package postgrestest

import (
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/omnipos-catalog-service/internal/pkg/postgres"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Open connects to the test database, applies migrations and empties the
// catalog tables. The connection is closed when the test finishes.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            envOr("POSTGRES_HOST", "localhost"),
		Port:            envOr("POSTGRES_PORT", "5433"),
		User:            envOr("POSTGRES_USER", "omnipos"),
		Password:        envOr("POSTGRES_PASSWORD", "omnipos"),
		DBName:          envOr("POSTGRES_DB", "omnipos_catalog_test"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := postgres.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	Truncate(t, db)
	t.Cleanup(func() {
		Truncate(t, db)
		db.Close()
	})
	return db
}

// Truncate removes every catalog row.
func Truncate(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE category_product, products, categories`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
