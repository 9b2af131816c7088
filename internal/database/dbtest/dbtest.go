// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/01moynul/tg-storefront/internal/database"
)

// New returns a migrated in-memory SQLite database that is closed when the
// test ends.
func New(t testing.TB) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

// SeedProduct inserts a product row directly.
func SeedProduct(t testing.TB, db *database.DB, sku, title string, price int64, currency string, active bool) {
	t.Helper()

	_, err := db.ExecContext(context.Background(),
		"INSERT INTO products (sku, title, price, currency, is_active) VALUES (?, ?, ?, ?, ?)",
		sku, title, price, currency, active)
	require.NoError(t, err)
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *database.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
