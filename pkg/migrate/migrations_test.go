package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
	require.NoError(t, ValidateDir(""))
}

func TestMigrationsCreateExpectedSchema(t *testing.T) {
	entries, err := embedded.ReadDir(embeddedDir)
	require.NoError(t, err)

	var all strings.Builder
	for _, e := range entries {
		data, err := embedded.ReadFile(embeddedDir + "/" + e.Name())
		require.NoError(t, err)
		all.Write(data)
	}
	content := all.String()

	checks := []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CREATE TABLE IF NOT EXISTS categories",
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS product_favorites",
		"CREATE TABLE IF NOT EXISTS carts",
		"CREATE TABLE IF NOT EXISTS cart_items",
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CREATE TABLE IF NOT EXISTS order_messages",
		"CREATE TABLE IF NOT EXISTS reviews",
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_reviews_product_user",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_cart_product",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number",
		"CONSTRAINT chk_orders_total CHECK (total = subtotal + shipping + tax)",
		"CHECK (rating BETWEEN 1 AND 5)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestValidateDirRejectsDuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), body, 0o644))
	err := ValidateDir(dir)
	require.ErrorContains(t, err, "already used")
}

func TestValidateDirRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_only_up.sql"), []byte("-- +goose Up\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, "Add Order Tracking!", at)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260304050607_add_order_tracking.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigrationAt(dir, "Add Order Tracking!", at)
	require.Error(t, err)

	_, err = createSQLMigrationAt(dir, "!!!", at)
	require.Error(t, err)
}

func TestMigrationsFSDefaultsToEmbedded(t *testing.T) {
	fsys, err := migrationsFS("")
	require.NoError(t, err)
	matches, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	require.Contains(t, matches, "20260301090000_create_users_table.sql")
}

func TestOpenRequiresDB(t *testing.T) {
	_, err := Open(nil, "")
	require.Error(t, err)
}
