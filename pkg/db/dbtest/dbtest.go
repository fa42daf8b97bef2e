// Package dbtest opens throwaway in-memory sqlite databases carrying the full storefront schema.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a client over a fresh migrated database that is closed with the test.
// The pool is pinned to one connection, so code under test must only use the tx inside WithTx.
func Open(t testing.TB) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:storefront_%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(models.All()...))
	return db.NewFromGorm(conn)
}
