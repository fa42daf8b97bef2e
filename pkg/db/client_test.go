package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:db_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	conn := newTestDB(t)
	client := NewFromGorm(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))

	var count int64
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	conn := newTestDB(t)
	client := NewFromGorm(conn)

	require.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicky"}).Error; err != nil {
				return err
			}
			panic("kaboom")
		})
	})

	var count int64
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestPingAndDialect(t *testing.T) {
	client := NewFromGorm(newTestDB(t))
	require.NoError(t, client.Ping(context.Background()))
	require.Equal(t, DriverSQLite, client.Dialect())
}

func TestForUpdateIsNoopOnSQLite(t *testing.T) {
	conn := newTestDB(t)
	require.NoError(t, conn.Create(&testModel{Name: "locked"}).Error)

	var row testModel
	require.NoError(t, ForUpdate(conn).First(&row, "name = ?", "locked").Error)
	require.NoError(t, SkipLocked(conn).First(&row, "name = ?", "locked").Error)
}

func TestIsUniqueViolation(t *testing.T) {
	conn := newTestDB(t)
	require.NoError(t, conn.Create(&testModel{Name: "dup"}).Error)
	err := conn.Create(&testModel{Name: "dup"}).Error
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err, ""))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_cart_items_cart_product"}
	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgErr), "ux_cart_items_cart_product"))
	require.False(t, IsUniqueViolation(pgErr, "ux_other"))
	require.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
	require.False(t, IsUniqueViolation(nil, ""))
}

func TestIsNotFound(t *testing.T) {
	conn := newTestDB(t)
	var row testModel
	err := conn.First(&row, "name = ?", "missing").Error
	require.True(t, IsNotFound(err))
	require.False(t, IsNotFound(errors.New("other")))
}
