package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newBufferedQueryLog(slow time.Duration) (gormlogger.Interface, *bytes.Buffer) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Level: zerolog.DebugLevel, Output: &buf})
	return newQueryLog(logg, slow), &buf
}

func statement() (string, int64) { return "SELECT 1", 1 }

func TestQueryLogReportsFailures(t *testing.T) {
	ql, buf := newBufferedQueryLog(time.Second)
	ql.Trace(context.Background(), time.Now(), statement, errors.New("syntax error"))
	require.Contains(t, buf.String(), "query failed")
	require.Contains(t, buf.String(), "SELECT 1")
}

func TestQueryLogIgnoresMissingRows(t *testing.T) {
	ql, buf := newBufferedQueryLog(time.Second)
	ql.Trace(context.Background(), time.Now(), statement, gorm.ErrRecordNotFound)
	require.Empty(t, buf.String())
}

func TestQueryLogFlagsSlowStatements(t *testing.T) {
	ql, buf := newBufferedQueryLog(time.Millisecond)
	ql.Trace(context.Background(), time.Now().Add(-time.Second), statement, nil)
	require.Contains(t, buf.String(), "slow query")

	buf.Reset()
	ql.Trace(context.Background(), time.Now(), statement, nil)
	require.Empty(t, buf.String(), "fast statements stay quiet at the default level")
}

func TestQueryLogSilentMode(t *testing.T) {
	ql, buf := newBufferedQueryLog(time.Millisecond)
	ql.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), statement, errors.New("boom"))
	require.Empty(t, buf.String())
}

func TestNewQueryLogWithoutLogger(t *testing.T) {
	require.Equal(t, gormlogger.Discard, newQueryLog(nil, time.Second))
}
