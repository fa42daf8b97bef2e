package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muxdry/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// queryLog routes gorm's statement tracing into the service logger. Only
// failed and slow statements are reported; a missing row is not a failure.
type queryLog struct {
	logg  *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLog(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLog{logg: logg, level: gormlogger.Warn, slow: slow}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLog) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
	}
}

func (q *queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow

	switch {
	case failed && q.level >= gormlogger.Error:
		q.logg.Error(q.fields(ctx, fc, elapsed), "query failed", err)
	case slow && q.level >= gormlogger.Warn:
		q.logg.Warn(q.fields(ctx, fc, elapsed), "slow query")
	case q.level >= gormlogger.Info:
		q.logg.Debug(q.fields(ctx, fc, elapsed), "query")
	}
}

func (q *queryLog) fields(ctx context.Context, fc func() (string, int64), elapsed time.Duration) context.Context {
	stmt, rows := fc()
	return q.logg.WithFields(ctx, map[string]any{
		"sql":         stmt,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
}
