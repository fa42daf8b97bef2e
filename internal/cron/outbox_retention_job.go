package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muxdry/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

const defaultOutboxRetentionDays = 30

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxPruner
	RetentionDays int
}

// OutboxRetentionJob deletes outbox rows that were published more than
// RetentionDays ago. Undelivered rows stay for inspection.
type OutboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxPruner
	retention time.Duration
	now       func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (*OutboxRetentionJob, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	return &OutboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: time.Duration(days) * 24 * time.Hour,
		now:       time.Now,
	}, nil
}

func (j *OutboxRetentionJob) Name() string { return "outbox-retention" }

func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("prune published outbox rows: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "outbox retention complete")
	return nil
}
