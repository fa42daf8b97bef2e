package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

const defaultDeadLetterScanLimit = 100

type deadLetterLister interface {
	ListDead(maxAttempts, limit int) ([]models.OutboxEvent, error)
}

type DeadLetterAuditJobParams struct {
	Logger      *logger.Logger
	Repository  deadLetterLister
	MaxAttempts int
	Limit       int
}

// DeadLetterAuditJob reports outbox rows the publisher gave up on, one warning
// per row, so they surface in log based alerting.
type DeadLetterAuditJob struct {
	logg        *logger.Logger
	repo        deadLetterLister
	maxAttempts int
	limit       int
}

func NewDeadLetterAuditJob(params DeadLetterAuditJobParams) (*DeadLetterAuditJob, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	if params.MaxAttempts <= 0 {
		return nil, errors.New("max attempts must be positive")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultDeadLetterScanLimit
	}
	return &DeadLetterAuditJob{
		logg:        params.Logger,
		repo:        params.Repository,
		maxAttempts: params.MaxAttempts,
		limit:       limit,
	}, nil
}

func (j *DeadLetterAuditJob) Name() string { return "outbox-dead-letter-audit" }

func (j *DeadLetterAuditJob) Run(ctx context.Context) error {
	rows, err := j.repo.ListDead(j.maxAttempts, j.limit)
	if err != nil {
		return fmt.Errorf("list dead outbox rows: %w", err)
	}
	for _, row := range rows {
		fields := map[string]any{
			"outbox_id":    row.ID.String(),
			"event_type":   row.EventType,
			"aggregate_id": row.AggregateID.String(),
			"created_at":   row.CreatedAt,
		}
		if row.LastError != nil {
			fields["last_error"] = *row.LastError
		}
		j.logg.Warn(j.logg.WithFields(ctx, fields), "outbox event dead-lettered")
	}
	j.logg.Info(j.logg.WithField(ctx, "dead_rows", len(rows)), "dead letter audit complete")
	return nil
}
