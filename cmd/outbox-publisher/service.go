package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/metrics"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"gorm.io/gorm"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// broker is implemented by the kafka and pubsub adapters.
type broker interface {
	Ping(context.Context) error
	Publish(context.Context, outbox.Message) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*outbox.ResolvedEvent, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Broker     broker
	BrokerName string
	Repository outboxRepository
	Registry   registryResolver
	Metrics    *metrics.OutboxMetrics
}

// Service drains outbox_events into the configured broker. Rows are claimed
// with SKIP LOCKED so several publishers can run side by side.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	broker       broker
	brokerName   string
	registry     registryResolver
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	for _, dep := range []struct {
		missing bool
		name    string
	}{
		{p.Config == nil, "config"},
		{p.Logger == nil, "logger"},
		{p.DB == nil, "database client"},
		{p.Broker == nil, "broker"},
		{p.Repository == nil, "outbox repository"},
		{p.Registry == nil, "event registry"},
	} {
		if dep.missing {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	cfg := p.Config.Outbox
	name := p.BrokerName
	if name == "" {
		name = "broker"
	}
	return &Service{
		logg:         p.Logger,
		db:           p.DB,
		repo:         p.Repository,
		broker:       p.Broker,
		brokerName:   name,
		registry:     p.Registry,
		metrics:      p.Metrics,
		batchSize:    orDefault(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  orDefault(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(orDefault(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run polls until ctx is cancelled. An empty poll waits one interval; a
// failed batch backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, s.brokerName: s.broker.Ping} {
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	backoff := s.pollInterval
	for ctx.Err() == nil {
		processed, err := s.processBatch(ctx)

		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = backoff
		case processed:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
			wait = s.pollInterval
		}
		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// outcome is what happened to one row in a batch.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeTerminal
)

// processBatch publishes one batch inside a transaction. A failing row never
// stops the rows after it; only a failure to record an outcome aborts the batch.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveBatch(time.Since(started)) }()

	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0

		for _, event := range events {
			fields := s.eventFields(event)
			result, reason, cause := s.deliver(ctx, event, fields)
			if err := s.record(ctx, tx, event, result, reason, cause, fields); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// deliver resolves and publishes one row. It never returns an error of its
// own; the cause is reported alongside the outcome.
func (s *Service) deliver(ctx context.Context, event models.OutboxEvent, fields map[string]any) (outcome, string, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return outcomeTerminal, "non_retryable", err
	}
	fields["topic"] = resolved.Message.Topic
	fields["event_id"] = resolved.Envelope.EventID

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	err = s.broker.Publish(publishCtx, resolved.Message)

	var permanent outbox.NonRetryableError
	switch {
	case err == nil:
		return outcomePublished, "", nil
	case errors.As(err, &permanent):
		return outcomeTerminal, "non_retryable", err
	case event.AttemptCount+1 >= s.maxAttempts:
		fields["attempt_count"] = event.AttemptCount + 1
		return outcomeTerminal, "max_attempts", fmt.Errorf("max publish attempts reached: %w", err)
	default:
		fields["attempt_count"] = event.AttemptCount + 1
		return outcomeRetry, "", err
	}
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, result outcome, reason string, cause error, fields map[string]any) error {
	eventType := string(event.EventType)
	switch result {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.Published(eventType)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")

	case outcomeRetry:
		fields["error"] = cause.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, cause); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.metrics.Failed(eventType)

	case outcomeTerminal:
		// Parked at the attempt ceiling so the row is never fetched again.
		fields["error"] = cause.Error()
		fields["terminal_reason"] = reason
		s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event will not be retried")
		if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		s.metrics.DeadLettered(eventType)
	}
	return nil
}

func (s *Service) eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"broker":         s.brokerName,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
