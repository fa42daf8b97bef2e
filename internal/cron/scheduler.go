// Package cron runs the storefront's periodic maintenance jobs. Each sweep
// runs under a distributed lock so only one worker replica does the work.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/metrics"
)

const defaultEvery = 24 * time.Hour

// Job is one unit of maintenance work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type SchedulerParams struct {
	Logger  *logger.Logger
	Lock    Lock
	Metrics *metrics.JobMetrics
	// Every defaults to 24h.
	Every time.Duration
}

// Scheduler sweeps its jobs once at start and then every interval.
type Scheduler struct {
	logg    *logger.Logger
	lock    Lock
	metrics *metrics.JobMetrics
	every   time.Duration
	jobs    []Job
}

// SweepReport summarises one sweep.
type SweepReport struct {
	// Skipped is set when another worker held the lock.
	Skipped bool
	Ran     []string
	Failed  []string
}

// NewScheduler keeps jobs in the given order. Nil jobs are dropped so
// optional jobs can be passed unconditionally.
func NewScheduler(p SchedulerParams, jobs ...Job) (*Scheduler, error) {
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	if p.Lock == nil {
		return nil, errors.New("lock required")
	}
	s := &Scheduler{logg: p.Logger, lock: p.Lock, metrics: p.Metrics, every: p.Every}
	if s.every <= 0 {
		s.every = defaultEvery
	}
	for _, job := range jobs {
		if job != nil {
			s.jobs = append(s.jobs, job)
		}
	}
	return s, nil
}

// Jobs returns the job names in run order.
func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

// Run blocks until ctx is cancelled. Sweep errors are logged, never returned.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		report, err := s.Sweep(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "maintenance sweep failed", err)
		case !report.Skipped:
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"ran":    len(report.Ran),
				"failed": report.Failed,
			}), "maintenance sweep finished")
		}

		timer := time.NewTimer(s.every)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Sweep runs every job once while holding the lock. One job failing does not
// stop the ones after it; failures show up in the report. The error is only
// for lock trouble.
func (s *Scheduler) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	if err := ctx.Err(); err != nil {
		return report, err
	}

	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("lock acquire: %w", err)
	}
	if !acquired {
		s.logg.Info(ctx, "maintenance lock held by another worker, skipping sweep")
		report.Skipped = true
		return report, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release maintenance lock", err)
		}
	}()

	for _, job := range s.jobs {
		report.Ran = append(report.Ran, job.Name())
		if !s.runJob(ctx, job) {
			report.Failed = append(report.Failed, job.Name())
		}
	}
	return report, nil
}

func (s *Scheduler) runJob(ctx context.Context, job Job) bool {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(ctx)
	took := time.Since(started)
	s.metrics.Observe(job.Name(), took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		return false
	}
	s.logg.Info(ctx, "job completed")
	return true
}
