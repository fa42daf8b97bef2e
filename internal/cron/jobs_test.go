package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutboxRepo struct {
	cutoff      time.Time
	deleteErr   error
	dead        []models.OutboxEvent
	maxAttempts int
	limit       int
}

func (f *fakeOutboxRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return 4, nil
}

func (f *fakeOutboxRepo) ListDead(maxAttempts, limit int) ([]models.OutboxEvent, error) {
	f.maxAttempts = maxAttempts
	f.limit = limit
	return f.dead, nil
}

func TestOutboxRetentionJobUsesCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        testLogger(),
		DB:            passthroughTx{},
		Repository:    repo,
		RetentionDays: 7,
	})
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, now.Add(-7*24*time.Hour), repo.cutoff)
}

func TestOutboxRetentionJobDefaultsAndErrors(t *testing.T) {
	repo := &fakeOutboxRepo{deleteErr: errors.New("boom")}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: repo,
	})
	require.NoError(t, err)
	require.Equal(t, defaultOutboxRetentionDays*24*time.Hour, job.retention)
	require.Error(t, job.Run(context.Background()))
}

func TestDeadLetterAuditJobPassesCeiling(t *testing.T) {
	msg := "broker rejected payload"
	repo := &fakeOutboxRepo{dead: []models.OutboxEvent{{
		ID:          uuid.New(),
		EventType:   enums.EventOrderCreated,
		AggregateID: uuid.New(),
		LastError:   &msg,
	}}}
	job, err := NewDeadLetterAuditJob(DeadLetterAuditJobParams{
		Logger:      testLogger(),
		Repository:  repo,
		MaxAttempts: 10,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 10, repo.maxAttempts)
	require.Equal(t, defaultDeadLetterScanLimit, repo.limit)

	_, err = NewDeadLetterAuditJob(DeadLetterAuditJobParams{Logger: testLogger(), Repository: repo})
	require.Error(t, err)
}
