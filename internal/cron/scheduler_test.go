package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/stretchr/testify/require"
)

type fakeLock struct {
	held     bool
	err      error
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "maintenance-test", Output: io.Discard})
}

func TestSweepRunsEveryJobEvenOnFailure(t *testing.T) {
	failing := &testJob{name: "fail", err: errors.New("boom")}
	ok := &testJob{name: "ok"}
	lock := &fakeLock{}
	scheduler, err := NewScheduler(SchedulerParams{Logger: testLogger(), Lock: lock}, failing, ok)
	require.NoError(t, err)

	report, err := scheduler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"fail", "ok"}, report.Ran)
	require.Equal(t, []string{"fail"}, report.Failed)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, ok.runs)
	require.False(t, lock.held)
	require.Equal(t, 1, lock.releases)
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	scheduler, err := NewScheduler(SchedulerParams{Logger: testLogger(), Lock: &fakeLock{held: true}}, job)
	require.NoError(t, err)

	report, err := scheduler.Sweep(context.Background())
	require.NoError(t, err)
	require.True(t, report.Skipped)
	require.Zero(t, job.runs)
}

func TestSweepReportsLockFailure(t *testing.T) {
	job := &testJob{name: "ok"}
	scheduler, err := NewScheduler(SchedulerParams{Logger: testLogger(), Lock: &fakeLock{err: errors.New("redis down")}}, job)
	require.NoError(t, err)

	_, err = scheduler.Sweep(context.Background())
	require.ErrorContains(t, err, "redis down")
	require.Zero(t, job.runs)
}

func TestRunSweepsOnceThenStopsOnCancel(t *testing.T) {
	job := &testJob{name: "ok"}
	scheduler, err := NewScheduler(SchedulerParams{Logger: testLogger(), Lock: &fakeLock{}}, job)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := scheduler.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("a cancelled context must not start a sweep, got %d runs", job.runs)
	}
}

func TestNewSchedulerDropsNilJobs(t *testing.T) {
	a := &testJob{name: "a"}
	b := &testJob{name: "b"}
	scheduler, err := NewScheduler(SchedulerParams{Logger: testLogger(), Lock: &fakeLock{}}, a, nil, b)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, scheduler.Jobs())

	_, err = NewScheduler(SchedulerParams{Logger: testLogger()})
	require.Error(t, err)
}
