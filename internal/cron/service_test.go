package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquired++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
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

type clock struct{ at time.Time }

func (c *clock) now() time.Time { return c.at }

func TestRunCycleRunsAllDueJobsAndCombinesFailures(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	alsoFailing := &testJob{name: "also-failing", err: errors.New("bang")}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry().Schedule(failing, time.Hour).Schedule(ok, time.Hour).Schedule(alsoFailing, time.Hour),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	err = svc.runCycle(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, alsoFailing.runs)
	assert.Equal(t, 1, lock.released)
}

func TestRunCycleOnlyTakesLockWhenSomethingIsDue(t *testing.T) {
	c := &clock{at: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	ttl := &testJob{name: "request-ttl"}
	export := &testJob{name: "reward-export"}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry().Schedule(ttl, 15*time.Minute).Schedule(export, time.Hour),
		Lock:     lock,
		Now:      c.now,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	c.at = c.at.Add(5 * time.Minute)
	require.NoError(t, svc.runCycle(context.Background()))
	c.at = c.at.Add(10 * time.Minute)
	require.NoError(t, svc.runCycle(context.Background()))

	assert.Equal(t, 2, ttl.runs)
	assert.Equal(t, 1, export.runs)
	assert.Equal(t, 2, lock.acquired)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry().Schedule(job, time.Hour),
		Lock:     &fakeLock{held: true},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Zero(t, job.runs)
	assertSeries(t, reg, "cron_cycles_skipped_total", 1)
}

func TestRunCycleRecordsJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry().Schedule(&testJob{name: "reward-export"}, time.Hour),
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assertSeries(t, reg, "cron_job_runs_total", 1)
	assertSeries(t, reg, "cron_job_last_success_timestamp_seconds", 1)
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	assert.Error(t, err)
}

func assertSeries(t *testing.T, reg *prometheus.Registry, name string, want int) {
	t.Helper()
	got, err := testutil.GatherAndCount(reg, name)
	require.NoError(t, err)
	assert.Equal(t, want, got, name)
}
