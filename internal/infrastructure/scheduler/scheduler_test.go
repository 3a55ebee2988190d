package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-journey/pkg/logger"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func newScheduler() *Scheduler {
	return NewScheduler(SchedulerConfig{Logger: logger.Nop(), JobTimeout: time.Second})
}

func TestScheduler_Register(t *testing.T) {
	s := newScheduler()

	assert.ErrorIs(t, s.Register(nil, time.Minute), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, 0), ErrInvalidInterval)

	require.NoError(t, s.Register(&countingJob{name: "a"}, time.Minute))
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, time.Minute), ErrJobAlreadyExists)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, time.Minute, jobs[0].Interval)
}

func TestScheduler_RunNow(t *testing.T) {
	s := newScheduler()
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	require.NoError(t, s.Register(ok, time.Hour))
	require.NoError(t, s.Register(bad, time.Hour))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = s.RunNow(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.EqualError(t, res.Error, "boom")

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	snap := s.Stats().Metrics
	assert.EqualValues(t, 2, snap.TotalExecutions)
	assert.EqualValues(t, 1, snap.TotalFailures)
	assert.InDelta(t, 0.5, snap.SuccessRate, 0.001)

	stats := s.Stats()
	require.Len(t, stats.Jobs, 2)
	assert.Equal(t, "bad", stats.Jobs[0].Name)
	assert.Equal(t, "boom", stats.Jobs[0].LastError)
	assert.EqualValues(t, 1, stats.Jobs[0].FailCount)
	assert.Equal(t, "ok", stats.Jobs[1].Name)
	assert.Empty(t, stats.Jobs[1].LastError)
}

func TestScheduler_StartRunsOnInterval(t *testing.T) {
	s := newScheduler()
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, 50*time.Millisecond))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	assert.False(t, s.IsRunning())
}
