package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	mu       sync.Mutex
	calls    []time.Time
	deadline bool
	err      error
}

func (f *fakeSweeper) RunSweep(ctx context.Context, now time.Time) (*domain.RetrySweepDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.deadline = ctx.Deadline()
	f.calls = append(f.calls, now)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RetrySweepDTO{StartedAt: now, Candidates: 1, Succeeded: 1}, nil
}

func (f *fakeSweeper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSyncRetryJob_Run(t *testing.T) {
	sweeper := &fakeSweeper{}
	job := NewSyncRetryJob(sweeper, zap.NewNop(), time.Minute)
	fixed := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	job.Run()

	require.Equal(t, 1, sweeper.callCount())
	assert.Equal(t, fixed, sweeper.calls[0])
	assert.True(t, sweeper.deadline)
}

func TestSyncRetryJob_RunSurvivesError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("database unavailable")}
	job := NewSyncRetryJob(sweeper, zap.NewNop(), time.Minute)

	assert.NotPanics(t, job.Run)
	assert.Equal(t, 1, sweeper.callCount())
}

func TestRegisterSyncRetryJob(t *testing.T) {
	scheduler := NewScheduler(zap.NewNop())
	sweeper := &fakeSweeper{}

	require.NoError(t, RegisterSyncRetryJob(scheduler, sweeper, zap.NewNop(), "0 */5 * * * *", time.Minute, true))
	assert.Equal(t, []string{SyncRetryJobName}, scheduler.GetJobNames())

	assert.Eventually(t, func() bool { return sweeper.callCount() == 1 }, time.Second, 10*time.Millisecond)

	err := RegisterSyncRetryJob(scheduler, sweeper, zap.NewNop(), "0 */5 * * * *", time.Minute, false)
	assert.Error(t, err)
}

func TestScheduler_AddJobInvalidExpression(t *testing.T) {
	scheduler := NewScheduler(zap.NewNop())

	err := scheduler.AddJob("broken", "not a cron", func() {})
	assert.Error(t, err)
	assert.Empty(t, scheduler.GetJobNames())
}

func TestScheduler_RemoveJob(t *testing.T) {
	scheduler := NewScheduler(zap.NewNop())
	require.NoError(t, scheduler.AddJob("tick", "@every 1h", func() {}))

	require.NoError(t, scheduler.RemoveJob("tick"))
	assert.Empty(t, scheduler.GetJobNames())
	assert.Error(t, scheduler.RemoveJob("tick"))
}

func TestScheduler_RunsJobs(t *testing.T) {
	scheduler := NewScheduler(zap.NewNop())
	ran := make(chan struct{}, 1)
	require.NoError(t, scheduler.AddJob("every-second", "* * * * * *", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}
