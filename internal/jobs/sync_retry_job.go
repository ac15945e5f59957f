package jobs

import (
	"context"
	"time"

	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"go.uber.org/zap"
)

// SyncRetryJobName is the name of the AccuLynx sync retry job
const SyncRetryJobName = "acculynx_sync_retry"

// RetrySweeper re-drives orders whose AccuLynx sync failed.
// This interface allows the job to call the service without importing the service package directly.
type RetrySweeper interface {
	RunSweep(ctx context.Context, now time.Time) (*domain.RetrySweepDTO, error)
}

// SyncRetryJob runs one retry sweep per tick
type SyncRetryJob struct {
	sweeper RetrySweeper
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewSyncRetryJob creates a new sync retry job.
// The timeout bounds one whole sweep.
func NewSyncRetryJob(sweeper RetrySweeper, logger *zap.Logger, timeout time.Duration) *SyncRetryJob {
	return &SyncRetryJob{
		sweeper: sweeper,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Run executes one sweep. This is called by the scheduler according to the cron expression.
func (j *SyncRetryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	sweep, err := j.sweeper.RunSweep(ctx, j.now())
	if err != nil {
		j.logger.Error("sync retry sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if sweep.Candidates > 0 {
		j.logger.Info("sync retry job completed",
			zap.Int("candidates", sweep.Candidates),
			zap.Int("succeeded", sweep.Succeeded),
			zap.Int("manual_review", sweep.ManualReview),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterSyncRetryJob registers the retry sweep with the scheduler.
// If runOnStartup is true, one sweep also runs immediately in a background
// goroutine so it doesn't block API startup.
func RegisterSyncRetryJob(scheduler *Scheduler, sweeper RetrySweeper, logger *zap.Logger, cronExpr string, timeout time.Duration, runOnStartup bool) error {
	job := NewSyncRetryJob(sweeper, logger, timeout)

	if runOnStartup {
		go job.Run()
	}

	return scheduler.AddJob(SyncRetryJobName, cronExpr, job.Run)
}
