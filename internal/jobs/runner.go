package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/observability/logger"
	"github.com/smallbiznis/workforce/internal/observability/metrics"
)

// retryBackoff returns the sleep before the given retry attempt. It is a
// variable so tests can shorten it.
var retryBackoff = func(attempt int) time.Duration {
	backoff := time.Duration(attempt) * 2 * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// execute runs a job to completion, retrying per its MaxAttempts and
// recording state transitions on the run row. The row update is best
// effort; losing it never fails the job itself.
func execute(ctx context.Context, gdb *gorm.DB, job Job, runID int64) error {
	log := logger.FromContext(ctx).With(
		zap.String("job", job.Name),
		zap.String("queue", job.Queue),
		zap.Int64("run_id", runID),
	)
	m := metrics.Jobs()

	attempts := job.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		markRunning(ctx, gdb, runID, attempt)
		m.IncJobRun(job.Name, job.Queue)

		runCtx := ctx
		cancel := func() {}
		if job.Timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		}

		start := time.Now()
		err := job.Fn(runCtx)
		cancel()
		m.ObserveJobDuration(job.Name, time.Since(start))

		if err == nil {
			markFinished(ctx, gdb, runID, RunStatusSucceeded, "")
			log.Info("job succeeded", zap.Int("attempt", attempt), zap.Duration("took", time.Since(start)))
			return nil
		}

		lastErr = err
		m.IncJobError(job.Name, err)
		if errors.Is(err, context.DeadlineExceeded) {
			m.IncJobTimeout(job.Name)
		}
		log.Warn("job attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if attempt < attempts {
			m.IncJobRetry(job.Name)
			select {
			case <-ctx.Done():
				markFinished(ctx, gdb, runID, RunStatusFailed, ctx.Err().Error())
				return ctx.Err()
			case <-time.After(retryBackoff(attempt)):
			}
		}
	}

	m.IncJobFailed(job.Name, job.Queue)
	markFinished(ctx, gdb, runID, RunStatusFailed, lastErr.Error())
	log.Error("job failed permanently", zap.Int("attempts", attempts), zap.Error(lastErr))
	return lastErr
}

func markRunning(ctx context.Context, gdb *gorm.DB, runID int64, attempt int) {
	now := time.Now().UTC()
	// Run bookkeeping survives cancellation of the job itself.
	err := gdb.WithContext(context.WithoutCancel(ctx)).Model(&Run{}).Where("id = ?", runID).Updates(map[string]any{
		"status":     RunStatusRunning,
		"attempt":    attempt,
		"started_at": now,
	}).Error
	if err != nil {
		logger.FromContext(ctx).Warn("failed to mark job run running",
			zap.Int64("run_id", runID), zap.Error(err))
	}
}

func markFinished(ctx context.Context, gdb *gorm.DB, runID int64, status, errMsg string) {
	now := time.Now().UTC()
	// Run bookkeeping survives cancellation of the job itself.
	err := gdb.WithContext(context.WithoutCancel(ctx)).Model(&Run{}).Where("id = ?", runID).Updates(map[string]any{
		"status":      status,
		"error":       errMsg,
		"finished_at": now,
	}).Error
	if err != nil {
		logger.FromContext(ctx).Warn("failed to mark job run finished",
			zap.Int64("run_id", runID), zap.Error(err))
	}
}
