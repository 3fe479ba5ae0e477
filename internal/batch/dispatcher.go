package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/vidarr/internal/lock"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/observability"
	"github.com/jmylchreest/vidarr/internal/repository"
)

// Dispatcher launches queued jobs up to the running-job limit. It runs on a
// fixed schedule and holds the cross-instance dispatch lock for the
// duration of a pass, so concurrent instances never over-dispatch.
type Dispatcher struct {
	jobs       repository.ConversionJobRepository
	runner     Runner
	locker     lock.Locker
	maxRunning int
	lockTTL    time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(jobs repository.ConversionJobRepository, runner Runner, locker lock.Locker, maxRunning int, lockTTL time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		jobs:       jobs,
		runner:     runner,
		locker:     locker,
		maxRunning: maxRunning,
		lockTTL:    lockTTL,
		logger:     logger.With(slog.String("component", "dispatcher")),
		metrics:    metrics,
	}
}

// RunOnce performs a single dispatch pass. Losing the lock race is normal
// in multi-instance deployments and is not an error.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	release, ok, err := d.locker.TryAcquire(ctx, lock.DispatchLockName, d.lockTTL)
	if err != nil {
		return fmt.Errorf("acquiring dispatch lock: %w", err)
	}
	if !ok {
		d.logger.Debug("dispatch lock held elsewhere, skipping pass")
		return nil
	}
	defer release()

	running, err := d.jobs.CountByStatus(ctx, models.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("counting running jobs: %w", err)
	}

	capacity := int64(d.maxRunning) - running
	if capacity <= 0 {
		return nil
	}

	queued, err := d.jobs.GetByStatus(ctx, models.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("listing queued jobs: %w", err)
	}

	launched := 0
	for _, job := range queued {
		if int64(launched) >= capacity {
			break
		}
		d.launch(ctx, job)
		launched++
	}
	return nil
}

// launch marks a single job running and submits it. The job is persisted as
// RUNNING before submission so a crash between the write and the submit
// leaves a reconcilable record instead of a phantom QUEUED job. A failed
// submit fails only this job; the rest of the pass continues.
func (d *Dispatcher) launch(ctx context.Context, job *models.ConversionJob) {
	job.MarkRunning()
	if err := d.jobs.Update(ctx, job); err != nil {
		d.logger.Error("persisting running state",
			slog.String("external_id", job.ExternalID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := d.runner.Submit(ctx, job); err != nil {
		d.logger.Error("submitting job",
			slog.String("external_id", job.ExternalID),
			slog.String("input", job.InputPath),
			slog.String("error", err.Error()),
		)

		job.MarkFailed(fmt.Sprintf("submit: %v", err))
		if uerr := d.jobs.Update(ctx, job); uerr != nil {
			d.logger.Error("persisting failed state",
				slog.String("external_id", job.ExternalID),
				slog.String("error", uerr.Error()),
			)
		}
		if d.metrics != nil {
			d.metrics.JobsFailed.Inc()
		}
		return
	}

	if d.metrics != nil {
		d.metrics.JobsDispatched.Inc()
	}
	d.logger.Info("job dispatched",
		slog.String("external_id", job.ExternalID),
		slog.String("input", job.InputPath),
	)
}
