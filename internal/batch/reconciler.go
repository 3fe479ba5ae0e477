package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/jmylchreest/vidarr/internal/lock"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/observability"
	"github.com/jmylchreest/vidarr/internal/repository"
)

// OutputReadyFunc is called with the finished output path after a
// successful conversion, so ingestion can index the new file.
type OutputReadyFunc func(ctx context.Context, outputPath string)

// Reconciler aligns persisted job state with what the runner reports. It is
// the only component that moves jobs into a terminal state from RUNNING,
// and it never moves a job backwards.
type Reconciler struct {
	jobs       repository.ConversionJobRepository
	media      repository.MediaFileRepository
	runner     Runner
	locker     lock.Locker
	lockTTL    time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
	outputFunc OutputReadyFunc
}

// NewReconciler creates a reconciler. outputFunc may be nil.
func NewReconciler(jobs repository.ConversionJobRepository, media repository.MediaFileRepository, runner Runner, locker lock.Locker, lockTTL time.Duration, logger *slog.Logger, metrics *observability.Metrics, outputFunc OutputReadyFunc) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		jobs:       jobs,
		media:      media,
		runner:     runner,
		locker:     locker,
		lockTTL:    lockTTL,
		logger:     logger.With(slog.String("component", "reconciler")),
		metrics:    metrics,
		outputFunc: outputFunc,
	}
}

// RunOnce performs a single reconcile pass under the cross-instance lock.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	release, ok, err := r.locker.TryAcquire(ctx, lock.ReconcileLockName, r.lockTTL)
	if err != nil {
		return fmt.Errorf("acquiring reconcile lock: %w", err)
	}
	if !ok {
		r.logger.Debug("reconcile lock held elsewhere, skipping pass")
		return nil
	}
	defer release()

	jobs, err := r.jobs.GetByStatuses(ctx, models.JobStatusQueued, models.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("listing active jobs: %w", err)
	}

	for _, job := range jobs {
		r.reconcileJob(ctx, job)
	}
	return nil
}

// reconcileJob handles one job; anomalies are logged and skipped so the
// next pass gets another look instead of the store guessing an outcome.
func (r *Reconciler) reconcileJob(ctx context.Context, job *models.ConversionJob) {
	log := r.logger.With(
		slog.String("external_id", job.ExternalID),
		slog.String("input", job.InputPath),
	)

	status, err := r.runner.Status(ctx, job.ExternalID)
	if err != nil {
		log.Warn("querying runner", slog.String("error", err.Error()))
		return
	}

	switch status {
	case StatusNotFound:
		// Queued jobs have not been submitted yet, so absence is
		// expected; a running job the runner lost is an anomaly worth a
		// warning, but the store still never invents an outcome for it.
		if job.Status == models.JobStatusRunning {
			log.Warn("runner has no record of running job")
		}

	case StatusRunning:
		r.updateETA(ctx, job)

	case StatusSucceeded:
		r.completeSucceeded(ctx, job, log)

	case StatusFailed:
		r.completeFailed(ctx, job, log)
	}
}

func (r *Reconciler) completeSucceeded(ctx context.Context, job *models.ConversionJob, log *slog.Logger) {
	if err := r.runner.Delete(ctx, job.ExternalID); err != nil {
		log.Warn("deleting runner job", slog.String("error", err.Error()))
		// Keep going: losing runner bookkeeping must not strand the job.
	}

	// The converted output replaces the original.
	if err := os.Remove(job.InputPath); err != nil && !os.IsNotExist(err) {
		log.Warn("removing converted input", slog.String("error", err.Error()))
	}

	job.MarkSucceeded()
	if err := r.jobs.Update(ctx, job); err != nil {
		log.Error("persisting succeeded state", slog.String("error", err.Error()))
		return
	}

	if r.metrics != nil {
		r.metrics.JobsSucceeded.Inc()
		r.metrics.JobETASeconds.DeleteLabelValues(job.ExternalID)
	}
	log.Info("conversion succeeded", slog.String("output", job.OutputPath))

	if r.outputFunc != nil {
		r.outputFunc(ctx, job.OutputPath)
	}
}

func (r *Reconciler) completeFailed(ctx context.Context, job *models.ConversionJob, log *slog.Logger) {
	lastError := "conversion failed"
	if tail, err := r.runner.TailLog(ctx, job.ExternalID); err == nil && tail != "" {
		lastError = lastLine(tail)
	}

	if err := r.runner.Delete(ctx, job.ExternalID); err != nil {
		log.Warn("deleting runner job", slog.String("error", err.Error()))
	}

	// A failed encode may leave a partial output behind.
	if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
		log.Warn("removing partial output", slog.String("error", err.Error()))
	}

	job.MarkFailed(lastError)
	if err := r.jobs.Update(ctx, job); err != nil {
		log.Error("persisting failed state", slog.String("error", err.Error()))
		return
	}

	if r.metrics != nil {
		r.metrics.JobsFailed.Inc()
		r.metrics.JobETASeconds.DeleteLabelValues(job.ExternalID)
	}
	log.Warn("conversion failed", slog.String("last_error", lastError))
}

// FFmpeg progress lines look like:
//
//	frame= 1234 fps= 48 q=28.0 size=  10240KiB time=00:05:12.40 bitrate=... speed=1.92x
var (
	progressTimeRe  = regexp.MustCompile(`time=(\d+):(\d+):(\d+)`)
	progressSpeedRe = regexp.MustCompile(`speed=\s*([\d.]+)x`)
)

// updateETA scrapes the encoder log for progress and publishes a remaining
// time estimate. Everything here is best effort: a missing log, unknown
// duration, or unparsable line just leaves the gauge alone.
func (r *Reconciler) updateETA(ctx context.Context, job *models.ConversionJob) {
	if r.metrics == nil || r.media == nil {
		return
	}

	file, err := r.media.GetByPath(ctx, job.InputPath)
	if err != nil || file == nil || file.DurationSeconds <= 0 {
		return
	}

	tail, err := r.runner.TailLog(ctx, job.ExternalID)
	if err != nil || tail == "" {
		return
	}

	position, speed, ok := parseProgress(tail)
	if !ok || speed <= 0 {
		return
	}

	remaining := (file.DurationSeconds - position) / speed
	if remaining < 0 {
		remaining = 0
	}
	r.metrics.JobETASeconds.WithLabelValues(job.ExternalID).Set(remaining)
}

// parseProgress extracts the last reported position and speed from an
// encoder log tail.
func parseProgress(tail string) (positionSeconds, speed float64, ok bool) {
	timeMatches := progressTimeRe.FindAllStringSubmatch(tail, -1)
	speedMatches := progressSpeedRe.FindAllStringSubmatch(tail, -1)
	if len(timeMatches) == 0 || len(speedMatches) == 0 {
		return 0, 0, false
	}

	last := timeMatches[len(timeMatches)-1]
	hours, _ := strconv.Atoi(last[1])
	mins, _ := strconv.Atoi(last[2])
	secs, _ := strconv.Atoi(last[3])
	positionSeconds = float64(hours*3600 + mins*60 + secs)

	speed, err := strconv.ParseFloat(speedMatches[len(speedMatches)-1][1], 64)
	if err != nil {
		return 0, 0, false
	}
	return positionSeconds, speed, true
}

func lastLine(s string) string {
	lines := regexp.MustCompile(`\r?\n`).Split(s, -1)
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] != "" {
			return lines[i]
		}
	}
	return s
}
