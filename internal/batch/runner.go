// Package batch implements offline library conversion: enqueueing jobs for
// files that need a permanent re-encode, dispatching them to a runner, and
// reconciling persisted job state against what the runner reports.
package batch

import (
	"context"

	"github.com/jmylchreest/vidarr/internal/models"
)

// RunnerStatus is the externally observed state of a submitted job.
type RunnerStatus string

const (
	// StatusNotFound means the runner has no job under that id. The
	// reconciler logs and skips: it never guesses an outcome.
	StatusNotFound RunnerStatus = "not_found"

	StatusRunning   RunnerStatus = "running"
	StatusSucceeded RunnerStatus = "succeeded"
	StatusFailed    RunnerStatus = "failed"
)

// Runner executes conversion jobs outside the job store's control. The
// store only ever observes runner state through this interface; it never
// shares memory with the execution environment.
type Runner interface {
	// Submit starts the job identified by its ExternalID.
	Submit(ctx context.Context, job *models.ConversionJob) error

	// Status reports the job's current state.
	Status(ctx context.Context, externalID string) (RunnerStatus, error)

	// Delete removes a finished job and its runner-side bookkeeping.
	Delete(ctx context.Context, externalID string) error

	// TailLog returns the tail of the job's encoder log. Best effort:
	// an empty string with no error is a valid answer.
	TailLog(ctx context.Context, externalID string) (string, error)
}
