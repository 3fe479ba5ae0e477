package batch

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmylchreest/vidarr/internal/ffmpeg"
	"github.com/jmylchreest/vidarr/internal/models"
)

// ExecRunner runs conversion jobs as in-process FFmpeg children. It is the
// single-node deployment's runner; the dispatcher and reconciler treat it
// exactly like a remote controller.
type ExecRunner struct {
	ffmpegPath string
	logger     *slog.Logger

	mu   sync.Mutex
	jobs map[string]*execJob
}

type execJob struct {
	cmd    *ffmpeg.Command
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner creates an in-process runner using the given ffmpeg binary.
func NewExecRunner(ffmpegPath string, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{
		ffmpegPath: ffmpegPath,
		logger:     logger.With(slog.String("component", "exec-runner")),
		jobs:       make(map[string]*execJob),
	}
}

// Submit implements Runner. The conversion runs on its own goroutine with a
// lifecycle independent of the submitting request.
func (r *ExecRunner) Submit(_ context.Context, job *models.ConversionJob) error {
	cmd, err := ffmpeg.ConvertCommand(r.ffmpegPath, job.InputPath, job.OutputPath, job.Preset)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.jobs[job.ExternalID]; exists {
		r.mu.Unlock()
		// Deterministic ids make duplicate submission a no-op.
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	ej := &execJob{
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.jobs[job.ExternalID] = ej
	r.mu.Unlock()

	go func() {
		defer close(ej.done)
		defer cancel()

		ej.err = cmd.Run(runCtx)
		if ej.err != nil {
			r.logger.Warn("conversion failed",
				slog.String("external_id", job.ExternalID),
				slog.String("input", job.InputPath),
				slog.String("error", ej.err.Error()),
			)
		}
	}()

	return nil
}

// Status implements Runner.
func (r *ExecRunner) Status(_ context.Context, externalID string) (RunnerStatus, error) {
	r.mu.Lock()
	ej, ok := r.jobs[externalID]
	r.mu.Unlock()

	if !ok {
		return StatusNotFound, nil
	}

	select {
	case <-ej.done:
		if ej.err != nil {
			return StatusFailed, nil
		}
		return StatusSucceeded, nil
	default:
		return StatusRunning, nil
	}
}

// Delete implements Runner. A still-running job is cancelled first.
func (r *ExecRunner) Delete(_ context.Context, externalID string) error {
	r.mu.Lock()
	ej, ok := r.jobs[externalID]
	if ok {
		delete(r.jobs, externalID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	ej.cancel()
	<-ej.done
	return nil
}

// TailLog implements Runner, returning the recent encoder stderr lines.
func (r *ExecRunner) TailLog(_ context.Context, externalID string) (string, error) {
	r.mu.Lock()
	ej, ok := r.jobs[externalID]
	r.mu.Unlock()

	if !ok {
		return "", nil
	}
	return strings.Join(ej.cmd.StderrLines(), "\n"), nil
}

// Shutdown cancels every tracked job.
func (r *ExecRunner) Shutdown() {
	r.mu.Lock()
	jobs := make([]*execJob, 0, len(r.jobs))
	for _, ej := range r.jobs {
		jobs = append(jobs, ej)
	}
	r.mu.Unlock()

	for _, ej := range jobs {
		ej.cancel()
		<-ej.done
	}
}
