package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/repository"
)

// convertibleExtensions are container formats that commonly defeat
// browsers; files with these extensions get queued for a permanent
// re-encode on ingest.
var convertibleExtensions = map[string]bool{
	"avi":  true,
	"mkv":  true,
	"wmv":  true,
	"flv":  true,
	"mpg":  true,
	"mpeg": true,
	"mov":  true,
}

// Enqueuer creates conversion jobs for newly ingested files.
type Enqueuer struct {
	jobs    repository.ConversionJobRepository
	enabled bool
	preset  string
	logger  *slog.Logger
}

// NewEnqueuer creates an enqueuer. When enabled is false MaybeEnqueue is a
// no-op, so callers never need to guard the call.
func NewEnqueuer(jobs repository.ConversionJobRepository, enabled bool, preset string, logger *slog.Logger) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{
		jobs:    jobs,
		enabled: enabled,
		preset:  preset,
		logger:  logger.With(slog.String("component", "enqueuer")),
	}
}

// IsConvertible reports whether path's extension marks it for conversion.
func IsConvertible(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return convertibleExtensions[ext]
}

// OutputPathFor derives the conversion target path: same location, same
// base name, target container extension.
func OutputPathFor(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".mp4"
}

// MaybeEnqueue creates a queued conversion job for path when it is a
// regular file with a convertible extension and no active job already
// covers it. It returns the created job, or nil when nothing was enqueued.
func (e *Enqueuer) MaybeEnqueue(ctx context.Context, path string) (*models.ConversionJob, error) {
	if !e.enabled || !IsConvertible(path) {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("checking file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}

	// One active job per input path: re-delivered events and re-scans
	// must not double-convert.
	existing, err := e.jobs.FindActiveByInputPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("checking active jobs for %s: %w", path, err)
	}
	if existing != nil {
		e.logger.Debug("conversion already pending",
			slog.String("path", path),
			slog.String("external_id", existing.ExternalID),
		)
		return nil, nil
	}

	job := models.NewConversionJob(path, OutputPathFor(path), e.preset)
	if err := e.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating conversion job for %s: %w", path, err)
	}

	e.logger.Info("conversion queued",
		slog.String("path", path),
		slog.String("external_id", job.ExternalID),
	)
	return job, nil
}
