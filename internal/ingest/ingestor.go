package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jmylchreest/vidarr/internal/batch"
	"github.com/jmylchreest/vidarr/internal/ffmpeg"
	"github.com/jmylchreest/vidarr/internal/lock"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/repository"
)

// MediaProber probes a file into the library's simplified format view.
type MediaProber interface {
	ProbeMedia(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

// Ingestor processes "file created" events from the library watcher.
type Ingestor struct {
	media     repository.MediaFileRepository
	prober    MediaProber
	stability *StabilityWatcher
	enqueuer  *batch.Enqueuer
	locker    lock.Locker
	lockTTL   time.Duration
	logger    *slog.Logger
}

// NewIngestor creates an ingestor.
func NewIngestor(media repository.MediaFileRepository, prober MediaProber, stability *StabilityWatcher, enqueuer *batch.Enqueuer, locker lock.Locker, lockTTL time.Duration, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		media:     media,
		prober:    prober,
		stability: stability,
		enqueuer:  enqueuer,
		locker:    locker,
		lockTTL:   lockTTL,
		logger:    logger.With(slog.String("component", "ingest")),
	}
}

// HandleFileCreated ingests a newly appeared file: duplicate events for the
// same path are collapsed by the event lock, the file is waited stable,
// probed, indexed, and queued for conversion when its format calls for it.
func (i *Ingestor) HandleFileCreated(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path %s: %w", path, err)
	}

	release, ok, err := i.locker.TryAcquire(ctx, lock.EventLockName("created", absPath), i.lockTTL)
	if err != nil {
		return fmt.Errorf("acquiring event lock: %w", err)
	}
	if !ok {
		i.logger.Debug("event already being processed", slog.String("path", absPath))
		return nil
	}
	defer release()

	if err := i.stability.WaitForStable(ctx, absPath); err != nil {
		return fmt.Errorf("waiting for stable file: %w", err)
	}

	if err := i.indexFile(ctx, absPath); err != nil {
		return err
	}

	if i.enqueuer != nil {
		if _, err := i.enqueuer.MaybeEnqueue(ctx, absPath); err != nil {
			// Conversion is an optimization; the file is already indexed
			// and streamable via live transcode.
			i.logger.Warn("enqueueing conversion",
				slog.String("path", absPath),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// indexFile probes the file and upserts its library record. A probe failure
// still marks the file analyzed with unknown codecs: compatibility treats
// unknown fields as non-blocking, and endless re-probing of a broken file
// helps nobody.
func (i *Ingestor) indexFile(ctx context.Context, absPath string) error {
	file, err := i.media.GetByPath(ctx, absPath)
	if err != nil {
		return fmt.Errorf("looking up media file: %w", err)
	}

	isNew := file == nil
	if isNew {
		file = &models.MediaFile{Path: absPath}
	} else if file.Analyzed {
		// Analyzed is sticky: a re-delivered event or manual re-scan must
		// not re-run the probe, especially one that already failed.
		i.logger.Debug("media file already analyzed", slog.String("path", absPath))
		return nil
	}

	if info, err := i.prober.ProbeMedia(ctx, absPath); err != nil {
		i.logger.Warn("probe failed",
			slog.String("path", absPath),
			slog.String("error", err.Error()),
		)
	} else {
		file.VideoCodec = info.VideoCodec
		file.AudioCodec = info.AudioCodec
		file.Container = info.Container
		file.DurationSeconds = info.DurationSeconds
		file.BitrateKbps = info.BitrateKbps
		file.Width = info.Width
		file.Height = info.Height
		file.SizeBytes = info.SizeBytes
	}
	file.Analyzed = true

	if isNew {
		if err := i.media.Create(ctx, file); err != nil {
			return fmt.Errorf("indexing media file: %w", err)
		}
		i.logger.Info("media file indexed",
			slog.String("path", absPath),
			slog.String("video_codec", file.VideoCodec),
			slog.String("audio_codec", file.AudioCodec),
			slog.String("container", file.Container),
		)
		return nil
	}

	if err := i.media.Update(ctx, file); err != nil {
		return fmt.Errorf("updating media file: %w", err)
	}
	i.logger.Debug("media file re-indexed", slog.String("path", absPath))
	return nil
}
