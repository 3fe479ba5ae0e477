package streaming

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmylchreest/vidarr/internal/ffmpeg"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/observability"
	"github.com/jmylchreest/vidarr/internal/transcode"
)

// Service routes a playback request to direct byte-range serving or a live
// transcode session, depending on what the client can play.
type Service struct {
	pool       *transcode.Pool
	ffmpegPath string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewService creates a streaming service.
func NewService(pool *transcode.Pool, ffmpegPath string, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pool:       pool,
		ffmpegPath: ffmpegPath,
		logger:     logger.With(slog.String("component", "streaming")),
		metrics:    metrics,
	}
}

// ServeFile streams f to the client. Compatible files are served directly
// with Range support; everything else goes through a pooled live transcode.
func (s *Service) ServeFile(w http.ResponseWriter, r *http.Request, f *models.MediaFile) {
	caps := Negotiate(r.UserAgent())
	video, audio, needsTranscode := SelectCodecs(f, caps)

	log := s.logger.With(
		slog.String("path", f.Path),
		slog.String("client", caps.Source),
	)

	if !needsTranscode {
		log.Debug("serving directly")
		if s.metrics != nil {
			s.metrics.DirectStreams.Inc()
		}
		s.serveDirect(w, r, f)
		return
	}

	log.Debug("serving via transcode",
		slog.String("video", video),
		slog.String("audio", audio),
	)
	if s.metrics != nil {
		s.metrics.TranscodeStreams.Inc()
	}
	s.serveTranscode(w, r, f, video, audio, log)
}

// serveDirect streams the stored bytes, honouring single-range requests.
func (s *Service) serveDirect(w http.ResponseWriter, r *http.Request, f *models.MediaFile) {
	file, err := os.Open(f.Path)
	if err != nil {
		http.Error(w, "media file unavailable", http.StatusNotFound)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, "media file unavailable", http.StatusInternalServerError)
		return
	}
	size := info.Size()

	rng, err := ParseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiableRange) {
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", directContentType(f))

	if rng == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return
	}

	if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
		http.Error(w, "seeking media file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Range", rng.ContentRange(size))
	w.Header().Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	io.CopyN(w, file, rng.Length())
}

// serveTranscode starts a pooled FFmpeg session and streams its stdout.
// The body is not seekable, so byte ranges are approximated by a time seek
// and the response advertises Accept-Ranges: none.
func (s *Service) serveTranscode(w http.ResponseWriter, r *http.Request, f *models.MediaFile, video, audio string, log *slog.Logger) {
	container := PickContainer(f, video, audio)

	spec := ffmpeg.TranscodeSpec{
		InputPath:    f.Path,
		StartSeconds: s.startOffsetSeconds(r.Header.Get("Range"), f),
		VideoCodec:   video,
		AudioCodec:   audio,
		Container:    container,
	}

	ctx := r.Context()
	sessionID := uuid.NewString()
	cmd := ffmpeg.LiveTranscodeCommand(s.ffmpegPath, spec)

	var stdout io.ReadCloser
	err := s.pool.Acquire(ctx, sessionID, func() (*ffmpeg.Command, error) {
		var startErr error
		stdout, startErr = cmd.StartStreaming(ctx)
		return cmd, startErr
	})
	if err != nil {
		if errors.Is(err, transcode.ErrPoolBusy) {
			http.Error(w, "transcoding capacity exhausted, try again later", http.StatusServiceUnavailable)
			return
		}
		log.Error("starting transcode", slog.String("error", err.Error()))
		http.Error(w, "failed to start transcode", http.StatusInternalServerError)
		return
	}
	defer s.pool.Release(sessionID)

	w.Header().Set("Content-Type", ContentType(container))
	w.Header().Set("Accept-Ranges", "none")
	w.WriteHeader(http.StatusOK)

	// A copy error here is almost always the client going away, which is
	// normal termination; cancelling ctx has already killed the encoder.
	if _, err := io.Copy(w, stdout); err != nil && ctx.Err() == nil {
		log.Debug("transcode stream ended", slog.String("error", err.Error()))
	}
	cmd.Wait()
}

// startOffsetSeconds converts a requested byte offset into an approximate
// time offset using the file's overall bitrate. Unknown bitrate means no
// seek: better to start from zero than to guess.
func (s *Service) startOffsetSeconds(rangeHeader string, f *models.MediaFile) float64 {
	if rangeHeader == "" || f.BitrateKbps <= 0 || f.SizeBytes <= 0 {
		return 0
	}

	rng, err := ParseRange(rangeHeader, f.SizeBytes)
	if err != nil || rng == nil || rng.Start == 0 {
		return 0
	}

	bytesPerSecond := float64(f.BitrateKbps) * 1000 / 8
	seconds := float64(rng.Start) / bytesPerSecond

	if f.DurationSeconds > 0 && seconds > f.DurationSeconds {
		seconds = f.DurationSeconds
	}
	return seconds
}

// directContentType maps the stored container (or file extension when the
// probe drew a blank) to a response content type.
func directContentType(f *models.MediaFile) string {
	container := strings.ToLower(f.Container)
	if container == "" {
		container = strings.TrimPrefix(filepath.Ext(f.Path), ".")
	}

	switch container {
	case "mp4", "mov", "m4v":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "matroska", "mkv":
		return "video/x-matroska"
	case "avi":
		return "video/x-msvideo"
	case "mpegts", "ts":
		return "video/mp2t"
	default:
		return "application/octet-stream"
	}
}
