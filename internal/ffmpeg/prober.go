package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ProbeResult contains the ffprobe output vidarr cares about.
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// ProbeFormat contains container format information.
type ProbeFormat struct {
	Filename       string            `json:"filename"`
	NumStreams     int               `json:"nb_streams"`
	FormatName     string            `json:"format_name"`
	FormatLongName string            `json:"format_long_name"`
	Duration       string            `json:"duration"`
	Size           string            `json:"size"`
	BitRate        string            `json:"bit_rate"`
	Tags           map[string]string `json:"tags"`
}

// ProbeStream contains per-stream information.
type ProbeStream struct {
	Index       int              `json:"index"`
	CodecName   string           `json:"codec_name"`
	CodecType   string           `json:"codec_type"` // video, audio, subtitle, data
	Profile     string           `json:"profile"`
	Width       int              `json:"width,omitempty"`
	Height      int              `json:"height,omitempty"`
	PixFmt      string           `json:"pix_fmt,omitempty"`
	SampleRate  string           `json:"sample_rate,omitempty"`
	Channels    int              `json:"channels,omitempty"`
	BitRate     string           `json:"bit_rate,omitempty"`
	Duration    string           `json:"duration,omitempty"`
	Disposition ProbeDisposition `json:"disposition,omitempty"`
}

// ProbeDisposition contains stream disposition flags.
type ProbeDisposition struct {
	Default  int `json:"default"`
	Forced   int `json:"forced"`
	Dub      int `json:"dub"`
	Original int `json:"original"`
}

// MediaInfo is the simplified per-file view used by the library index.
type MediaInfo struct {
	VideoCodec      string
	AudioCodec      string
	Container       string
	DurationSeconds float64
	BitrateKbps     int
	Width           int
	Height          int
	SizeBytes       int64
}

// Prober probes media files with ffprobe.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber creates a prober using the given ffprobe binary.
func NewProber(ffprobePath string) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     30 * time.Second,
	}
}

// WithTimeout sets the probe timeout.
func (p *Prober) WithTimeout(timeout time.Duration) *Prober {
	p.timeout = timeout
	return p
}

// Probe runs ffprobe against path and returns the parsed result.
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if p.ffprobePath == "" {
		return nil, fmt.Errorf("ffprobe not available")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("probe timeout after %v", p.timeout)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	return &result, nil
}

// ProbeMedia probes path and returns the simplified media view.
func (p *Prober) ProbeMedia(ctx context.Context, path string) (*MediaInfo, error) {
	result, err := p.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	return Simplify(result), nil
}

// Simplify reduces a probe result to the default video and audio tracks.
func Simplify(result *ProbeResult) *MediaInfo {
	info := &MediaInfo{
		Container: primaryFormatName(result.Format.FormatName),
	}

	if result.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
			info.DurationSeconds = dur
		}
	}
	if result.Format.BitRate != "" {
		if br, err := strconv.ParseInt(result.Format.BitRate, 10, 64); err == nil {
			info.BitrateKbps = int(br / 1000)
		}
	}
	if result.Format.Size != "" {
		if size, err := strconv.ParseInt(result.Format.Size, 10, 64); err == nil {
			info.SizeBytes = size
		}
	}

	for _, stream := range result.Streams {
		switch stream.CodecType {
		case "video":
			// Prefer the default track; otherwise take the first seen.
			if info.VideoCodec == "" || stream.Disposition.Default == 1 {
				info.VideoCodec = stream.CodecName
				info.Width = stream.Width
				info.Height = stream.Height
			}
		case "audio":
			if info.AudioCodec == "" || stream.Disposition.Default == 1 {
				info.AudioCodec = stream.CodecName
			}
		}
	}

	return info
}

// primaryFormatName reduces ffprobe's comma-separated format list to the
// container name clients negotiate on. The QuickTime demuxer reports the
// whole family ("mov,mp4,m4a,3gp,3g2,mj2") for every variant, so listing
// "mp4" anywhere means the file is an MP4 as far as playback is concerned;
// otherwise the first name wins ("matroska,webm" becomes "matroska").
func primaryFormatName(formatName string) string {
	names := strings.Split(formatName, ",")
	for _, name := range names {
		if name == "mp4" {
			return "mp4"
		}
	}
	return names[0]
}
