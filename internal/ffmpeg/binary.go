// Package ffmpeg provides FFmpeg/FFprobe binary detection, command
// construction, and media probing for vidarr.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// BinaryInfo contains information about the FFmpeg/FFprobe installation.
type BinaryInfo struct {
	FFmpegPath   string `json:"ffmpeg_path"`
	FFprobePath  string `json:"ffprobe_path"`
	Version      string `json:"version"`
	MajorVersion int    `json:"major_version"`
	MinorVersion int    `json:"minor_version"`
}

// BinaryDetector handles detection and caching of FFmpeg binaries.
type BinaryDetector struct {
	mu           sync.RWMutex
	info         *BinaryInfo
	lastDetected time.Time
	cacheTTL     time.Duration
}

// NewBinaryDetector creates a new binary detector.
func NewBinaryDetector() *BinaryDetector {
	return &BinaryDetector{
		cacheTTL: 5 * time.Minute,
	}
}

// Detect locates FFmpeg and FFprobe binaries and returns cached results
// while the cache entry is fresh.
func (d *BinaryDetector) Detect(ctx context.Context) (*BinaryInfo, error) {
	d.mu.RLock()
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		info := d.info
		d.mu.RUnlock()
		return info, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		return d.info, nil
	}

	info, err := d.detect(ctx)
	if err != nil {
		return nil, err
	}

	d.info = info
	d.lastDetected = time.Now()
	return info, nil
}

// Resolve returns the binaries to use, honouring explicit configuration.
// A configured ffmpeg path wins outright and skips detection entirely, so a
// host without ffmpeg on PATH can still run against a custom install. With
// no configured ffmpeg path, detection runs and a configured ffprobe path
// overrides whatever it found.
func (d *BinaryDetector) Resolve(ctx context.Context, ffmpegPath, ffprobePath string) (*BinaryInfo, error) {
	if ffmpegPath == "" {
		detected, err := d.Detect(ctx)
		if err != nil {
			return nil, err
		}
		if ffprobePath == "" {
			return detected, nil
		}
		info := *detected
		info.FFprobePath = ffprobePath
		return &info, nil
	}

	info := &BinaryInfo{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
	if info.FFprobePath == "" {
		if p, err := findBinary("ffprobe", "VIDARR_FFPROBE_BINARY"); err == nil {
			info.FFprobePath = p
		}
	}
	// Version is best effort for configured paths; the binary may not be
	// runnable until the process actually needs it.
	if version, major, minor, err := getVersion(ctx, ffmpegPath); err == nil {
		info.Version = version
		info.MajorVersion = major
		info.MinorVersion = minor
	}
	return info, nil
}

func (d *BinaryDetector) detect(ctx context.Context) (*BinaryInfo, error) {
	info := &BinaryInfo{}

	// Search order: VIDARR_FFMPEG_BINARY env var -> ./ffmpeg -> PATH
	ffmpegPath, err := findBinary("ffmpeg", "VIDARR_FFMPEG_BINARY")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	info.FFmpegPath = ffmpegPath

	// ffprobe is optional; without it files stream unanalyzed.
	if ffprobePath, err := findBinary("ffprobe", "VIDARR_FFPROBE_BINARY"); err == nil {
		info.FFprobePath = ffprobePath
	}

	version, major, minor, err := getVersion(ctx, ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("getting ffmpeg version: %w", err)
	}
	info.Version = version
	info.MajorVersion = major
	info.MinorVersion = minor

	return info, nil
}

var versionRe = regexp.MustCompile(`ffmpeg version (\S+)`)

func getVersion(ctx context.Context, ffmpegPath string) (full string, major, minor int, err error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, "-version")
	out, err := cmd.Output()
	if err != nil {
		return "", 0, 0, fmt.Errorf("running ffmpeg -version: %w", err)
	}

	matches := versionRe.FindSubmatch(out)
	if len(matches) < 2 {
		return "", 0, 0, fmt.Errorf("unable to parse ffmpeg version output")
	}
	full = string(matches[1])

	// Versions look like "7.1" or "n7.1.1-4-gabc"; parse what we can.
	numRe := regexp.MustCompile(`(\d+)\.(\d+)`)
	if nums := numRe.FindStringSubmatch(full); len(nums) == 3 {
		major, _ = strconv.Atoi(nums[1])
		minor, _ = strconv.Atoi(nums[2])
	}

	return full, major, minor, nil
}

// findBinary locates a binary by env var override, current directory, or PATH.
func findBinary(name string, envVar string) (string, error) {
	if envVar != "" {
		if envPath := os.Getenv(envVar); envPath != "" {
			if isExecutable(envPath) {
				return envPath, nil
			}
		}
	}

	localPath := "./" + name
	if isExecutable(localPath) {
		return localPath, nil
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("binary %s not found", name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}
