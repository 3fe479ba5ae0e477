// Package ingest turns filesystem events into indexed, playable library
// entries: it waits for files to finish copying, probes them, and hands
// convertible formats to the batch pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNeverStabilized means the file kept changing for the whole stability
// window, typically a stalled or endless copy.
var ErrNeverStabilized = errors.New("file never stabilized")

// StabilityWatcher waits for a file to stop changing before it is treated
// as fully written. Media files arrive via slow copies and network mounts,
// so acting on the creation event alone would index half a file.
type StabilityWatcher struct {
	pollInterval time.Duration
	maxWait      time.Duration
}

// NewStabilityWatcher creates a watcher polling at pollInterval and giving
// up after maxWait.
func NewStabilityWatcher(pollInterval, maxWait time.Duration) *StabilityWatcher {
	return &StabilityWatcher{
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}
}

// WaitForStable blocks until two consecutive polls observe the same size
// and modification time, then returns nil. It returns ErrNeverStabilized
// once maxWait elapses, or the ctx error on cancellation. The file
// disappearing mid-wait is an error too: the copy was aborted.
func (w *StabilityWatcher) WaitForStable(ctx context.Context, path string) error {
	deadline := time.Now().Add(w.maxWait)

	var lastSize int64 = -1
	var lastMod time.Time

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("checking file %s: %w", path, err)
		}

		if info.Size() == lastSize && info.ModTime().Equal(lastMod) {
			return nil
		}
		lastSize = info.Size()
		lastMod = info.ModTime()

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrNeverStabilized, path, w.maxWait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
