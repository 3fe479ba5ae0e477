// Package lock provides named mutual exclusion for events and control
// loops, so that duplicate file events and multi-instance deployments do
// not double-process work.
package lock

import (
	"context"
	"sync"
	"time"
)

// ReleaseFunc releases a held lock. Safe to call more than once.
type ReleaseFunc func()

// Locker acquires named, TTL-bounded locks. TryAcquire never blocks: ok is
// false when another holder already owns the name. The TTL guards against
// holders that die without releasing.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release ReleaseFunc, ok bool, err error)
}

// LocalLocker is an in-process Locker for single-node deployments and
// tests. Entries expire after their TTL, mirroring the Redis behaviour.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		locks: make(map[string]time.Time),
	}
}

var _ Locker = (*LocalLocker)(nil)

// TryAcquire implements Locker.
func (l *LocalLocker) TryAcquire(_ context.Context, name string, ttl time.Duration) (ReleaseFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.locks[name]; held && time.Now().Before(expiry) {
		return nil, false, nil
	}

	expiry := time.Now().Add(ttl)
	l.locks[name] = expiry

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// Only remove our own acquisition; a TTL expiry followed by
			// re-acquisition must not be clobbered by a late release.
			if current, held := l.locks[name]; held && current.Equal(expiry) {
				delete(l.locks, name)
			}
		})
	}
	return release, true, nil
}
