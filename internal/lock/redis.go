package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if we still own it, so a holder
// that outlived its TTL cannot release someone else's acquisition.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker on top of Redis SET NX, giving mutual
// exclusion across vidarr instances sharing a library.
type RedisLocker struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client *redis.Client, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		client: client,
		logger: logger.With(slog.String("component", "redis-lock")),
	}
}

var _ Locker = (*RedisLocker)(nil)

// TryAcquire implements Locker.
func (l *RedisLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (ReleaseFunc, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, name, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquiring lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Release must work even when the caller's ctx is done.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseScript.Run(releaseCtx, l.client, []string{name}, token).Err(); err != nil && err != redis.Nil {
				l.logger.Warn("releasing lock",
					slog.String("name", name),
					slog.String("error", err.Error()),
				)
			}
		})
	}
	return release, true, nil
}

// EventLockName builds the lock name for a filesystem event, keyed by kind
// and absolute path so duplicate deliveries of the same event collide.
func EventLockName(kind, absPath string) string {
	return fmt.Sprintf("vidarr:event:%s:%s", kind, absPath)
}

// Control-loop lock names shared by all instances.
const (
	DispatchLockName  = "vidarr:lock:dispatch"
	ReconcileLockName = "vidarr:lock:reconcile"
)
