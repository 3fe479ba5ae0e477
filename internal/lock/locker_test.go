package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_DuplicateAcquireFails(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, ok, err := l.TryAcquire(ctx, "vidarr:event:created:/lib/a.mkv", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	_, ok, err = l.TryAcquire(ctx, "vidarr:event:created:/lib/a.mkv", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused while the first holds the lock")

	// A different name is independent.
	release2, ok, err := l.TryAcquire(ctx, "vidarr:event:created:/lib/b.mkv", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestLocalLocker_ReleaseAllowsReacquire(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, ok, err := l.TryAcquire(ctx, "x", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	release()
	release() // double release is safe

	release2, ok, err := l.TryAcquire(ctx, "x", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestLocalLocker_TTLExpiry(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	staleRelease, ok, err := l.TryAcquire(ctx, "x", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	// TTL elapsed: a new holder may acquire even though the old one never
	// released.
	release, ok, err := l.TryAcquire(ctx, "x", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The stale holder's late release must not free the new acquisition.
	staleRelease()
	_, ok, err = l.TryAcquire(ctx, "x", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
}

func TestEventLockName(t *testing.T) {
	assert.Equal(t, "vidarr:event:created:/lib/Movies/Foo.mkv",
		EventLockName("created", "/lib/Movies/Foo.mkv"))
}
