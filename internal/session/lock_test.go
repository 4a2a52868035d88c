package session

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLocker(client, 30*time.Second, testLogger())
	l.retries = 3
	l.retryDelay = time.Millisecond
	return l, mr
}

func TestRedisLocker_TryLock(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()
	id := uuid.New()

	unlock, err := l.TryLock(ctx, id)
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockKey(id)))
	assert.Equal(t, 30*time.Second, mr.TTL(lockKey(id)))

	_, err = l.TryLock(ctx, id)
	assert.ErrorIs(t, err, ErrBusy)

	// Other sessions are independent.
	other, err := l.TryLock(ctx, uuid.New())
	require.NoError(t, err)
	other()

	unlock()
	assert.False(t, mr.Exists(lockKey(id)))

	unlock, err = l.TryLock(ctx, id)
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_ReleaseOnlyOwnToken(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()
	id := uuid.New()

	unlock, err := l.TryLock(ctx, id)
	require.NoError(t, err)

	// The lock expired and someone else took it.
	require.NoError(t, mr.Set(lockKey(id), "someone-else"))
	unlock()

	got, err := mr.Get(lockKey(id))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_LockGivesUp(t *testing.T) {
	l, mr := newTestLocker(t)
	id := uuid.New()
	require.NoError(t, mr.Set(lockKey(id), "held"))

	_, err := l.Lock(context.Background(), id)
	assert.ErrorIs(t, err, ErrBusy)

	mr.Del(lockKey(id))
	unlock, err := l.Lock(context.Background(), id)
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_LockCancelled(t *testing.T) {
	l, mr := newTestLocker(t)
	l.retries = 1000
	l.retryDelay = 10 * time.Millisecond
	id := uuid.New()
	require.NoError(t, mr.Set(lockKey(id), "held"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := l.Lock(ctx, id)
	assert.Error(t, err)
}
