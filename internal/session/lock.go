package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy means another writer holds the session lock.
var ErrBusy = errors.New("session is busy")

// Only delete if we own the lock.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Locker serialises writers per session. TryLock never waits; Lock
// retries until the lock frees up or its attempts run out.
type Locker interface {
	TryLock(ctx context.Context, id uuid.UUID) (unlock func(), err error)
	Lock(ctx context.Context, id uuid.UUID) (unlock func(), err error)
}

// RedisLocker is a SET NX lock with a per-acquisition token.
type RedisLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
	logger     *slog.Logger
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retries:    20,
		retryDelay: 50 * time.Millisecond,
		logger:     logger,
	}
}

func lockKey(id uuid.UUID) string {
	return fmt.Sprintf("game-lock:%s", id.String())
}

func (l *RedisLocker) TryLock(ctx context.Context, id uuid.UUID) (func(), error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, lockKey(id), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() { l.release(id, token) }, nil
}

func (l *RedisLocker) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	for attempt := 0; ; attempt++ {
		unlock, err := l.TryLock(ctx, id)
		if !errors.Is(err, ErrBusy) || attempt >= l.retries {
			return unlock, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

// release uses its own context so a cancelled request still frees the lock.
func (l *RedisLocker) release(id uuid.UUID, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(id)}, token).Err(); err != nil {
		l.logger.Error("Failed to release game lock", "game_state_id", id.String(), "error", err)
	}
}
