package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/state"
	"github.com/jwebster45206/rules-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const gameStatePrefix = "gamestate:"

// RedisStorage keeps each session as one JSON value under gamestate:<id>.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage connects to redisURL. A zero ttl keeps sessions forever.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewRedisStorageFromClient(redis.NewClient(opts), ttl, logger), nil
}

// NewRedisStorageFromClient wraps an existing client, e.g. one shared with the queue.
func NewRedisStorageFromClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Client exposes the underlying connection for the session lock.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// WaitForConnection pings until Redis answers, the attempts run out or ctx ends.
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	const attempts = 30
	backoff := time.NewTicker(2 * time.Second)
	defer backoff.Stop()

	for attempt := 1; ; attempt++ {
		err := r.Ping(ctx)
		if err == nil {
			r.logger.Info("Redis reachable", "attempts", attempt)
			return nil
		}
		if attempt == attempts {
			return fmt.Errorf("redis unreachable after %d attempts: %w", attempts, err)
		}
		r.logger.Debug("Waiting for redis", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for redis: %w", ctx.Err())
		case <-backoff.C:
		}
	}
}

func sessionKey(id uuid.UUID) string {
	return gameStatePrefix + id.String()
}

// SaveGameState stamps UpdatedAt and writes the session with the configured TTL.
func (r *RedisStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("cannot save a nil session")
	}
	gs.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	if err := r.client.Set(ctx, sessionKey(id), data, r.ttl).Err(); err != nil {
		r.logger.Error("Session write failed", "game_state_id", id, "error", err)
		return fmt.Errorf("write session %s: %w", id, err)
	}
	r.logger.Debug("Session saved", "game_state_id", id, "turn", gs.Turn, "bytes", len(data))
	return nil
}

// LoadGameState returns nil, nil when the session does not exist or has expired.
func (r *RedisStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		r.logger.Error("Session read failed", "game_state_id", id, "error", err)
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	gs := new(state.GameState)
	if err := json.Unmarshal(data, gs); err != nil {
		r.logger.Error("Stored session is corrupt", "game_state_id", id, "error", err)
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return gs, nil
}

func (r *RedisStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
