package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/state"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	rs, err := NewRedisStorage("redis://"+mr.Addr(), ttl, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })
	return rs, mr
}

func testState() *state.GameState {
	player := &actor.Character{
		ID:        "hero",
		Name:      "Lan",
		BaseStats: map[string]int{actor.StatAttack: 10, actor.StatDefense: 5},
		Health:    actor.Resource{Current: 30, Max: 30},
		Inventory: []actor.Item{{Name: "Herb", Type: "Material", Quantity: 3}},
	}
	return state.NewGameState(state.GenreCultivation, player)
}

func TestRedisStorage_SaveAndLoad(t *testing.T) {
	rs, mr := newTestStorage(t, time.Hour)
	ctx := context.Background()
	gs := testState()

	require.NoError(t, rs.SaveGameState(ctx, gs.ID, gs))
	assert.False(t, gs.UpdatedAt.IsZero(), "save should stamp UpdatedAt")
	assert.True(t, mr.Exists("gamestate:"+gs.ID.String()))
	assert.Equal(t, time.Hour, mr.TTL("gamestate:"+gs.ID.String()))

	loaded, err := rs.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, gs.ID, loaded.ID)
	assert.Equal(t, state.GenreCultivation, loaded.Genre)
	assert.Equal(t, "Lan", loaded.Player.Name)
	assert.Equal(t, 10, loaded.Player.Stats[actor.StatAttack])
	require.Len(t, loaded.Player.Inventory, 1)
	assert.Equal(t, 3, loaded.Player.Inventory[0].Quantity)
}

func TestRedisStorage_NoTTL(t *testing.T) {
	rs, mr := newTestStorage(t, 0)
	gs := testState()

	require.NoError(t, rs.SaveGameState(context.Background(), gs.ID, gs))
	assert.Equal(t, time.Duration(0), mr.TTL("gamestate:"+gs.ID.String()))
}

func TestRedisStorage_Expiry(t *testing.T) {
	rs, mr := newTestStorage(t, time.Minute)
	ctx := context.Background()
	gs := testState()

	require.NoError(t, rs.SaveGameState(ctx, gs.ID, gs))
	mr.FastForward(2 * time.Minute)

	loaded, err := rs.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_LoadMissing(t *testing.T) {
	rs, _ := newTestStorage(t, time.Hour)

	loaded, err := rs.LoadGameState(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_LoadCorrupt(t *testing.T) {
	rs, mr := newTestStorage(t, time.Hour)
	id := uuid.New()
	require.NoError(t, mr.Set("gamestate:"+id.String(), "{not json"))

	_, err := rs.LoadGameState(context.Background(), id)
	assert.Error(t, err)
}

func TestRedisStorage_Delete(t *testing.T) {
	rs, mr := newTestStorage(t, time.Hour)
	ctx := context.Background()
	gs := testState()

	require.NoError(t, rs.SaveGameState(ctx, gs.ID, gs))
	require.NoError(t, rs.DeleteGameState(ctx, gs.ID))
	assert.False(t, mr.Exists("gamestate:"+gs.ID.String()))

	// Deleting twice is fine.
	assert.NoError(t, rs.DeleteGameState(ctx, gs.ID))
}

func TestRedisStorage_SaveNil(t *testing.T) {
	rs, _ := newTestStorage(t, time.Hour)
	assert.Error(t, rs.SaveGameState(context.Background(), uuid.New(), nil))
}

func TestRedisStorage_Ping(t *testing.T) {
	rs, mr := newTestStorage(t, time.Hour)
	ctx := context.Background()

	assert.NoError(t, rs.Ping(ctx))
	require.NoError(t, rs.WaitForConnection(ctx))

	mr.SetError("server down")
	assert.Error(t, rs.Ping(ctx))
	mr.SetError("")
	assert.NoError(t, rs.Ping(ctx))
}

func TestRedisStorage_WaitForConnectionCancelled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	rs := NewRedisStorageFromClient(client, time.Hour, logger)
	t.Cleanup(func() { _ = rs.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Error(t, rs.WaitForConnection(ctx))
}

func TestNewRedisStorage_BadURL(t *testing.T) {
	_, err := NewRedisStorage("not a url", time.Hour, slog.Default())
	assert.Error(t, err)
}
