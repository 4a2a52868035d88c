package worker

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	internalqueue "github.com/jwebster45206/rules-engine/internal/queue"
	"github.com/jwebster45206/rules-engine/internal/session"
	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
	"github.com/jwebster45206/rules-engine/pkg/queue"
	"github.com/jwebster45206/rules-engine/pkg/state"
	"github.com/jwebster45206/rules-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	requestID string
	applied   bool
	rejection string
	failed    string
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []outcome
}

func (n *recordingNotifier) PublishRequestCompleted(ctx context.Context, gameID uuid.UUID, requestID string, applied bool, rejection string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome{requestID: requestID, applied: applied, rejection: rejection})
	return nil
}

func (n *recordingNotifier) PublishRequestFailed(ctx context.Context, gameID uuid.UUID, requestID string, errorMsg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome{requestID: requestID, failed: errorMsg})
	return nil
}

func (n *recordingNotifier) all() []outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]outcome(nil), n.outcomes...)
}

type harness struct {
	worker   *Worker
	queue    *internalqueue.UpdateQueue
	svc      *session.Service
	locker   *session.RedisLocker
	notifier *recordingNotifier
	game     uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), ContextTimeoutEnabled: true})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	q := internalqueue.NewUpdateQueue(internalqueue.NewClientFromRedis(rdb, logger))
	locker := session.NewRedisLocker(rdb, 30*time.Second, logger)
	svc := session.NewService(storage.NewMockStorage(), locker, combat.NewResolver(combat.NewRNG(1), logger), logger, session.Options{Queue: q})

	player := &actor.Character{
		ID:        "hero",
		Name:      "Lan",
		BaseStats: map[string]int{actor.StatAttack: 10, actor.StatDefense: 5},
		Health:    actor.Resource{Current: 30, Max: 30},
	}
	gs, err := svc.Create(context.Background(), state.GenreFantasy, player)
	require.NoError(t, err)

	n := &recordingNotifier{}
	return &harness{
		worker:   New(q, svc, n, logger, "worker-test"),
		queue:    q,
		svc:      svc,
		locker:   locker,
		notifier: n,
		game:     gs.ID,
	}
}

func TestWorker_AppliesUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reqID, err := h.svc.EnqueueUpdate(ctx, h.game, &state.KnowledgeUpdate{
		ItemsGained: []actor.Item{{Name: "Herb", Type: "Material", Quantity: 2}},
		Summary:     "found herbs",
	})
	require.NoError(t, err)

	require.NoError(t, h.worker.processNextRequest())

	gs, err := h.svc.Get(ctx, h.game)
	require.NoError(t, err)
	assert.Equal(t, 1, gs.Turn)
	assert.Equal(t, "found herbs", gs.Summary)
	require.Len(t, gs.Player.Inventory, 1)
	assert.Equal(t, 2, gs.Player.Inventory[0].Quantity)

	assert.Equal(t, []outcome{{requestID: reqID, applied: true}}, h.notifier.all())
}

func TestWorker_ReportsRejection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	env, err := state.NewEnvelope(state.CraftItem{RecipeID: "missing"})
	require.NoError(t, err)
	reqID, err := h.svc.EnqueueAction(ctx, h.game, env)
	require.NoError(t, err)

	require.NoError(t, h.worker.processNextRequest())
	assert.Equal(t, []outcome{{requestID: reqID, applied: false, rejection: string(state.RejectNotFound)}}, h.notifier.all())
}

func TestWorker_RequeuesBusySession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	unlock, err := h.locker.TryLock(ctx, h.game)
	require.NoError(t, err)

	reqID, err := h.svc.EnqueueUpdate(ctx, h.game, &state.KnowledgeUpdate{Summary: "later"})
	require.NoError(t, err)

	require.NoError(t, h.worker.processNextRequest())
	depth, err := h.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
	assert.Empty(t, h.notifier.all())

	unlock()
	require.NoError(t, h.worker.processNextRequest())

	gs, err := h.svc.Get(ctx, h.game)
	require.NoError(t, err)
	assert.Equal(t, "later", gs.Summary)
	assert.Equal(t, []outcome{{requestID: reqID, applied: true}}, h.notifier.all())
}

func TestWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	unlock, err := h.locker.TryLock(ctx, h.game)
	require.NoError(t, err)
	defer unlock()

	req := queue.NewUpdateRequest(h.game, &state.KnowledgeUpdate{Summary: "never"})
	req.Attempts = maxAttempts - 1
	require.NoError(t, h.queue.EnqueueRequest(ctx, req))

	require.NoError(t, h.worker.processNextRequest())
	depth, err := h.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)

	got := h.notifier.all()
	require.Len(t, got, 1)
	assert.Contains(t, got[0].failed, "busy")
}

func TestWorker_DeletedSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := queue.NewUpdateRequest(uuid.New(), &state.KnowledgeUpdate{Summary: "orphan"})
	require.NoError(t, h.queue.EnqueueRequest(ctx, req))

	require.NoError(t, h.worker.processNextRequest())
	got := h.notifier.all()
	require.Len(t, got, 1)
	assert.Equal(t, req.RequestID, got[0].requestID)
	assert.NotEmpty(t, got[0].failed)
}

func TestWorker_StartStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- h.worker.Start() }()

	_, err := h.svc.EnqueueUpdate(ctx, h.game, &state.KnowledgeUpdate{ElapsedMinutes: 30})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		gs, err := h.svc.Get(ctx, h.game)
		return err == nil && gs.ElapsedMinutes == 30
	}, 3*time.Second, 20*time.Millisecond)

	h.worker.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(workerTimeout + 2*time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNew_DefaultID(t *testing.T) {
	w := New(nil, nil, nil, slog.Default(), "")
	assert.Regexp(t, `^worker-[0-9a-f]{8}$`, w.ID())
}
