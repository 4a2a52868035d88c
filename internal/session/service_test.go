package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
	"github.com/jwebster45206/rules-engine/pkg/queue"
	"github.com/jwebster45206/rules-engine/pkg/state"
	"github.com/jwebster45206/rules-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	mu   sync.Mutex
	reqs []*queue.Request
	err  error
}

func (q *recordingQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.reqs = append(q.reqs, req)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) record(e string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) PublishRequestQueued(ctx context.Context, gameID uuid.UUID, requestID string, requestType string) error {
	p.record("queued:" + requestType)
	return nil
}

func (p *recordingPublisher) PublishGameStateUpdated(ctx context.Context, gameID uuid.UUID, turn int, kind string) error {
	p.record("updated:" + kind)
	return nil
}

func (p *recordingPublisher) PublishCombatRound(ctx context.Context, gameID uuid.UUID, outcome string, log []string) error {
	p.record("round:" + outcome)
	return nil
}

type fixture struct {
	svc    *Service
	store  *storage.MockStorage
	locker *RedisLocker
	queue  *recordingQueue
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	locker, _ := newTestLocker(t)
	f := &fixture{
		store:  storage.NewMockStorage(),
		locker: locker,
		queue:  &recordingQueue{},
		events: &recordingPublisher{},
	}
	f.svc = NewService(f.store, locker, combat.NewResolver(combat.NewRNG(7), testLogger()), testLogger(), Options{
		HistoryLimit: 5,
		Queue:        f.queue,
		Events:       f.events,
	})
	return f
}

func hero() *actor.Character {
	return &actor.Character{
		ID:        "hero",
		Name:      "Lan",
		Level:     1,
		BaseStats: map[string]int{actor.StatAttack: 14, actor.StatDefense: 5, actor.StatSpeed: 8},
		Health:    actor.Resource{Current: 40, Max: 40},
		Mana:      actor.Resource{Current: 10, Max: 10},
		Inventory: []actor.Item{
			{Name: "Iron Sword", Type: "Weapon", Quantity: 1, Effects: []actor.StatEffect{{Stat: actor.StatAttack, Value: 5}}},
			{Name: "Herb", Type: "Material", Quantity: 3},
		},
	}
}

func wolf() actor.Character {
	c := actor.Character{
		ID:        "wolf",
		Name:      "Grey Wolf",
		Kind:      actor.KindMonster,
		BaseStats: map[string]int{actor.StatAttack: 6, actor.StatDefense: 2, actor.StatSpeed: 4},
		Health:    actor.Resource{Current: 18, Max: 18},
	}
	c.RecalculateStats()
	return c
}

func mustEnvelope(t *testing.T, a state.Action) state.Envelope {
	t.Helper()
	env, err := state.NewEnvelope(a)
	require.NoError(t, err)
	return env
}

func TestService_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gs, err := f.svc.Create(ctx, state.GenreCultivation, hero())
	require.NoError(t, err)
	assert.Equal(t, 5, gs.HistoryLimit)
	assert.Equal(t, actor.KindPlayer, gs.Player.Kind)

	got, err := f.svc.Get(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, gs.ID, got.ID)
	assert.Equal(t, state.GenreCultivation, got.Genre)

	_, err = f.svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_CreateInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, state.GenreFantasy, nil)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.svc.Create(ctx, "space-opera", hero())
	assert.ErrorIs(t, err, ErrInvalid)

	broken := hero()
	broken.Inventory[1].Quantity = 0
	_, err = f.svc.Create(ctx, state.GenreFantasy, broken)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Zero(t, f.store.Saves())
}

func TestService_Dispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gs, err := f.svc.Create(ctx, state.GenreFantasy, hero())
	require.NoError(t, err)

	next, d, err := f.svc.Dispatch(ctx, gs.ID, mustEnvelope(t, state.EquipItem{CharacterID: "hero", Item: "Iron Sword"}))
	require.NoError(t, err)
	require.True(t, d.Applied)
	assert.Equal(t, 19, next.Player.Stats[actor.StatAttack])

	stored, err := f.svc.Get(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 19, stored.Player.Stats[actor.StatAttack])
	assert.Equal(t, []string{"updated:equip_item"}, f.events.events)

	// Rejections come back as decisions and leave storage alone.
	saves := f.store.Saves()
	same, d, err := f.svc.Dispatch(ctx, gs.ID, mustEnvelope(t, state.EquipItem{CharacterID: "hero", Item: "Iron Sword"}))
	require.NoError(t, err)
	assert.False(t, d.Applied)
	require.NotNil(t, d.Rejection)
	assert.Equal(t, state.RejectNotFound, d.Rejection.Code)
	assert.Equal(t, 19, same.Player.Stats[actor.StatAttack])
	assert.Equal(t, saves, f.store.Saves())

	_, d, err = f.svc.Dispatch(ctx, gs.ID, state.Envelope{Kind: "teleport"})
	require.NoError(t, err)
	assert.Equal(t, state.RejectUnknownAction, d.Rejection.Code)

	_, _, err = f.svc.Dispatch(ctx, uuid.New(), mustEnvelope(t, state.CollectIncome{}))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DispatchBusy(t *testing.T) {
	f := newFixture(t)
	f.locker.retries = 0
	ctx := context.Background()
	gs, err := f.svc.Create(ctx, state.GenreFantasy, hero())
	require.NoError(t, err)

	unlock, err := f.locker.TryLock(ctx, gs.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Dispatch(ctx, gs.ID, mustEnvelope(t, state.CollectIncome{}))
	assert.ErrorIs(t, err, ErrBusy)

	unlock()
	_, d, err := f.svc.Dispatch(ctx, gs.ID, mustEnvelope(t, state.EquipItem{CharacterID: "hero", Item: "Iron Sword"}))
	require.NoError(t, err)
	assert.True(t, d.Applied)
}

func TestService_SaveFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gs, err := f.svc.Create(ctx, state.GenreFantasy, hero())
	require.NoError(t, err)

	f.store.SetSaveError(errors.New("disk full"))
	_, _, err = f.svc.Dispatch(ctx, gs.ID, mustEnvelope(t, state.EquipItem{CharacterID: "hero", Item: "Iron Sword"}))
	assert.Error(t, err)
	assert.Empty(t, f.events.events)
}

func TestService_LoadStateKeepsSessionID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gs, err := f.svc.Create(ctx, state.GenreFantasy, hero())
	require.NoError(t, err)

	imported := state.NewGameState(state.GenreCultivation, hero())
	imported.Summary = "imported save"

	next, d, err := f.svc.Dispatch(ctx, gs.ID, mustEnvelope(t, state.LoadState{State: imported}))
	require.NoError(t, err)
	require.True(t, d.Applied)
	assert.Equal(t, gs.ID, next.ID)

	stored, err := f.svc.Get(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, "imported save", stored.Summary)
	assert.Equal(t, state.GenreCultivation, stored.Genre)
}

func TestService_ApplyUpdateAndProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gs, err := f.svc.Create(ctx, state.GenreFantasy, hero())
	require.NoError(t, err)

	next, d, err := f.svc.ApplyUpdate(ctx, gs.ID, &state.KnowledgeUpdate{
		NPCs:           []actor.Character{{ID: "smith", Name: "Smith", Health: actor.Resource{Current: 10, Max: 10}}},
		ItemsGained:    []actor.Item{{Name: "Herb", Type: "Material", Quantity: 2}},
		ElapsedMinutes: 15,
	})
	require.NoError(t, err)
	require.True(t, d.Applied)
	assert.Equal(t, 1, next.Turn)
	assert.NotNil(t, next.FindCharacter("smith"))

	req := queue.NewActionRequest(gs.ID, mustEnvelope(t, state.RenameEntity{EntityType: "npc", EntityID: "smith", Name: "Old Smith"}))
	d, err = f.svc.Process(ctx, req)
	require.NoError(t, err)
	assert.True(t, d.Applied)

	stored, err := f.svc.Get(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Smith", stored.FindCharacter("smith").Label())

	// Process never waits on the lock.
	unlock, err := f.locker.TryLock(ctx, gs.ID)
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, queue.NewUpdateRequest(gs.ID, &state.KnowledgeUpdate{Summary: "later"}))
	assert.ErrorIs(t, err, ErrBusy)
	unlock()

	_, err = f.svc.Process(ctx, &queue.Request{RequestID: "bad", Type: queue.RequestTypeAction, GameStateID: gs.ID})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestService_Enqueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gs, err := f.svc.Create(ctx, state.GenreFantasy, hero())
	require.NoError(t, err)

	id, err := f.svc.EnqueueUpdate(ctx, gs.ID, &state.KnowledgeUpdate{Summary: "dusk"})
	require.NoError(t, err)
	require.Len(t, f.queue.reqs, 1)
	assert.Equal(t, id, f.queue.reqs[0].RequestID)
	assert.Equal(t, queue.RequestTypeKnowledgeUpdate, f.queue.reqs[0].Type)

	_, err = f.svc.EnqueueAction(ctx, gs.ID, mustEnvelope(t, state.CollectIncome{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"queued:knowledge_update", "queued:action"}, f.events.events)

	_, err = f.svc.EnqueueAction(ctx, gs.ID, state.Envelope{Kind: "teleport"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = f.svc.EnqueueUpdate(ctx, gs.ID, nil)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = f.svc.EnqueueUpdate(ctx, uuid.New(), &state.KnowledgeUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	noQueue := NewService(f.store, f.locker, nil, testLogger(), Options{})
	_, err = noQueue.EnqueueUpdate(ctx, gs.ID, &state.KnowledgeUpdate{})
	assert.ErrorIs(t, err, ErrNoQueue)
}

func TestService_ResolveCombat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gs, err := f.svc.Create(ctx, state.GenreFantasy, hero())
	require.NoError(t, err)
	_, _, err = f.svc.ApplyUpdate(ctx, gs.ID, &state.KnowledgeUpdate{Monsters: []actor.Character{wolf()}})
	require.NoError(t, err)

	var (
		next   *state.GameState
		result combat.RoundResult
		rounds int
	)
	for {
		var d state.Decision
		next, result, d, err = f.svc.ResolveCombat(ctx, gs.ID, combat.Action{Type: combat.ActionAttack}, "wolf")
		require.NoError(t, err)
		require.True(t, d.Applied, "round %d rejected: %v", rounds, d.Rejection)
		assert.Empty(t, state.Validate(next))
		rounds++
		if result.CombatShouldEnd {
			break
		}
		require.True(t, next.Combat.Active)
		assert.Equal(t, combat.StatusOngoing, next.Combat.Status)
		require.Less(t, rounds, 100, "combat never ended")
	}

	assert.False(t, next.Combat.Active)
	assert.Equal(t, combat.StatusNotInCombat, next.Combat.Status)
	assert.NotEmpty(t, next.Combat.Log)
	if result.Outcome == combat.OutcomeWin {
		assert.True(t, next.FindOpponent("wolf").Dead)

		_, _, d, err := f.svc.ResolveCombat(ctx, gs.ID, combat.Action{Type: combat.ActionAttack}, "wolf")
		require.NoError(t, err)
		assert.Equal(t, state.RejectPrecondition, d.Rejection.Code)
	}
	assert.Contains(t, f.events.events, "round:"+string(result.Outcome))
}

func TestService_ResolveCombatUnknownOpponent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gs, err := f.svc.Create(ctx, state.GenreFantasy, hero())
	require.NoError(t, err)

	same, _, d, err := f.svc.ResolveCombat(ctx, gs.ID, combat.Action{Type: combat.ActionAttack}, "dragon")
	require.NoError(t, err)
	assert.Equal(t, state.RejectNotFound, d.Rejection.Code)
	assert.False(t, same.Combat.Active)
}

func TestService_SheetAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gs, err := f.svc.Create(ctx, state.GenreFantasy, hero())
	require.NoError(t, err)
	_, _, err = f.svc.ApplyUpdate(ctx, gs.ID, &state.KnowledgeUpdate{Monsters: []actor.Character{wolf()}})
	require.NoError(t, err)

	sheet, err := f.svc.Sheet(ctx, gs.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "hero", sheet.ID)
	assert.Equal(t, 40, sheet.MaxHP)

	sheet, err = f.svc.Sheet(ctx, gs.ID, "wolf")
	require.NoError(t, err)
	assert.Equal(t, "Grey Wolf", sheet.Name)

	_, err = f.svc.Sheet(ctx, gs.ID, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, gs.ID))
	_, err = f.svc.Get(ctx, gs.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, gs.ID), ErrNotFound)
}
