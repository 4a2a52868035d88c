package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
	"github.com/jwebster45206/rules-engine/pkg/queue"
	"github.com/jwebster45206/rules-engine/pkg/state"
	"github.com/jwebster45206/rules-engine/pkg/storage"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid request")
	ErrNoQueue  = errors.New("no update queue configured")
)

// Enqueuer hands work to the background worker.
type Enqueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// Publisher announces session changes to subscribers.
type Publisher interface {
	PublishRequestQueued(ctx context.Context, gameID uuid.UUID, requestID string, requestType string) error
	PublishGameStateUpdated(ctx context.Context, gameID uuid.UUID, turn int, kind string) error
	PublishCombatRound(ctx context.Context, gameID uuid.UUID, outcome string, log []string) error
}

// Options holds the optional collaborators of a Service.
type Options struct {
	HistoryLimit int
	Queue        Enqueuer
	Events       Publisher
}

// Service owns the load, reduce, save cycle for sessions. All writes to one
// session go through its lock; the reducer itself stays pure.
type Service struct {
	store        storage.Storage
	locker       Locker
	reducer      *state.Reducer
	resolver     *combat.Resolver
	queue        Enqueuer
	events       Publisher
	historyLimit int
	logger       *slog.Logger
}

func NewService(store storage.Storage, locker Locker, resolver *combat.Resolver, logger *slog.Logger, opts Options) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = state.DefaultHistoryLimit
	}
	return &Service{
		store:        store,
		locker:       locker,
		reducer:      state.NewReducer(logger),
		resolver:     resolver,
		queue:        opts.Queue,
		events:       opts.Events,
		historyLimit: opts.HistoryLimit,
		logger:       logger,
	}
}

// Create starts a new session for player.
func (s *Service) Create(ctx context.Context, genre state.Genre, player *actor.Character) (*state.GameState, error) {
	if player == nil || strings.TrimSpace(player.ID) == "" {
		return nil, fmt.Errorf("%w: player with an id is required", ErrInvalid)
	}
	if genre != "" && !genre.Valid() {
		return nil, fmt.Errorf("%w: unknown genre %q", ErrInvalid, genre)
	}

	gs := state.NewGameState(genre, player)
	gs.HistoryLimit = s.historyLimit
	if errs := state.Validate(gs); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	if err := s.store.SaveGameState(ctx, gs.ID, gs); err != nil {
		return nil, fmt.Errorf("failed to save new session: %w", err)
	}
	s.logger.Info("Session created", "game_state_id", gs.ID.String(), "genre", gs.Genre, "player_id", gs.Player.ID)
	return gs, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	gs, err := s.store.LoadGameState(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if gs == nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return gs, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteGameState(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info("Session deleted", "game_state_id", id.String())
	return nil
}

// Dispatch applies one action envelope. A rejected action is not an error:
// the unchanged state comes back with the rejection in the Decision.
func (s *Service) Dispatch(ctx context.Context, id uuid.UUID, env state.Envelope) (*state.GameState, state.Decision, error) {
	return s.commit(ctx, id, s.locker.Lock, string(env.Kind), func(gs *state.GameState) (*state.GameState, state.Decision) {
		return s.reducer.ApplyEnvelope(gs, env)
	})
}

// ApplyUpdate folds a knowledge update into the session immediately.
func (s *Service) ApplyUpdate(ctx context.Context, id uuid.UUID, update *state.KnowledgeUpdate) (*state.GameState, state.Decision, error) {
	a := state.ApplyKnowledgeUpdate{Update: update}
	return s.commit(ctx, id, s.locker.Lock, string(a.Kind()), func(gs *state.GameState) (*state.GameState, state.Decision) {
		return s.reducer.Apply(gs, a)
	})
}

// Process applies a queued request. It returns ErrBusy without waiting
// when another writer holds the session.
func (s *Service) Process(ctx context.Context, req *queue.Request) (state.Decision, error) {
	if err := req.Validate(); err != nil {
		return state.Decision{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	var (
		kind   string
		reduce func(*state.GameState) (*state.GameState, state.Decision)
	)
	switch req.Type {
	case queue.RequestTypeKnowledgeUpdate:
		a := state.ApplyKnowledgeUpdate{Update: req.Update}
		kind = string(a.Kind())
		reduce = func(gs *state.GameState) (*state.GameState, state.Decision) { return s.reducer.Apply(gs, a) }
	default:
		env := *req.Envelope
		kind = string(env.Kind)
		reduce = func(gs *state.GameState) (*state.GameState, state.Decision) { return s.reducer.ApplyEnvelope(gs, env) }
	}
	_, d, err := s.commit(ctx, req.GameStateID, s.locker.TryLock, kind, reduce)
	return d, err
}

// EnqueueUpdate hands a knowledge update to the worker and returns the request id.
func (s *Service) EnqueueUpdate(ctx context.Context, id uuid.UUID, update *state.KnowledgeUpdate) (string, error) {
	if update == nil {
		return "", fmt.Errorf("%w: update is required", ErrInvalid)
	}
	return s.enqueue(ctx, queue.NewUpdateRequest(id, update))
}

// EnqueueAction defers an action envelope to the worker.
func (s *Service) EnqueueAction(ctx context.Context, id uuid.UUID, env state.Envelope) (string, error) {
	if _, err := env.Decode(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return s.enqueue(ctx, queue.NewActionRequest(id, env))
}

func (s *Service) enqueue(ctx context.Context, req *queue.Request) (string, error) {
	if s.queue == nil {
		return "", ErrNoQueue
	}
	if _, err := s.Get(ctx, req.GameStateID); err != nil {
		return "", err
	}
	if err := s.queue.EnqueueRequest(ctx, req); err != nil {
		return "", err
	}
	if s.events != nil {
		if err := s.events.PublishRequestQueued(ctx, req.GameStateID, req.RequestID, string(req.Type)); err != nil {
			s.logger.Warn("Failed to publish queued event", "request_id", req.RequestID, "error", err)
		}
	}
	s.logger.Info("Request queued",
		"request_id", req.RequestID,
		"type", req.Type,
		"game_state_id", req.GameStateID.String())
	return req.RequestID, nil
}

// ResolveCombat runs one round against opponentID and folds the result into
// the session. An idle session enters combat first.
func (s *Service) ResolveCombat(ctx context.Context, id uuid.UUID, action combat.Action, opponentID string) (*state.GameState, combat.RoundResult, state.Decision, error) {
	var result combat.RoundResult
	gs, d, err := s.commit(ctx, id, s.locker.Lock, string(state.KindApplyCombatResult), func(gs *state.GameState) (*state.GameState, state.Decision) {
		if gs.Player == nil {
			return gs, state.Decision{Rejection: &state.Rejection{Code: state.RejectPrecondition, Message: "session has no player"}}
		}
		opponent := gs.FindOpponent(opponentID)
		if opponent == nil {
			return gs, state.Decision{Rejection: &state.Rejection{Code: state.RejectNotFound, Message: fmt.Sprintf("opponent %s not found", opponentID)}}
		}
		if opponent.Dead || opponent.IsDefeated() {
			return gs, state.Decision{Rejection: &state.Rejection{Code: state.RejectPrecondition, Message: fmt.Sprintf("%s is already defeated", opponent.Label())}}
		}

		working := gs
		if !gs.Combat.Active {
			start := state.ApplyKnowledgeUpdate{Update: &state.KnowledgeUpdate{
				Combat: &state.CombatSignal{Start: true, CombatantIDs: []string{gs.Player.ID, opponentID}},
			}}
			next, d := s.reducer.Apply(gs, start)
			if !d.Applied {
				return gs, d
			}
			working = next
		}

		result = s.resolver.ResolveRound(action, working.Player, working.FindOpponent(opponentID))
		next, d := s.reducer.Apply(working, state.ApplyCombatResult{Result: result})
		if !d.Applied {
			return gs, d
		}
		return next, d
	})
	if err == nil && d.Applied && s.events != nil {
		if perr := s.events.PublishCombatRound(ctx, id, string(result.Outcome), result.Log); perr != nil {
			s.logger.Warn("Failed to publish combat round", "game_state_id", id.String(), "error", perr)
		}
	}
	return gs, result, d, err
}

// Sheet builds the d20 sheet for characterID, or the player when empty.
func (s *Service) Sheet(ctx context.Context, id uuid.UUID, characterID string) (*actor.Sheet, error) {
	gs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := gs.Player
	if characterID != "" {
		c = gs.FindCharacter(characterID)
	}
	if c == nil {
		return nil, fmt.Errorf("character %q: %w", characterID, ErrNotFound)
	}
	return actor.NewSheet(c)
}

type lockFunc func(ctx context.Context, id uuid.UUID) (func(), error)

func (s *Service) commit(ctx context.Context, id uuid.UUID, lock lockFunc, kind string, reduce func(*state.GameState) (*state.GameState, state.Decision)) (*state.GameState, state.Decision, error) {
	unlock, err := lock(ctx, id)
	if err != nil {
		return nil, state.Decision{}, err
	}
	defer unlock()

	gs, err := s.Get(ctx, id)
	if err != nil {
		return nil, state.Decision{}, err
	}

	next, d := reduce(gs)
	if !d.Applied {
		return gs, d, nil
	}

	// load_state may bring another session's id along.
	next.ID = id
	if next.HistoryLimit <= 0 {
		next.HistoryLimit = s.historyLimit
	}
	if errs := state.Validate(next); len(errs) > 0 {
		s.logger.Error("Reducer produced an invalid state",
			"game_state_id", id.String(),
			"kind", kind,
			"error", errors.Join(errs...))
		return nil, state.Decision{}, fmt.Errorf("%s left session %s invalid: %w", kind, id, errors.Join(errs...))
	}
	if err := s.store.SaveGameState(ctx, id, next); err != nil {
		return nil, state.Decision{}, fmt.Errorf("failed to save session: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishGameStateUpdated(ctx, id, next.Turn, kind); err != nil {
			s.logger.Warn("Failed to publish state update", "game_state_id", id.String(), "error", err)
		}
	}
	return next, d, nil
}
