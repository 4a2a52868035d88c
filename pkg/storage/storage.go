package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/state"
)

// Storage persists game sessions.
type Storage interface {
	Ping(ctx context.Context) error
	Close() error

	// SaveGameState stores gs under id, replacing any previous value.
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	// LoadGameState returns nil, nil when no session exists for id.
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error
}
