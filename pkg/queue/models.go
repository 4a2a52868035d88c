package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/state"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeKnowledgeUpdate carries one turn of changes from the narrative service.
	RequestTypeKnowledgeUpdate RequestType = "knowledge_update"

	// RequestTypeAction carries a player action envelope for deferred application.
	RequestTypeAction RequestType = "action"
)

// Request is one unit of work for the worker. Exactly one of Update or
// Envelope is set, matching Type.
type Request struct {
	RequestID   string      `json:"request_id"`
	Type        RequestType `json:"type"`
	GameStateID uuid.UUID   `json:"game_state_id"`

	Update   *state.KnowledgeUpdate `json:"update,omitempty"`
	Envelope *state.Envelope        `json:"envelope,omitempty"`

	// Attempts counts how many times the request went back on the queue
	// because its session was busy.
	Attempts   int       `json:"attempts,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewUpdateRequest builds a knowledge update request with a fresh id.
func NewUpdateRequest(gameStateID uuid.UUID, update *state.KnowledgeUpdate) *Request {
	return &Request{
		RequestID:   uuid.New().String(),
		Type:        RequestTypeKnowledgeUpdate,
		GameStateID: gameStateID,
		Update:      update,
		EnqueuedAt:  time.Now(),
	}
}

// NewActionRequest builds an action request with a fresh id.
func NewActionRequest(gameStateID uuid.UUID, env state.Envelope) *Request {
	return &Request{
		RequestID:   uuid.New().String(),
		Type:        RequestTypeAction,
		GameStateID: gameStateID,
		Envelope:    &env,
		EnqueuedAt:  time.Now(),
	}
}

// Validate checks that the payload matches the request type.
func (r *Request) Validate() error {
	if r.GameStateID == uuid.Nil {
		return fmt.Errorf("request %s has no game state id", r.RequestID)
	}
	switch r.Type {
	case RequestTypeKnowledgeUpdate:
		if r.Update == nil {
			return fmt.Errorf("request %s: knowledge update missing", r.RequestID)
		}
	case RequestTypeAction:
		if r.Envelope == nil || r.Envelope.Kind == "" {
			return fmt.Errorf("request %s: action envelope missing", r.RequestID)
		}
	default:
		return fmt.Errorf("request %s: unknown type %q", r.RequestID, r.Type)
	}
	return nil
}

// MarshalJSON serializes the request to JSON for Redis storage
func (r *Request) MarshalJSON() ([]byte, error) {
	type Alias Request
	return json.Marshal(&struct {
		GameStateID string `json:"game_state_id"`
		*Alias
	}{
		GameStateID: r.GameStateID.String(),
		Alias:       (*Alias)(r),
	})
}

// UnmarshalJSON deserializes the request from JSON in Redis
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request
	aux := &struct {
		GameStateID string `json:"game_state_id"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	gameStateID, err := uuid.Parse(aux.GameStateID)
	if err != nil {
		return err
	}

	r.GameStateID = gameStateID
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
