package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRequestQueued    EventType = "request.queued"
	EventTypeRequestCompleted EventType = "request.completed"
	EventTypeRequestFailed    EventType = "request.failed"
	EventTypeGameStateUpdated EventType = "game.state_updated"
	EventTypeCombatRound      EventType = "combat.round"
)

// Event is the payload published on a session channel.
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	GameID    string         `json:"game_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel is the pub/sub channel for one session.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

func (b *Broadcaster) PublishRequestQueued(ctx context.Context, gameID uuid.UUID, requestID string, requestType string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:      EventTypeRequestQueued,
		RequestID: requestID,
		Data: map[string]any{
			"status": "queued",
			"type":   requestType,
		},
	})
}

// PublishRequestCompleted reports a processed request. rejection is empty when the change applied.
func (b *Broadcaster) PublishRequestCompleted(ctx context.Context, gameID uuid.UUID, requestID string, applied bool, rejection string) error {
	data := map[string]any{
		"status":  "completed",
		"applied": applied,
	}
	if rejection != "" {
		data["rejection"] = rejection
	}
	return b.publishToGame(ctx, gameID, Event{
		Type:      EventTypeRequestCompleted,
		RequestID: requestID,
		Data:      data,
	})
}

func (b *Broadcaster) PublishRequestFailed(ctx context.Context, gameID uuid.UUID, requestID string, errorMsg string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:      EventTypeRequestFailed,
		RequestID: requestID,
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

// PublishGameStateUpdated announces a committed change and the action kind behind it.
func (b *Broadcaster) PublishGameStateUpdated(ctx context.Context, gameID uuid.UUID, turn int, kind string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type: EventTypeGameStateUpdated,
		Data: map[string]any{
			"turn": turn,
			"kind": kind,
		},
	})
}

func (b *Broadcaster) PublishCombatRound(ctx context.Context, gameID uuid.UUID, outcome string, log []string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type: EventTypeCombatRound,
		Data: map[string]any{
			"outcome": outcome,
			"log":     log,
		},
	})
}

func (b *Broadcaster) publishToGame(ctx context.Context, gameID uuid.UUID, event Event) error {
	event.GameID = gameID.String()
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)
	return nil
}
