package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/state"
)

func TestMockStorage_SaveAndLoadGameState(t *testing.T) {
	ms := NewMockStorage()
	ctx := context.Background()

	gs := state.NewGameState(state.GenreFantasy, nil)
	gs.Summary = "tavern brawl"
	if err := ms.SaveGameState(ctx, gs.ID, gs); err != nil {
		t.Fatalf("Failed to save gamestate: %v", err)
	}

	// The store keeps its own copy.
	gs.Summary = "changed"

	loaded, err := ms.LoadGameState(ctx, gs.ID)
	if err != nil {
		t.Fatalf("Failed to load gamestate: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected non-nil gamestate")
	}
	if loaded.Summary != "tavern brawl" {
		t.Errorf("Expected summary 'tavern brawl', got %q", loaded.Summary)
	}
	if ms.Saves() != 1 {
		t.Errorf("Expected 1 save, got %d", ms.Saves())
	}
}

func TestMockStorage_LoadNonExistentGameState(t *testing.T) {
	ms := NewMockStorage()
	loaded, err := ms.LoadGameState(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Expected no error for non-existent gamestate, got: %v", err)
	}
	if loaded != nil {
		t.Error("Expected nil for non-existent gamestate")
	}
}

func TestMockStorage_DeleteAndErrors(t *testing.T) {
	ms := NewMockStorage()
	ctx := context.Background()
	gs := state.NewGameState(state.GenreFantasy, nil)

	if err := ms.SaveGameState(ctx, gs.ID, nil); err == nil {
		t.Error("Expected error saving nil gamestate")
	}

	ms.SetSaveError(errors.New("disk full"))
	if err := ms.SaveGameState(ctx, gs.ID, gs); err == nil {
		t.Error("Expected configured save error")
	}
	ms.SetSaveError(nil)

	if err := ms.SaveGameState(ctx, gs.ID, gs); err != nil {
		t.Fatalf("Failed to save gamestate: %v", err)
	}
	if err := ms.DeleteGameState(ctx, gs.ID); err != nil {
		t.Fatalf("Failed to delete gamestate: %v", err)
	}
	if loaded, _ := ms.LoadGameState(ctx, gs.ID); loaded != nil {
		t.Error("Expected gamestate to be deleted")
	}

	ms.SetPingError(errors.New("down"))
	if err := ms.Ping(ctx); err == nil {
		t.Error("Expected ping error")
	}
	ms.SetPingSuccess()
	if err := ms.Ping(ctx); err != nil {
		t.Errorf("Expected ping success, got %v", err)
	}
}
