package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jwebster45206/rules-engine/pkg/storage"
)

type stubDepth struct {
	depth int
	err   error
}

func (s stubDepth) Depth(ctx context.Context) (int, error) {
	return s.depth, s.err
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	tests := []struct {
		name            string
		pingErr         error
		queue           DepthReporter
		expectedStatus  int
		expectedHealth  string
		expectedStorage string
		expectedQueue   any
	}{
		{
			name:            "all healthy",
			queue:           stubDepth{depth: 3},
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedStorage: "healthy",
			expectedQueue:   map[string]any{"status": "healthy", "depth": float64(3)},
		},
		{
			name:            "no queue configured",
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedStorage: "healthy",
		},
		{
			name:            "unhealthy storage",
			pingErr:         errors.New("connection failed"),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "unhealthy",
		},
		{
			name:            "unhealthy queue",
			queue:           stubDepth{err: errors.New("LLEN failed")},
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "healthy",
			expectedQueue:   "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockStorage()
			if tt.pingErr != nil {
				store.SetPingError(tt.pingErr)
			}
			handler := NewHealthHandler(store, tt.queue, logger)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", ct)
			}

			var response HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Status != tt.expectedHealth {
				t.Errorf("Expected health status %s, got %s", tt.expectedHealth, response.Status)
			}
			if response.Service != "rules-engine" {
				t.Errorf("Expected service rules-engine, got %s", response.Service)
			}
			if response.Components["storage"] != tt.expectedStorage {
				t.Errorf("Expected storage status %s, got %v", tt.expectedStorage, response.Components["storage"])
			}
			got, present := response.Components["queue"]
			switch want := tt.expectedQueue.(type) {
			case nil:
				if present {
					t.Errorf("Expected no queue component, got %v", got)
				}
			case string:
				if got != want {
					t.Errorf("Expected queue %v, got %v", want, got)
				}
			case map[string]any:
				m, ok := got.(map[string]any)
				if !ok || m["status"] != want["status"] || m["depth"] != want["depth"] {
					t.Errorf("Expected queue %v, got %v", want, got)
				}
			}
			if response.Timestamp.IsZero() {
				t.Error("Expected non-zero timestamp")
			}
		})
	}
}
