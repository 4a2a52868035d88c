package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
	"github.com/jwebster45206/rules-engine/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ActionResponse mirrors the API's reply to actions and combat rounds.
type ActionResponse struct {
	Applied   bool               `json:"applied"`
	Rejection *state.Rejection   `json:"rejection,omitempty"`
	Round     combat.RoundResult `json:"round"`
	GameState *state.GameState   `json:"game_state"`
}

type QueuedResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// call sends body as JSON and decodes the reply into out. Any status in
// okStatuses counts as success; other statuses surface the API error text.
func call(client *http.Client, method, url string, body any, out any, okStatuses ...int) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	ok := false
	for _, s := range okStatuses {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func sessionURL(baseURL string, id uuid.UUID, sub string) string {
	url := fmt.Sprintf("%s/v1/sessions/%s", baseURL, id)
	if sub != "" {
		url += "/" + sub
	}
	return url
}

func createSession(client *http.Client, baseURL string, genre state.Genre, player *actor.Character) (*state.GameState, error) {
	var gs state.GameState
	body := map[string]any{"genre": genre, "player": player}
	if err := call(client, http.MethodPost, baseURL+"/v1/sessions", body, &gs, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &gs, nil
}

func getGameState(client *http.Client, baseURL string, id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	if err := call(client, http.MethodGet, sessionURL(baseURL, id, ""), nil, &gs, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}
	return &gs, nil
}

// sendAction applies an envelope. Rejections come back in the response, not as errors.
func sendAction(client *http.Client, baseURL string, id uuid.UUID, env state.Envelope) (*ActionResponse, error) {
	var resp ActionResponse
	if err := call(client, http.MethodPost, sessionURL(baseURL, id, "actions"), env, &resp, http.StatusOK, http.StatusUnprocessableEntity); err != nil {
		return nil, err
	}
	return &resp, nil
}

func sendCombat(client *http.Client, baseURL string, id uuid.UUID, action combat.Action, opponentID string) (*ActionResponse, error) {
	var resp ActionResponse
	body := map[string]any{"action": action, "opponent_id": opponentID}
	if err := call(client, http.MethodPost, sessionURL(baseURL, id, "combat"), body, &resp, http.StatusOK, http.StatusUnprocessableEntity); err != nil {
		return nil, err
	}
	return &resp, nil
}

func sendUpdate(client *http.Client, baseURL string, id uuid.UUID, update *state.KnowledgeUpdate) (string, error) {
	var resp QueuedResponse
	if err := call(client, http.MethodPost, sessionURL(baseURL, id, "updates"), update, &resp, http.StatusAccepted); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

func getSheet(client *http.Client, baseURL string, id uuid.UUID, characterID string) (*actor.Sheet, error) {
	url := sessionURL(baseURL, id, "sheet")
	if characterID != "" {
		url += "?character=" + characterID
	}
	var sheet actor.Sheet
	if err := call(client, http.MethodGet, url, nil, &sheet, http.StatusOK); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// listenToSSE connects to the session's event stream and forwards events
// until ctx ends or the stream closes.
func listenToSSE(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID, eventChan chan<- SSEEvent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sessionURL(baseURL, id, "events"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}
	return readSSE(ctx, resp.Body, eventChan)
}

func readSSE(ctx context.Context, r io.Reader, eventChan chan<- SSEEvent) error {
	scanner := bufio.NewScanner(r)
	var current SSEEvent

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if current.Type == "" {
				continue
			}
			select {
			case eventChan <- current:
			case <-ctx.Done():
				return ctx.Err()
			}
			current = SSEEvent{}
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var payload map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload); err != nil {
				continue
			}
			// Session events wrap their details in "data"; the greeting does not.
			if inner, ok := payload["data"].(map[string]any); ok {
				current.Data = inner
			} else {
				current.Data = payload
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
