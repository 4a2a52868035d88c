package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/internal/session"
	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
	"github.com/jwebster45206/rules-engine/pkg/state"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateSessionRequest struct {
	Genre  state.Genre      `json:"genre"`
	Player *actor.Character `json:"player"`
}

// ActionResponse carries the reducer's decision and the resulting state.
// A rejected action returns the unchanged state.
type ActionResponse struct {
	state.Decision
	GameState *state.GameState `json:"game_state"`
}

type CombatRequest struct {
	Action     combat.Action `json:"action"`
	OpponentID string        `json:"opponent_id"`
}

type CombatResponse struct {
	state.Decision
	Round     combat.RoundResult `json:"round"`
	GameState *state.GameState   `json:"game_state"`
}

type QueuedResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// SessionHandler serves the session API.
type SessionHandler struct {
	svc    *session.Service
	events *EventsHandler
	logger *slog.Logger
}

// NewSessionHandler builds the handler. A nil events handler disables the
// event stream route.
func NewSessionHandler(svc *session.Service, events *EventsHandler, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		svc:    svc,
		events: events,
		logger: logger,
	}
}

// ServeHTTP routes:
// POST   /v1/sessions                - create a session
// GET    /v1/sessions/{id}           - read a session
// DELETE /v1/sessions/{id}           - delete a session
// POST   /v1/sessions/{id}/actions   - apply an action envelope (?async=true to queue it)
// POST   /v1/sessions/{id}/combat    - resolve one combat round
// GET    /v1/sessions/{id}/sheet     - character sheet (?character=id, default the player)
// POST   /v1/sessions/{id}/updates   - queue a knowledge update (?sync=true to apply now)
// GET    /v1/sessions/{id}/events    - server-sent events for the session
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.handleCreate(w, r)
		return
	}

	idStr, sub, _ := strings.Cut(path, "/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", idStr, "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			h.methodNotAllowed(w, r, "GET, DELETE")
		}
	case "actions":
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.handleAction(w, r, id)
	case "combat":
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.handleCombat(w, r, id)
	case "sheet":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r, http.MethodGet)
			return
		}
		h.handleSheet(w, r, id)
	case "updates":
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.handleUpdate(w, r, id)
	case "events":
		if h.events == nil {
			h.writeError(w, http.StatusNotFound, "Event stream is not enabled")
			return
		}
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r, http.MethodGet)
			return
		}
		if _, err := h.svc.Get(r.Context(), id); err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.events.Stream(w, r, id)
	default:
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown session resource %q", sub))
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	gs, err := h.svc.Create(r.Context(), req.Genre, req.Player)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, gs)
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, gs)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleAction(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var env state.Envelope
	if !h.decode(w, r, &env) {
		return
	}
	if env.Kind == "" {
		h.writeError(w, http.StatusBadRequest, "Action kind is required")
		return
	}

	if r.URL.Query().Get("async") == "true" {
		requestID, err := h.svc.EnqueueAction(r.Context(), id, env)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusAccepted, QueuedResponse{RequestID: requestID, Status: "queued"})
		return
	}

	gs, d, err := h.svc.Dispatch(r.Context(), id, env)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, decisionStatus(d), ActionResponse{Decision: d, GameState: gs})
}

func (h *SessionHandler) handleCombat(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req CombatRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.OpponentID) == "" {
		h.writeError(w, http.StatusBadRequest, "opponent_id is required")
		return
	}

	gs, round, d, err := h.svc.ResolveCombat(r.Context(), id, req.Action, req.OpponentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, decisionStatus(d), CombatResponse{Decision: d, Round: round, GameState: gs})
}

func (h *SessionHandler) handleSheet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sheet, err := h.svc.Sheet(r.Context(), id, r.URL.Query().Get("character"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sheet)
}

func (h *SessionHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var update state.KnowledgeUpdate
	if !h.decode(w, r, &update) {
		return
	}

	if r.URL.Query().Get("sync") == "true" {
		gs, d, err := h.svc.ApplyUpdate(r.Context(), id, &update)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, decisionStatus(d), ActionResponse{Decision: d, GameState: gs})
		return
	}

	requestID, err := h.svc.EnqueueUpdate(r.Context(), id, &update)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, QueuedResponse{RequestID: requestID, Status: "queued"})
}

// decisionStatus maps a rejected action to 422; the body still carries the state.
func decisionStatus(d state.Decision) int {
	if d.Applied {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

func (h *SessionHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalid):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrBusy):
		h.writeError(w, http.StatusConflict, "Session is busy, try again")
	case errors.Is(err, session.ErrNoQueue):
		h.writeError(w, http.StatusServiceUnavailable, "Update queue is not available")
	default:
		h.logger.Error("Session operation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *SessionHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	h.logger.Warn("Method not allowed for session endpoint", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", allowed)
	h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: "+allowed)
}

func (h *SessionHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}

func (h *SessionHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}
