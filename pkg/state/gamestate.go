package state

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
)

// DefaultHistoryLimit is the number of snapshots kept when HistoryLimit is unset.
const DefaultHistoryLimit = 20

// Location is a place in the world supplied by the narrative service.
type Location struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Exits       []string `json:"exits,omitempty"`
}

// Faction is a foreign power a guild can hold diplomatic relations with.
type Faction struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Quest tracks a narrative objective.
type Quest struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"` // active, completed, failed
	Objectives  []string `json:"objectives,omitempty"`
}

// Memory is a fact the narrative service wants remembered across turns.
type Memory struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Turn int    `json:"turn,omitempty"`
}

// CombatState is the host-held encounter record.
type CombatState struct {
	Active       bool          `json:"active"`
	Status       combat.Status `json:"status,omitempty"`
	CombatantIDs []string      `json:"combatant_ids,omitempty"`
	Turn         int           `json:"turn"`
	Log          []string      `json:"log,omitempty"`
}

// GameState is the canonical state of one game session.
type GameState struct {
	ID             uuid.UUID `json:"id"`
	Genre          Genre     `json:"genre"`
	Turn           int       `json:"turn"`
	ElapsedMinutes int       `json:"elapsed_minutes,omitempty"`

	Player     *actor.Character  `json:"player"`
	NPCs       []actor.Character `json:"npcs,omitempty"`
	Monsters   []actor.Character `json:"monsters,omitempty"`
	Companions []actor.Character `json:"companions,omitempty"`

	Locations []Location `json:"locations,omitempty"`
	Factions  []Faction  `json:"factions,omitempty"`
	Quests    []Quest    `json:"quests,omitempty"`
	Memories  []Memory   `json:"memories,omitempty"`

	Guild     *Guild         `json:"guild,omitempty"`
	Store     []StoreListing `json:"store,omitempty"`
	Recipes   []Recipe       `json:"recipes,omitempty"`
	Acupoints []Acupoint     `json:"acupoints,omitempty"`

	Combat           CombatState `json:"combat"`
	SuggestedActions []string    `json:"suggested_actions,omitempty"`
	Summary          string      `json:"summary,omitempty"`

	// History holds prior snapshots, oldest first. Snapshots carry no history of their own.
	History      []GameState `json:"history,omitempty"`
	HistoryLimit int         `json:"history_limit,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewGameState creates a fresh session for player in the given genre.
func NewGameState(genre Genre, player *actor.Character) *GameState {
	gs := &GameState{
		ID:           uuid.New(),
		Genre:        genre.normalized(),
		HistoryLimit: DefaultHistoryLimit,
		Combat:       CombatState{Status: combat.StatusNotInCombat},
	}
	if player != nil {
		gs.Player = player.Clone()
		gs.Player.Kind = actor.KindPlayer
		gs.Player.RecalculateStats()
	}
	return gs
}

// FindCharacter looks up a character by id across the player, NPCs,
// companions and monsters. The returned pointer aliases gs.
func (gs *GameState) FindCharacter(id string) *actor.Character {
	if id == "" {
		return nil
	}
	if gs.Player != nil && gs.Player.ID == id {
		return gs.Player
	}
	for _, list := range [][]actor.Character{gs.NPCs, gs.Companions, gs.Monsters} {
		if idx := indexByID(list, id); idx >= 0 {
			return &list[idx]
		}
	}
	return nil
}

// FindOpponent looks up a combatant by id in NPCs, then monsters.
func (gs *GameState) FindOpponent(id string) *actor.Character {
	if idx := indexByID(gs.NPCs, id); idx >= 0 {
		return &gs.NPCs[idx]
	}
	if idx := indexByID(gs.Monsters, id); idx >= 0 {
		return &gs.Monsters[idx]
	}
	return nil
}

func indexByID(list []actor.Character, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(list, func(c actor.Character) bool { return c.ID == id })
}

func (gs *GameState) historyLimit() int {
	if gs.HistoryLimit <= 0 {
		return DefaultHistoryLimit
	}
	return gs.HistoryLimit
}

// snapshot is a deep copy without history, as stored in History.
func (gs *GameState) snapshot() GameState {
	cp := gs.Clone()
	cp.History = nil
	return *cp
}

// pushHistory records snap, dropping the oldest entries beyond the limit.
func (gs *GameState) pushHistory(snap GameState) {
	gs.History = append(gs.History, snap)
	if over := len(gs.History) - gs.historyLimit(); over > 0 {
		gs.History = slices.Delete(gs.History, 0, over)
	}
}

// Clone returns a deep copy. No slice, map or pointer is shared with gs.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	cp := *gs
	cp.Player = gs.Player.Clone()
	cp.NPCs = actor.CloneAll(gs.NPCs)
	cp.Monsters = actor.CloneAll(gs.Monsters)
	cp.Companions = actor.CloneAll(gs.Companions)

	cp.Locations = cloneEach(gs.Locations, func(l Location) Location {
		l.Exits = slices.Clone(l.Exits)
		return l
	})
	cp.Factions = slices.Clone(gs.Factions)
	cp.Quests = cloneEach(gs.Quests, func(q Quest) Quest {
		q.Objectives = slices.Clone(q.Objectives)
		return q
	})
	cp.Memories = slices.Clone(gs.Memories)

	cp.Guild = gs.Guild.Clone()
	cp.Store = cloneEach(gs.Store, StoreListing.clone)
	cp.Recipes = cloneEach(gs.Recipes, Recipe.clone)
	cp.Acupoints = cloneEach(gs.Acupoints, func(a Acupoint) Acupoint {
		a.Effects = slices.Clone(a.Effects)
		return a
	})

	cp.Combat.CombatantIDs = slices.Clone(gs.Combat.CombatantIDs)
	cp.Combat.Log = slices.Clone(gs.Combat.Log)
	cp.SuggestedActions = slices.Clone(gs.SuggestedActions)
	cp.History = cloneEach(gs.History, func(h GameState) GameState { return *h.Clone() })
	return &cp
}

func cloneEach[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i := range in {
		out[i] = clone(in[i])
	}
	return out
}
