package state

import (
	"slices"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
)

// Entity type tags accepted by RenameEntity.
const (
	EntityPlayer    = "player"
	EntityNPC       = "npc"
	EntityMonster   = "monster"
	EntityCompanion = "companion"
)

// renameTargets maps an entity type tag to the collection it names.
var renameTargets = map[string]func(gs *GameState) ([]actor.Character, Capability){
	EntityNPC:       func(gs *GameState) ([]actor.Character, Capability) { return gs.NPCs, 0 },
	EntityMonster:   func(gs *GameState) ([]actor.Character, Capability) { return gs.Monsters, 0 },
	EntityCompanion: func(gs *GameState) ([]actor.Character, Capability) { return gs.Companions, CapCompanions },
}

func renameEntity(gs *GameState, a RenameEntity) *Rejection {
	if rej := requireField("entity_id", a.EntityID); rej != nil {
		return rej
	}
	name := cleanName(a.Name)
	if name == "" {
		return reject(RejectMalformed, "name is required")
	}

	var target *actor.Character
	if a.EntityType == EntityPlayer {
		if gs.Player == nil || gs.Player.ID != a.EntityID {
			return reject(RejectNotFound, "player %s not found", a.EntityID)
		}
		target = gs.Player
	} else {
		collection, ok := renameTargets[a.EntityType]
		if !ok {
			return reject(RejectMalformed, "unknown entity type %q", a.EntityType)
		}
		list, capability := collection(gs)
		if capability != 0 {
			if rej := requireCapability(gs, capability); rej != nil {
				return rej
			}
		}
		idx := indexByID(list, a.EntityID)
		if idx < 0 {
			return reject(RejectNotFound, "%s %s not found", a.EntityType, a.EntityID)
		}
		target = &list[idx]
	}

	target.DisplayName = name
	return nil
}

func deleteMemory(gs *GameState, a DeleteMemory) *Rejection {
	if rej := requireField("memory_id", a.MemoryID); rej != nil {
		return rej
	}
	idx := findByID(gs.Memories, a.MemoryID, func(m Memory) string { return m.ID })
	if idx < 0 {
		return reject(RejectNotFound, "memory %s not found", a.MemoryID)
	}
	gs.Memories = slices.Delete(gs.Memories, idx, idx+1)
	return nil
}

// revertTurn makes History[N] live. Snapshots after N are discarded.
func revertTurn(gs *GameState, a RevertTurn) (*GameState, *Rejection) {
	if a.Turn < 0 || a.Turn >= len(gs.History) {
		return nil, reject(RejectPrecondition, "turn %d outside history of %d", a.Turn, len(gs.History))
	}
	restored := gs.History[a.Turn].Clone()
	restored.ID = gs.ID
	restored.HistoryLimit = gs.HistoryLimit
	restored.History = gs.History[:a.Turn]
	return restored, nil
}

func applyCombatResult(gs *GameState, a ApplyCombatResult) *Rejection {
	res := a.Result
	if res.UpdatedPlayer == nil || res.UpdatedOpponent == nil {
		return reject(RejectMalformed, "combat result is missing a combatant")
	}
	if gs.Player == nil || gs.Player.ID != res.UpdatedPlayer.ID {
		return reject(RejectNotFound, "player %s not found", res.UpdatedPlayer.ID)
	}
	opponent := gs.FindOpponent(res.UpdatedOpponent.ID)
	if opponent == nil {
		return reject(RejectNotFound, "opponent %s not found", res.UpdatedOpponent.ID)
	}

	gs.Player = res.UpdatedPlayer.Clone()
	gs.Player.RecalculateStats()
	*opponent = *res.UpdatedOpponent.Clone()
	opponent.RecalculateStats()
	if res.Outcome == combat.OutcomeWin && opponent.IsDefeated() {
		opponent.Dead = true
	}

	gs.Combat.Log = append(gs.Combat.Log, res.Log...)
	gs.Combat.Turn++
	if res.CombatShouldEnd {
		gs.Combat.Active = false
		gs.Combat.Status = combat.StatusNotInCombat
		gs.Combat.CombatantIDs = nil
	} else if gs.Combat.Status == combat.StatusStarting {
		gs.Combat.Status = combat.StatusOngoing
	}
	return nil
}

func loadState(gs *GameState, a LoadState) (*GameState, *Rejection) {
	if a.State == nil {
		return nil, reject(RejectMalformed, "state is required")
	}
	if a.State.Player == nil {
		return nil, reject(RejectMalformed, "loaded state has no player")
	}
	if !a.State.Genre.Valid() {
		return nil, reject(RejectMalformed, "unknown genre %q", a.State.Genre)
	}
	loaded := a.State.Clone()
	if loaded.ID == uuid.Nil {
		loaded.ID = gs.ID
	}
	return loaded, nil
}
