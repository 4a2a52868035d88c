package state

import (
	"log/slog"
	"slices"

	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
)

// CombatSignal reports an encounter starting or ending.
type CombatSignal struct {
	Start        bool     `json:"start,omitempty"`
	End          bool     `json:"end,omitempty"`
	CombatantIDs []string `json:"combatant_ids,omitempty"`
}

// KnowledgeUpdate is one turn's worth of changes from the narrative service.
// Entities are upserted wholesale by id.
type KnowledgeUpdate struct {
	Player     *actor.Character  `json:"player,omitempty"`
	NPCs       []actor.Character `json:"npcs,omitempty"`
	Monsters   []actor.Character `json:"monsters,omitempty"`
	Spawns     []MonsterSpawn    `json:"monster_spawns,omitempty"`
	Companions []actor.Character `json:"companions,omitempty"`
	Locations  []Location        `json:"locations,omitempty"`
	Factions   []Faction         `json:"factions,omitempty"`
	Quests     []Quest           `json:"quests,omitempty"`
	Memories   []Memory          `json:"memories,omitempty"`

	ItemsGained    []actor.Item   `json:"items_gained,omitempty"`
	ItemsLost      []Material     `json:"items_lost,omitempty"`
	SkillsLearned  []actor.Skill  `json:"skills_learned,omitempty"`
	TalentsLearned []actor.Talent `json:"talents_learned,omitempty"`

	RelationshipChanges map[string]int `json:"relationship_changes,omitempty"`
	QiGained            int            `json:"qi_gained,omitempty"`
	EnlightenmentGained int            `json:"enlightenment_gained,omitempty"`
	ContributionGained  int            `json:"contribution_gained,omitempty"`
	InterventionGained  int            `json:"intervention_gained,omitempty"`

	ElapsedMinutes   int           `json:"elapsed_minutes,omitempty"`
	SuggestedActions []string      `json:"suggested_actions,omitempty"`
	Summary          string        `json:"summary,omitempty"`
	Combat           *CombatSignal `json:"combat,omitempty"`
}

// MonsterSpawn places a fresh copy of a known monster under a new id.
type MonsterSpawn struct {
	TemplateID string `json:"template_id"`
	ID         string `json:"id"`
	Location   string `json:"location,omitempty"`
}

// IsEmpty reports whether the update changes nothing but the turn counter.
func (u *KnowledgeUpdate) IsEmpty() bool {
	return u == nil || (u.Player == nil &&
		len(u.NPCs) == 0 && len(u.Monsters) == 0 && len(u.Spawns) == 0 && len(u.Companions) == 0 &&
		len(u.Locations) == 0 && len(u.Factions) == 0 && len(u.Quests) == 0 && len(u.Memories) == 0 &&
		len(u.ItemsGained) == 0 && len(u.ItemsLost) == 0 &&
		len(u.SkillsLearned) == 0 && len(u.TalentsLearned) == 0 &&
		len(u.RelationshipChanges) == 0 &&
		u.QiGained == 0 && u.EnlightenmentGained == 0 && u.ContributionGained == 0 && u.InterventionGained == 0 &&
		u.ElapsedMinutes == 0 && u.SuggestedActions == nil && u.Summary == "" && u.Combat == nil)
}

// DeltaWorker folds a knowledge update into a working copy of the state.
type DeltaWorker struct {
	gs     *GameState
	update *KnowledgeUpdate
	logger *slog.Logger
}

// NewDeltaWorker creates a worker that mutates gs in place.
func NewDeltaWorker(gs *GameState, update *KnowledgeUpdate, logger *slog.Logger) *DeltaWorker {
	if logger == nil {
		logger = discard
	}
	return &DeltaWorker{gs: gs, update: update, logger: logger}
}

// Apply snapshots the current state into history, advances the turn and
// applies every part of the update.
func (dw *DeltaWorker) Apply() {
	if dw.update == nil {
		return
	}
	u := dw.update

	dw.gs.pushHistory(dw.gs.snapshot())
	dw.gs.Turn++

	if u.Player != nil {
		p := u.Player.Clone()
		p.Kind = actor.KindPlayer
		p.RecalculateStats()
		dw.gs.Player = p
	}
	dw.gs.NPCs = upsertCharacters(dw.gs.NPCs, u.NPCs, actor.KindNPC)
	dw.gs.Monsters = upsertCharacters(dw.gs.Monsters, u.Monsters, actor.KindMonster)
	dw.spawnMonsters(u.Spawns)
	dw.gs.Companions = upsertCharacters(dw.gs.Companions, u.Companions, actor.KindCompanion)

	dw.gs.Locations = upsert(dw.gs.Locations, cloneEach(u.Locations, func(l Location) Location {
		l.Exits = slices.Clone(l.Exits)
		return l
	}), func(l Location) string { return l.ID })
	dw.gs.Factions = upsert(dw.gs.Factions, u.Factions, func(f Faction) string { return f.ID })
	dw.gs.Quests = upsert(dw.gs.Quests, cloneEach(u.Quests, func(q Quest) Quest {
		q.Objectives = slices.Clone(q.Objectives)
		return q
	}), func(q Quest) string { return q.ID })
	dw.gs.Memories = upsert(dw.gs.Memories, u.Memories, func(m Memory) string { return m.ID })

	if player := dw.gs.Player; player != nil {
		dw.applyPlayerGains(player)
	} else if u.hasPlayerGains() {
		dw.logger.Warn("Knowledge update carries player gains but the game has no player",
			"game_id", dw.gs.ID.String())
	}

	for id, delta := range u.RelationshipChanges {
		c := dw.gs.FindCharacter(id)
		if c == nil || c == dw.gs.Player {
			dw.logger.Warn("Relationship change for unknown character",
				"game_id", dw.gs.ID.String(),
				"character_id", id)
			continue
		}
		c.AdjustRelationship(delta)
	}

	if u.ElapsedMinutes > 0 {
		dw.gs.ElapsedMinutes += u.ElapsedMinutes
	}
	if u.SuggestedActions != nil {
		dw.gs.SuggestedActions = slices.Clone(u.SuggestedActions)
	}
	if u.Summary != "" {
		dw.gs.Summary = u.Summary
	}
	dw.applyCombatSignal()
}

func (u *KnowledgeUpdate) hasPlayerGains() bool {
	return len(u.ItemsGained) > 0 || len(u.ItemsLost) > 0 || len(u.SkillsLearned) > 0 ||
		len(u.TalentsLearned) > 0 || u.QiGained != 0 || u.EnlightenmentGained != 0 ||
		u.ContributionGained != 0 || u.InterventionGained != 0
}

func (dw *DeltaWorker) applyPlayerGains(p *actor.Character) {
	u := dw.update

	for _, item := range u.ItemsGained {
		if item.Name == "" {
			continue
		}
		p.Inventory = actor.AddItem(p.Inventory, item)
	}
	for _, lost := range u.ItemsLost {
		qty := min(lost.Quantity, actor.CountItem(p.Inventory, lost.Name))
		if qty <= 0 {
			dw.logger.Warn("Cannot remove item the player does not hold",
				"game_id", dw.gs.ID.String(),
				"item", lost.Name)
			continue
		}
		var ok bool
		if p.Inventory, ok = actor.RemoveItem(p.Inventory, lost.Name, qty); !ok {
			dw.logger.Warn("Item removal failed",
				"game_id", dw.gs.ID.String(),
				"item", lost.Name,
				"quantity", qty)
		}
	}

	for _, s := range u.SkillsLearned {
		if s.ID == "" {
			continue
		}
		learnSkill(p, s)
	}
	for _, t := range u.TalentsLearned {
		if t.ID == "" || knowsTalent(p, t.ID) {
			continue
		}
		p.LearnedTalents = append(p.LearnedTalents, t)
	}

	if u.QiGained != 0 || u.EnlightenmentGained != 0 {
		if p.Cultivation == nil {
			p.Cultivation = &actor.Cultivation{}
		}
		p.Cultivation.Qi = max(0, p.Cultivation.Qi+u.QiGained)
		p.Cultivation.Enlightenment = max(0, p.Cultivation.Enlightenment+u.EnlightenmentGained)
	}
	if u.ContributionGained != 0 {
		if p.Sect == nil {
			dw.logger.Warn("Contribution gained outside a sect", "game_id", dw.gs.ID.String())
		} else {
			p.Sect.Contribution = max(0, p.Sect.Contribution+u.ContributionGained)
		}
	}
	p.InterventionPoints = max(0, p.InterventionPoints+u.InterventionGained)
}

// spawnMonsters instantiates each spawn from a monster already in the state.
// Spawns naming an unknown template or a taken id are skipped.
func (dw *DeltaWorker) spawnMonsters(spawns []MonsterSpawn) {
	for _, sp := range spawns {
		if sp.ID == "" || dw.gs.FindCharacter(sp.ID) != nil {
			dw.logger.Warn("Monster spawn id missing or taken",
				"game_id", dw.gs.ID.String(),
				"id", sp.ID)
			continue
		}
		idx := indexByID(dw.gs.Monsters, sp.TemplateID)
		if idx < 0 {
			dw.logger.Warn("Monster spawn template not found",
				"game_id", dw.gs.ID.String(),
				"template_id", sp.TemplateID)
			continue
		}
		template := &dw.gs.Monsters[idx]
		loc := sp.Location
		if loc == "" {
			loc = template.Location
		}
		dw.gs.Monsters = append(dw.gs.Monsters, *actor.SpawnMonster(template, sp.ID, loc))
	}
}

// learnSkill adds s or replaces the known skill with the same id. Talents
// slotted in s leave the free pool; talents the old copy held that s does not
// return to it.
func learnSkill(p *actor.Character, s actor.Skill) {
	learned := s.Clone()
	for _, t := range learned.Talents {
		if i := actor.TalentIndex(p.LearnedTalents, t.ID); i >= 0 {
			p.LearnedTalents = slices.Delete(p.LearnedTalents, i, i+1)
		}
	}

	idx := p.SkillIndex(s.ID)
	if idx < 0 {
		p.Skills = append(p.Skills, learned)
		return
	}
	for _, t := range p.Skills[idx].Talents {
		if actor.TalentIndex(learned.Talents, t.ID) < 0 {
			p.LearnedTalents = append(p.LearnedTalents, t)
		}
	}
	p.Skills[idx] = learned
}

// knowsTalent reports whether id is in the free pool or slotted in any skill.
func knowsTalent(c *actor.Character, id string) bool {
	if actor.TalentIndex(c.LearnedTalents, id) >= 0 {
		return true
	}
	for _, s := range c.Skills {
		if actor.TalentIndex(s.Talents, id) >= 0 {
			return true
		}
	}
	return false
}

func (dw *DeltaWorker) applyCombatSignal() {
	sig := dw.update.Combat
	if sig == nil {
		return
	}
	switch {
	case sig.Start:
		dw.gs.Combat = CombatState{
			Active:       true,
			Status:       combat.StatusStarting,
			CombatantIDs: slices.Clone(sig.CombatantIDs),
		}
		dw.logger.Info("Combat started",
			"game_id", dw.gs.ID.String(),
			"combatants", sig.CombatantIDs)
	case sig.End:
		dw.gs.Combat.Active = false
		dw.gs.Combat.Status = combat.StatusNotInCombat
		dw.gs.Combat.CombatantIDs = nil
		dw.logger.Info("Combat ended", "game_id", dw.gs.ID.String())
	}
}

func upsertCharacters(existing, incoming []actor.Character, kind actor.Kind) []actor.Character {
	for _, c := range incoming {
		if c.ID == "" {
			continue
		}
		cp := c.Clone()
		cp.Kind = kind
		cp.RecalculateStats()
		if idx := indexByID(existing, cp.ID); idx >= 0 {
			existing[idx] = *cp
		} else {
			existing = append(existing, *cp)
		}
	}
	return existing
}

func upsert[T any](existing, incoming []T, key func(T) string) []T {
	for _, v := range incoming {
		id := key(v)
		if id == "" {
			continue
		}
		if idx := findByID(existing, id, key); idx >= 0 {
			existing[idx] = v
		} else {
			existing = append(existing, v)
		}
	}
	return existing
}
