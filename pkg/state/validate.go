package state

import (
	"fmt"

	"github.com/jwebster45206/rules-engine/pkg/actor"
)

// Validate checks the engine invariants and returns every violation found.
// A state produced only by Apply from a valid state always passes.
func Validate(gs *GameState) []error {
	if gs == nil {
		return []error{fmt.Errorf("state is nil")}
	}
	var errs []error
	if !gs.Genre.Valid() {
		errs = append(errs, fmt.Errorf("unknown genre %q", gs.Genre))
	}
	if gs.Player == nil {
		errs = append(errs, fmt.Errorf("state has no player"))
	} else {
		errs = append(errs, validateCharacter(gs.Player)...)
	}
	for _, list := range [][]actor.Character{gs.NPCs, gs.Monsters, gs.Companions} {
		for i := range list {
			errs = append(errs, validateCharacter(&list[i])...)
		}
	}

	if g := gs.Guild; g != nil {
		if g.Resources.Negative() {
			errs = append(errs, fmt.Errorf("guild %s has negative resources %+v", g.ID, g.Resources))
		}
		if len(g.Members) > g.MaxMembers {
			errs = append(errs, fmt.Errorf("guild %s has %d members, limit %d", g.ID, len(g.Members), g.MaxMembers))
		}
		seen := make(map[string]bool, len(g.Diplomacy))
		for _, rel := range g.Diplomacy {
			if seen[rel.FactionID] {
				errs = append(errs, fmt.Errorf("guild %s has duplicate relation for %s", g.ID, rel.FactionID))
			}
			seen[rel.FactionID] = true
		}
	}

	for i, h := range gs.History {
		if len(h.History) > 0 {
			errs = append(errs, fmt.Errorf("history snapshot %d carries nested history", i))
		}
	}
	return errs
}

func validateCharacter(c *actor.Character) []error {
	var errs []error
	if !c.StatsConsistent() {
		errs = append(errs, fmt.Errorf("%s: stats do not match base stats plus equipment", c.ID))
	}
	stacks := make(map[string]bool, len(c.Inventory))
	for _, it := range c.Inventory {
		if it.Quantity <= 0 {
			errs = append(errs, fmt.Errorf("%s: inventory stack %s has quantity %d", c.ID, it.Name, it.Quantity))
		}
		if stacks[it.Name] {
			errs = append(errs, fmt.Errorf("%s: inventory holds more than one %s stack", c.ID, it.Name))
		}
		stacks[it.Name] = true
	}
	for slot := range c.Equipment {
		if !actor.ValidSlot(slot) {
			errs = append(errs, fmt.Errorf("%s: unknown equipment slot %q", c.ID, slot))
		}
	}

	owner := make(map[string]string)
	for _, t := range c.LearnedTalents {
		if prev, dup := owner[t.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: talent %s held by both %s and the free pool", c.ID, t.ID, prev))
		}
		owner[t.ID] = "the free pool"
	}
	for _, s := range c.Skills {
		if len(s.Talents) > s.TalentSlots {
			errs = append(errs, fmt.Errorf("%s: skill %s has %d talents in %d slots", c.ID, s.ID, len(s.Talents), s.TalentSlots))
		}
		for _, t := range s.Talents {
			if prev, dup := owner[t.ID]; dup {
				errs = append(errs, fmt.Errorf("%s: talent %s held by both %s and skill %s", c.ID, t.ID, prev, s.ID))
			}
			owner[t.ID] = "skill " + s.ID
		}
	}

	if cult := c.Cultivation; cult != nil && (cult.Qi < 0 || cult.Enlightenment < 0) {
		errs = append(errs, fmt.Errorf("%s: negative cultivation resources", c.ID))
	}
	if c.Sect != nil && c.Sect.Contribution < 0 {
		errs = append(errs, fmt.Errorf("%s: negative sect contribution", c.ID))
	}
	if c.InterventionPoints < 0 {
		errs = append(errs, fmt.Errorf("%s: negative intervention points", c.ID))
	}
	if c.Sect != nil && c.GuildID != "" {
		errs = append(errs, fmt.Errorf("%s: member of both a sect and a guild", c.ID))
	}
	if c.Relationship < actor.MinRelationship || c.Relationship > actor.MaxRelationship {
		errs = append(errs, fmt.Errorf("%s: relationship %d out of bounds", c.ID, c.Relationship))
	}
	return errs
}
