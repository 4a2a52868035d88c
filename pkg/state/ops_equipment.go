package state

import (
	"slices"

	"github.com/jwebster45206/rules-engine/pkg/actor"
)

func requireField(name, value string) *Rejection {
	if value == "" {
		return reject(RejectMalformed, "%s is required", name)
	}
	return nil
}

func requireCapability(gs *GameState, c Capability) *Rejection {
	if !gs.Genre.Has(c) {
		return reject(RejectGenre, "%s is not available in %s games", c, gs.Genre.normalized())
	}
	return nil
}

func requirePlayer(gs *GameState) (*actor.Character, *Rejection) {
	if gs.Player == nil {
		return nil, reject(RejectNotFound, "game has no player")
	}
	return gs.Player, nil
}

func findCharacter(gs *GameState, id string) (*actor.Character, *Rejection) {
	if rej := requireField("character_id", id); rej != nil {
		return nil, rej
	}
	c := gs.FindCharacter(id)
	if c == nil {
		return nil, reject(RejectNotFound, "character %s not found", id)
	}
	return c, nil
}

func equipItem(gs *GameState, a EquipItem) *Rejection {
	c, rej := findCharacter(gs, a.CharacterID)
	if rej != nil {
		return rej
	}
	if rej := requireField("item.name", a.Item.Name); rej != nil {
		return rej
	}
	idx := actor.FindItem(c.Inventory, a.Item.Name)
	if idx < 0 {
		return reject(RejectNotFound, "%s is not in %s's inventory", a.Item.Name, c.ID)
	}
	held := c.Inventory[idx]
	slot, ok := actor.SlotFor(held.Type)
	if !ok {
		return reject(RejectPrecondition, "%s (%s) cannot be equipped", held.Name, held.Type)
	}

	equipped := held.Clone()
	equipped.Quantity = 1
	var removed bool
	if c.Inventory, removed = actor.RemoveItem(c.Inventory, held.Name, 1); !removed {
		return reject(RejectInsufficient, "%s has no %s left to equip", c.ID, held.Name)
	}

	if c.Equipment == nil {
		c.Equipment = make(map[actor.Slot]*actor.Item)
	}
	if prev := c.Equipment[slot]; prev != nil {
		c.Inventory = actor.AddItem(c.Inventory, *prev)
	}
	c.Equipment[slot] = equipped
	c.RecalculateStats()
	return nil
}

func unequipItem(gs *GameState, a UnequipItem) *Rejection {
	c, rej := findCharacter(gs, a.CharacterID)
	if rej != nil {
		return rej
	}
	if !actor.ValidSlot(a.Slot) {
		return reject(RejectMalformed, "unknown slot %q", a.Slot)
	}
	item := c.Equipment[a.Slot]
	if item == nil {
		return reject(RejectPrecondition, "%s slot is empty", a.Slot)
	}
	c.Inventory = actor.AddItem(c.Inventory, *item)
	delete(c.Equipment, a.Slot)
	c.RecalculateStats()
	return nil
}

func findSkill(c *actor.Character, id string) (*actor.Skill, *Rejection) {
	if rej := requireField("skill_id", id); rej != nil {
		return nil, rej
	}
	idx := c.SkillIndex(id)
	if idx < 0 {
		return nil, reject(RejectNotFound, "%s does not know skill %s", c.ID, id)
	}
	return &c.Skills[idx], nil
}

func equipTalent(gs *GameState, a EquipTalent) *Rejection {
	c, rej := findCharacter(gs, a.CharacterID)
	if rej != nil {
		return rej
	}
	skill, rej := findSkill(c, a.SkillID)
	if rej != nil {
		return rej
	}
	if rej := requireField("talent_id", a.TalentID); rej != nil {
		return rej
	}
	idx := actor.TalentIndex(c.LearnedTalents, a.TalentID)
	if idx < 0 {
		return reject(RejectNotFound, "talent %s is not in the free pool", a.TalentID)
	}
	if len(skill.Talents) >= skill.TalentSlots {
		return reject(RejectCapacity, "%s has no free talent slot", skill.ID)
	}
	skill.Talents = append(skill.Talents, c.LearnedTalents[idx])
	c.LearnedTalents = slices.Delete(c.LearnedTalents, idx, idx+1)
	return nil
}

func unequipTalent(gs *GameState, a UnequipTalent) *Rejection {
	c, rej := findCharacter(gs, a.CharacterID)
	if rej != nil {
		return rej
	}
	skill, rej := findSkill(c, a.SkillID)
	if rej != nil {
		return rej
	}
	if rej := requireField("talent_id", a.TalentID); rej != nil {
		return rej
	}
	idx := actor.TalentIndex(skill.Talents, a.TalentID)
	if idx < 0 {
		return reject(RejectNotFound, "talent %s is not slotted in %s", a.TalentID, skill.ID)
	}
	c.LearnedTalents = append(c.LearnedTalents, skill.Talents[idx])
	skill.Talents = slices.Delete(skill.Talents, idx, idx+1)
	return nil
}
