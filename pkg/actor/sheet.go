package actor

import (
	"fmt"
	"maps"

	"github.com/jwebster45206/d20"
)

// baseArmorClass is added to half the defense stat to get a d20 armor class.
const baseArmorClass = 10

// Sheet is the read-only character sheet served to clients.
type Sheet struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Title           string          `json:"title,omitempty"`
	Level           int             `json:"level,omitempty"`
	HP              int             `json:"hp"`
	MaxHP           int             `json:"max_hp"`
	AC              int             `json:"ac"`
	Attributes      map[string]int  `json:"attributes"`
	CombatModifiers map[string]int  `json:"combat_modifiers,omitempty"`
	Equipment       map[Slot]string `json:"equipment,omitempty"`
	Skills          []SheetSkill    `json:"skills,omitempty"`
}

// SheetSkill summarises one skill on the sheet.
type SheetSkill struct {
	Name    string `json:"name"`
	Level   int    `json:"level"`
	Mastery string `json:"mastery"`
}

// NewD20Actor builds a d20 actor from the character's derived stats.
// Each equipped item contributes a combat modifier named after the item
// holding its attack bonus.
func NewD20Actor(c *Character) (*d20.Actor, error) {
	if c == nil {
		return nil, fmt.Errorf("character cannot be nil")
	}
	if c.Health.Max <= 0 {
		return nil, fmt.Errorf("character %s has no health pool", c.ID)
	}

	mods := make(map[string]int)
	for _, item := range c.Equipment {
		if item == nil {
			continue
		}
		for _, e := range item.Effects {
			if e.Stat == StatAttack && e.Value != 0 {
				mods[item.Name] += e.Value
			}
		}
	}

	a, err := d20.NewActor(c.ID).
		WithHP(c.Health.Max).
		WithAC(baseArmorClass + c.Stat(StatDefense)/2).
		WithAttributes(maps.Clone(c.Stats)).
		WithCombatModifiers(mods).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	if c.Health.Current != c.Health.Max && c.Health.Current > 0 {
		if err := a.SetHP(c.Health.Current); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return a, nil
}

// NewSheet renders a character sheet through its d20 actor.
func NewSheet(c *Character) (*Sheet, error) {
	a, err := NewD20Actor(c)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{
		ID:         c.ID,
		Name:       c.Label(),
		Title:      c.Title,
		Level:      c.Level,
		HP:         a.HP(),
		MaxHP:      a.MaxHP(),
		AC:         a.AC(),
		Attributes: make(map[string]int, len(c.Stats)),
	}
	if c.Health.Current <= 0 {
		sheet.HP = 0
	}
	for key := range c.Stats {
		if val, ok := a.Attribute(key); ok {
			sheet.Attributes[key] = val
		}
	}
	for _, mod := range a.GetCombatModifiers() {
		if sheet.CombatModifiers == nil {
			sheet.CombatModifiers = make(map[string]int)
		}
		sheet.CombatModifiers[mod.Reason] = mod.Value
	}
	for slot, item := range c.Equipment {
		if item == nil {
			continue
		}
		if sheet.Equipment == nil {
			sheet.Equipment = make(map[Slot]string)
		}
		sheet.Equipment[slot] = item.Name
	}
	for _, s := range c.Skills {
		sheet.Skills = append(sheet.Skills, SheetSkill{Name: s.Name, Level: s.Level, Mastery: s.Mastery.String()})
	}
	return sheet, nil
}
