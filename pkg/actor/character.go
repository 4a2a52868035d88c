package actor

import (
	"maps"
	"slices"
)

// Kind distinguishes the collections a character can live in.
type Kind string

const (
	KindPlayer    Kind = "player"
	KindNPC       Kind = "npc"
	KindMonster   Kind = "monster"
	KindCompanion Kind = "companion"
)

// Stat keys read by the combat resolver.
const (
	StatAttack  = "attack"
	StatDefense = "defense"
	StatSpeed   = "speed"
)

// Relationship bounds. Characters below HostileThreshold refuse to be recruited.
const (
	MinRelationship  = -100
	MaxRelationship  = 100
	HostileThreshold = -50
)

// Resource is a bounded pool such as health or mana.
type Resource struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Clamp keeps Current inside [0, Max].
func (r Resource) Clamp() Resource {
	if r.Current < 0 {
		r.Current = 0
	}
	if r.Max > 0 && r.Current > r.Max {
		r.Current = r.Max
	}
	return r
}

// SectMembership records a character's standing in a cultivation sect.
type SectMembership struct {
	SectID       string `json:"sect_id"`
	Rank         string `json:"rank,omitempty"`
	Contribution int    `json:"contribution"`
}

// Cultivation holds the cultivation-genre progression of a character.
type Cultivation struct {
	Realm         string          `json:"realm,omitempty"`
	Path          string          `json:"path,omitempty"`
	Qi            int             `json:"qi"`
	Enlightenment int             `json:"enlightenment"`
	Meridians     map[string]bool `json:"meridians,omitempty"` // unlocked acupoint ids
}

// Character is any actor in the world: the player, NPCs, monsters and companions.
// ID and Name never change after creation; renames only touch DisplayName.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Title       string `json:"title,omitempty"`
	Kind        Kind   `json:"kind"`
	Level       int    `json:"level,omitempty"`
	Location    string `json:"location,omitempty"`

	BaseStats map[string]int `json:"base_stats,omitempty"`
	Stats     map[string]int `json:"stats,omitempty"` // BaseStats plus equipment, see RecalculateStats
	Health    Resource       `json:"health"`
	Mana      Resource       `json:"mana"`

	Currency       int            `json:"currency,omitempty"`
	Inventory      []Item         `json:"inventory,omitempty"`
	Equipment      map[Slot]*Item `json:"equipment,omitempty"`
	Skills         []Skill        `json:"skills,omitempty"`
	LearnedTalents []Talent       `json:"learned_talents,omitempty"` // talents not slotted into any skill

	Relationship int  `json:"relationship,omitempty"`
	Dead         bool `json:"dead,omitempty"`

	GuildID            string          `json:"guild_id,omitempty"`
	Sect               *SectMembership `json:"sect,omitempty"`
	Cultivation        *Cultivation    `json:"cultivation,omitempty"`
	InterventionPoints int             `json:"intervention_points,omitempty"`
}

// Label returns the name shown to the player.
func (c *Character) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// Stat returns a derived stat, zero when absent.
func (c *Character) Stat(key string) int {
	return c.Stats[key]
}

// Alive reports whether the character can still act in the world.
func (c *Character) Alive() bool {
	return !c.Dead
}

// Hostile reports whether the character's relationship is below HostileThreshold.
func (c *Character) Hostile() bool {
	return c.Relationship < HostileThreshold
}

// AdjustRelationship adds delta and clamps to the relationship bounds.
func (c *Character) AdjustRelationship(delta int) {
	c.Relationship = ClampRelationship(c.Relationship + delta)
}

// ClampRelationship bounds v to [MinRelationship, MaxRelationship].
func ClampRelationship(v int) int {
	return min(max(v, MinRelationship), MaxRelationship)
}

// SkillIndex returns the index of the skill with id, or -1.
func (c *Character) SkillIndex(id string) int {
	return slices.IndexFunc(c.Skills, func(s Skill) bool { return s.ID == id })
}

// Clone returns a deep copy. No slice, map or pointer is shared with c.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	cp := *c
	cp.BaseStats = maps.Clone(c.BaseStats)
	cp.Stats = maps.Clone(c.Stats)
	cp.Inventory = cloneItems(c.Inventory)
	if c.Equipment != nil {
		cp.Equipment = make(map[Slot]*Item, len(c.Equipment))
		for slot, item := range c.Equipment {
			cp.Equipment[slot] = item.Clone()
		}
	}
	if c.Skills != nil {
		cp.Skills = make([]Skill, len(c.Skills))
		for i := range c.Skills {
			cp.Skills[i] = c.Skills[i].Clone()
		}
	}
	cp.LearnedTalents = slices.Clone(c.LearnedTalents)
	if c.Sect != nil {
		sect := *c.Sect
		cp.Sect = &sect
	}
	if c.Cultivation != nil {
		cult := *c.Cultivation
		cult.Meridians = maps.Clone(c.Cultivation.Meridians)
		cp.Cultivation = &cult
	}
	return &cp
}

// CloneAll deep copies a slice of characters.
func CloneAll(cs []Character) []Character {
	if cs == nil {
		return nil
	}
	out := make([]Character, len(cs))
	for i := range cs {
		out[i] = *cs[i].Clone()
	}
	return out
}
