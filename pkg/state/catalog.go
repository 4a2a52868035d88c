package state

import (
	"slices"

	"github.com/jwebster45206/rules-engine/pkg/actor"
)

// Material is a named quantity of an inventory item.
type Material struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Recipe turns materials into exactly one output item.
type Recipe struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Materials []Material `json:"materials"`
	Output    actor.Item `json:"output"`
}

func (r Recipe) clone() Recipe {
	r.Materials = slices.Clone(r.Materials)
	r.Output = *r.Output.Clone()
	return r
}

// ListingKind says what a store listing grants.
type ListingKind string

const (
	ListingItem  ListingKind = "item"
	ListingSkill ListingKind = "skill"
)

// StoreListing is something the player can buy with the genre's store currency.
type StoreListing struct {
	ID    string       `json:"id"`
	Kind  ListingKind  `json:"kind"`
	Price int          `json:"price"`
	Item  *actor.Item  `json:"item,omitempty"`
	Skill *actor.Skill `json:"skill,omitempty"`
}

func (l StoreListing) clone() StoreListing {
	l.Item = l.Item.Clone()
	if l.Skill != nil {
		s := l.Skill.Clone()
		l.Skill = &s
	}
	return l
}

// Acupoint is one node of the meridian tree.
type Acupoint struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Cost         int                `json:"cost"`
	Effects      []actor.StatEffect `json:"effects,omitempty"`
	Prerequisite string             `json:"prerequisite,omitempty"` // parent node that must be unlocked first
}

func findByID[T any](list []T, id string, key func(T) string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(list, func(v T) bool { return key(v) == id })
}
