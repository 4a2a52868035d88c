package actor

import (
	"slices"
	"strings"
)

// Slot is an equipment position on a character.
type Slot string

const (
	SlotWeapon     Slot = "Weapon"
	SlotHelmet     Slot = "Helmet"
	SlotChestArmor Slot = "Chest Armor"
	SlotBoots      Slot = "Boots"
	SlotAccessory  Slot = "Accessory"
)

// Slots lists every equipment slot in display order.
var Slots = []Slot{SlotWeapon, SlotHelmet, SlotChestArmor, SlotBoots, SlotAccessory}

var slotsByType = map[string]Slot{
	"weapon":      SlotWeapon,
	"helmet":      SlotHelmet,
	"chest armor": SlotChestArmor,
	"armor":       SlotChestArmor,
	"boots":       SlotBoots,
	"accessory":   SlotAccessory,
}

// SlotFor maps an item type to the slot it occupies.
// Items of any other type (potions, materials) are not equippable.
func SlotFor(itemType string) (Slot, bool) {
	slot, ok := slotsByType[strings.ToLower(strings.TrimSpace(itemType))]
	return slot, ok
}

// ValidSlot reports whether s names an equipment slot.
func ValidSlot(s Slot) bool {
	return slices.Contains(Slots, s)
}

// StatEffect is a flat bonus to one stat.
type StatEffect struct {
	Stat  string `json:"stat"`
	Value int    `json:"value"`
}

// Item is a stack in an inventory or a single equipped piece.
// Name is unique within one inventory.
type Item struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Quantity    int          `json:"quantity"`
	Effects     []StatEffect `json:"effects,omitempty"`
	Description string       `json:"description,omitempty"`
}

// Clone copies the item and its effects.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Effects = slices.Clone(i.Effects)
	return &cp
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i := range items {
		out[i] = *items[i].Clone()
	}
	return out
}

// FindItem returns the index of the stack named name, or -1.
func FindItem(inv []Item, name string) int {
	return slices.IndexFunc(inv, func(it Item) bool { return it.Name == name })
}

// AddItem merges item into the stack with the same name, or appends a new stack.
// A zero quantity counts as one.
func AddItem(inv []Item, item Item) []Item {
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}
	if idx := FindItem(inv, item.Name); idx >= 0 {
		inv[idx].Quantity += qty
		return inv
	}
	added := *item.Clone()
	added.Quantity = qty
	return append(inv, added)
}

// RemoveItem takes qty units of name out of inv, draining stacks in order.
// Stacks reaching zero are dropped. It reports false, leaving inv untouched,
// when fewer than qty units are held across all stacks.
func RemoveItem(inv []Item, name string, qty int) ([]Item, bool) {
	if qty <= 0 || CountItem(inv, name) < qty {
		return inv, false
	}
	for i := range inv {
		if qty == 0 {
			break
		}
		if inv[i].Name != name || inv[i].Quantity <= 0 {
			continue
		}
		take := min(qty, inv[i].Quantity)
		inv[i].Quantity -= take
		qty -= take
	}
	return slices.DeleteFunc(inv, func(it Item) bool { return it.Name == name && it.Quantity <= 0 }), true
}

// CountItem returns how many units of name are held across all stacks.
func CountItem(inv []Item, name string) int {
	total := 0
	for _, it := range inv {
		if it.Name == name && it.Quantity > 0 {
			total += it.Quantity
		}
	}
	return total
}
