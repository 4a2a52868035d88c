package actor

import "maps"

// SpawnMonster builds a monster instance from a template. The instance gets
// its own id and location, is alive, and starts at full health and mana
// whenever the template is spent.
func SpawnMonster(template *Character, id, location string) *Character {
	if template == nil {
		return nil
	}
	m := template.Clone()
	m.ID = id
	m.Kind = KindMonster
	m.Location = location
	m.Dead = false
	if m.BaseStats == nil {
		m.BaseStats = maps.Clone(template.Stats)
	}
	if m.Health.Current <= 0 {
		m.Health.Current = m.Health.Max
	}
	if m.Mana.Current <= 0 {
		m.Mana.Current = m.Mana.Max
	}
	m.Health = m.Health.Clamp()
	m.Mana = m.Mana.Clamp()
	m.RecalculateStats()
	return m
}

// TakeDamage reduces health by n. Health cannot go below 0.
func (c *Character) TakeDamage(n int) {
	if n <= 0 {
		return
	}
	c.Health.Current -= n
	if c.Health.Current < 0 {
		c.Health.Current = 0
	}
}

// Heal increases health by n. Health cannot exceed its maximum.
func (c *Character) Heal(n int) {
	if n <= 0 {
		return
	}
	c.Health.Current = min(c.Health.Current+n, c.Health.Max)
}

// RestoreMana increases mana by n, capped at its maximum.
func (c *Character) RestoreMana(n int) {
	if n <= 0 {
		return
	}
	c.Mana.Current = min(c.Mana.Current+n, c.Mana.Max)
}

// IsDefeated returns true if health is 0 or less.
func (c *Character) IsDefeated() bool {
	return c.Health.Current <= 0
}
