package actor

import "maps"

// RecalculateStats rebuilds Stats from BaseStats plus every effect of every
// equipped item. Keys absent from BaseStats start at zero. Running it twice
// yields the same result.
func (c *Character) RecalculateStats() {
	stats := make(map[string]int, len(c.BaseStats))
	maps.Copy(stats, c.BaseStats)
	for _, item := range c.Equipment {
		if item == nil {
			continue
		}
		for _, e := range item.Effects {
			stats[e.Stat] += e.Value
		}
	}
	c.Stats = stats
}

// AddBaseStats folds effects permanently into BaseStats and recomputes Stats.
func (c *Character) AddBaseStats(effects []StatEffect) {
	if c.BaseStats == nil {
		c.BaseStats = make(map[string]int, len(effects))
	}
	for _, e := range effects {
		c.BaseStats[e.Stat] += e.Value
	}
	c.RecalculateStats()
}

// StatsConsistent reports whether Stats matches a fresh derivation.
func (c *Character) StatsConsistent() bool {
	probe := Character{BaseStats: c.BaseStats, Equipment: c.Equipment}
	probe.RecalculateStats()
	for k, v := range probe.Stats {
		if c.Stats[k] != v {
			return false
		}
	}
	for k, v := range c.Stats {
		if v != 0 && probe.Stats[k] != v {
			return false
		}
	}
	return true
}
