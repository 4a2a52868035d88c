package state

import (
	"maps"
	"slices"

	"github.com/jwebster45206/rules-engine/pkg/actor"
)

// Resources is a guild's stockpile. No field is ever negative.
type Resources struct {
	Gold int `json:"gold"`
	Wood int `json:"wood"`
	Ore  int `json:"ore"`
}

// Covers reports whether r holds at least cost of every kind.
func (r Resources) Covers(cost Resources) bool {
	return r.Gold >= cost.Gold && r.Wood >= cost.Wood && r.Ore >= cost.Ore
}

// Add returns the component-wise sum.
func (r Resources) Add(o Resources) Resources {
	return Resources{Gold: r.Gold + o.Gold, Wood: r.Wood + o.Wood, Ore: r.Ore + o.Ore}
}

// Sub returns the component-wise difference.
func (r Resources) Sub(o Resources) Resources {
	return Resources{Gold: r.Gold - o.Gold, Wood: r.Wood - o.Wood, Ore: r.Ore - o.Ore}
}

// IsZero reports whether every component is zero.
func (r Resources) IsZero() bool {
	return r == Resources{}
}

// Negative reports whether any component is below zero.
func (r Resources) Negative() bool {
	return r.Gold < 0 || r.Wood < 0 || r.Ore < 0
}

// BuildingKind names one of the three guild buildings.
type BuildingKind string

const (
	BuildingMainHall       BuildingKind = "main_hall"
	BuildingMarket         BuildingKind = "market"
	BuildingTrainingGround BuildingKind = "training_ground"
)

// Buildings lists every guild building.
var Buildings = []BuildingKind{BuildingMainHall, BuildingMarket, BuildingTrainingGround}

// Upgrade is the cost and reward of raising a building to a level.
type Upgrade struct {
	Cost    Resources          `json:"cost"`
	Members int                `json:"members,omitempty"`
	Income  Resources          `json:"income,omitempty"`
	Stats   []actor.StatEffect `json:"stats,omitempty"`
}

// buildingUpgrades is keyed by building then by the level being reached.
var buildingUpgrades = map[BuildingKind]map[int]Upgrade{
	BuildingMainHall: {
		2: {Cost: Resources{500, 300, 200}, Members: 5},
		3: {Cost: Resources{1200, 800, 500}, Members: 5},
		4: {Cost: Resources{2500, 1600, 1000}, Members: 10},
		5: {Cost: Resources{5000, 3000, 2000}, Members: 10},
	},
	BuildingMarket: {
		2: {Cost: Resources{400, 200, 300}, Income: Resources{50, 0, 0}},
		3: {Cost: Resources{1000, 500, 700}, Income: Resources{100, 20, 20}},
		4: {Cost: Resources{2200, 1200, 1500}, Income: Resources{200, 40, 40}},
		5: {Cost: Resources{4500, 2500, 3000}, Income: Resources{400, 80, 80}},
	},
	BuildingTrainingGround: {
		2: {Cost: Resources{600, 400, 400}, Stats: []actor.StatEffect{{Stat: actor.StatAttack, Value: 2}, {Stat: actor.StatDefense, Value: 2}}},
		3: {Cost: Resources{1500, 900, 900}, Stats: []actor.StatEffect{{Stat: actor.StatAttack, Value: 3}, {Stat: actor.StatDefense, Value: 3}, {Stat: actor.StatSpeed, Value: 1}}},
		4: {Cost: Resources{3000, 2000, 2000}, Stats: []actor.StatEffect{{Stat: actor.StatAttack, Value: 5}, {Stat: actor.StatDefense, Value: 5}, {Stat: actor.StatSpeed, Value: 2}}},
		5: {Cost: Resources{6000, 4000, 4000}, Stats: []actor.StatEffect{{Stat: actor.StatAttack, Value: 8}, {Stat: actor.StatDefense, Value: 8}, {Stat: actor.StatSpeed, Value: 3}}},
	},
}

// NextUpgrade returns the upgrade that raises kind from its current level.
func NextUpgrade(kind BuildingKind, current int) (Upgrade, bool) {
	up, ok := buildingUpgrades[kind][current+1]
	return up, ok
}

// Starting values for a new guild.
var (
	StartingResources  = Resources{Gold: 1000, Wood: 500, Ore: 300}
	BaseMaxMembers     = 10
	startingBuildLevel = 1
)

// MemberCap is the member limit granted by a main hall at level.
func MemberCap(level int) int {
	limit := BaseMaxMembers
	for l := 2; l <= level; l++ {
		limit += buildingUpgrades[BuildingMainHall][l].Members
	}
	return limit
}

// DiplomacyStatus is the stance toward a foreign faction.
type DiplomacyStatus string

const (
	DiplomacyWar     DiplomacyStatus = "War"
	DiplomacyAlly    DiplomacyStatus = "Ally"
	DiplomacyNeutral DiplomacyStatus = "Neutral"
)

// Valid reports whether s is a known stance.
func (s DiplomacyStatus) Valid() bool {
	switch s {
	case DiplomacyWar, DiplomacyAlly, DiplomacyNeutral:
		return true
	}
	return false
}

// Relation is the guild's stance toward one faction.
type Relation struct {
	FactionID string          `json:"faction_id"`
	Status    DiplomacyStatus `json:"status"`
}

// Guild is a player-owned organisation.
type Guild struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	OwnerID    string               `json:"owner_id"`
	Members    []string             `json:"members"`
	MaxMembers int                  `json:"max_members"`
	Buildings  map[BuildingKind]int `json:"buildings"`
	Resources  Resources            `json:"resources"`
	Income     Resources            `json:"income"`
	Diplomacy  []Relation           `json:"diplomacy,omitempty"`
}

// NewGuild creates a guild with level-1 buildings and starting resources.
func NewGuild(id, name, ownerID string) *Guild {
	g := &Guild{
		ID:         id,
		Name:       name,
		OwnerID:    ownerID,
		Members:    []string{ownerID},
		MaxMembers: MemberCap(startingBuildLevel),
		Buildings:  make(map[BuildingKind]int, len(Buildings)),
		Resources:  StartingResources,
	}
	for _, b := range Buildings {
		g.Buildings[b] = startingBuildLevel
	}
	return g
}

// IsMember reports whether id belongs to the guild.
func (g *Guild) IsMember(id string) bool {
	return slices.Contains(g.Members, id)
}

// SetRelation replaces the relation for factionID or appends a new one.
func (g *Guild) SetRelation(factionID string, status DiplomacyStatus) {
	for i := range g.Diplomacy {
		if g.Diplomacy[i].FactionID == factionID {
			g.Diplomacy[i].Status = status
			return
		}
	}
	g.Diplomacy = append(g.Diplomacy, Relation{FactionID: factionID, Status: status})
}

// Clone returns a deep copy of the guild.
func (g *Guild) Clone() *Guild {
	if g == nil {
		return nil
	}
	cp := *g
	cp.Members = slices.Clone(g.Members)
	cp.Buildings = maps.Clone(g.Buildings)
	cp.Diplomacy = slices.Clone(g.Diplomacy)
	return &cp
}
