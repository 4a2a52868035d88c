package state

// Genre selects which rule sets a game runs with.
type Genre string

const (
	GenreFantasy     Genre = "fantasy"
	GenreCultivation Genre = "cultivation"
	GenreSystem      Genre = "system"
)

// Capability is a genre-gated rule set.
type Capability uint

const (
	CapCrafting Capability = 1 << iota
	CapGuilds
	CapBreakthrough
	CapMeridians
	CapStore
	CapCompanions
)

var genreCapabilities = map[Genre]Capability{
	GenreFantasy:     CapCrafting | CapGuilds,
	GenreCultivation: CapCrafting | CapGuilds | CapBreakthrough | CapMeridians | CapStore | CapCompanions,
	GenreSystem:      CapCrafting | CapStore,
}

// Currency names the resource a genre's store charges.
type Currency string

const (
	CurrencyContribution Currency = "contribution"
	CurrencyIntervention Currency = "intervention"
)

var storeCurrency = map[Genre]Currency{
	GenreCultivation: CurrencyContribution,
	GenreSystem:      CurrencyIntervention,
}

func (g Genre) normalized() Genre {
	if g == "" {
		return GenreFantasy
	}
	return g
}

// Valid reports whether g is a known genre. The empty genre counts as fantasy.
func (g Genre) Valid() bool {
	_, ok := genreCapabilities[g.normalized()]
	return ok
}

// Has reports whether the genre enables c.
func (g Genre) Has(c Capability) bool {
	return genreCapabilities[g.normalized()]&c == c
}

// StoreCurrency returns the currency the genre's store charges, if it has one.
func (g Genre) StoreCurrency() (Currency, bool) {
	cur, ok := storeCurrency[g.normalized()]
	return cur, ok
}

func (c Capability) String() string {
	switch c {
	case CapCrafting:
		return "crafting"
	case CapGuilds:
		return "guilds"
	case CapBreakthrough:
		return "mastery breakthrough"
	case CapMeridians:
		return "meridians"
	case CapStore:
		return "store"
	case CapCompanions:
		return "companions"
	default:
		return "capability"
	}
}
