package actor

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Mastery is the ordered proficiency tier of a skill.
type Mastery int

const (
	MasteryNovice    Mastery = iota // Sơ Nhập
	MasteryAdept                    // Tiểu Thành
	MasteryExpert                   // Đại Thành
	MasteryPerfected                // Viên Mãn
	MasteryPinnacle                 // Đăng Phong Tạo Cực
)

var masteryNames = [...]string{
	MasteryNovice:    "Sơ Nhập",
	MasteryAdept:     "Tiểu Thành",
	MasteryExpert:    "Đại Thành",
	MasteryPerfected: "Viên Mãn",
	MasteryPinnacle:  "Đăng Phong Tạo Cực",
}

func (m Mastery) String() string {
	if m < MasteryNovice || m > MasteryPinnacle {
		return fmt.Sprintf("Mastery(%d)", int(m))
	}
	return masteryNames[m]
}

// Next returns the tier above m. ok is false at the top tier.
func (m Mastery) Next() (next Mastery, ok bool) {
	if m >= MasteryPinnacle {
		return m, false
	}
	return m + 1, true
}

// ParseMastery resolves a tier name. Input is NFC-normalised and case-folded,
// so decomposed Vietnamese text matches.
func ParseMastery(s string) (Mastery, error) {
	key := cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
	for i, name := range masteryNames {
		if cases.Fold().String(name) == key {
			return Mastery(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mastery tier %q", s)
}

// MarshalJSON writes the tier name.
func (m Mastery) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either the tier name or its index.
func (m *Mastery) UnmarshalJSON(data []byte) error {
	var idx int
	if err := json.Unmarshal(data, &idx); err == nil {
		if idx < int(MasteryNovice) || idx > int(MasteryPinnacle) {
			return fmt.Errorf("mastery tier %d out of range", idx)
		}
		*m = Mastery(idx)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("mastery must be a name or index: %w", err)
	}
	parsed, err := ParseMastery(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// RequiredMasteryXP is the mastery experience needed to break through from m
// at the given skill level.
func RequiredMasteryXP(m Mastery, level int) int {
	if level < 1 {
		level = 1
	}
	return 100 * (int(m) + 1) * level
}

// EffectKind names what a skill effect touches.
type EffectKind string

const (
	EffectDamage EffectKind = "damage"
	EffectHealth EffectKind = "health"
	EffectMana   EffectKind = "mana"
)

// SkillEffect is one outcome of using a skill in combat.
type SkillEffect struct {
	Kind  EffectKind `json:"kind"`
	Value int        `json:"value"`
}

// Talent is a passive modifier that is either in a character's learned pool
// or slotted into exactly one skill.
type Talent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Skill is a learned technique.
type Skill struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Level       int           `json:"level"`
	Experience  int           `json:"experience,omitempty"`
	Mastery     Mastery       `json:"mastery"`
	MasteryXP   int           `json:"mastery_xp,omitempty"`
	TalentSlots int           `json:"talent_slots,omitempty"`
	Talents     []Talent      `json:"talents,omitempty"`
	ManaCost    int           `json:"mana_cost,omitempty"`
	Effects     []SkillEffect `json:"effects,omitempty"`
}

// Clone copies the skill including its talents and effects.
func (s Skill) Clone() Skill {
	s.Talents = slices.Clone(s.Talents)
	s.Effects = slices.Clone(s.Effects)
	return s
}

// TalentIndex returns the index of the talent with id, or -1.
func TalentIndex(talents []Talent, id string) int {
	return slices.IndexFunc(talents, func(t Talent) bool { return t.ID == id })
}
