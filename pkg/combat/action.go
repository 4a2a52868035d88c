package combat

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ActionType is the kind of move a player makes in a round.
type ActionType string

const (
	ActionAttack ActionType = "attack"
	ActionDefend ActionType = "defend"
	ActionFlee   ActionType = "flee"
	ActionSkill  ActionType = "skill"
)

// Action is the player's move for one round. Type wins when set; otherwise
// SkillID or the free-text Description decide.
type Action struct {
	Type        ActionType `json:"type,omitempty"`
	SkillID     string     `json:"skill_id,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Keywords are matched against the folded NFC form of the description.
var keywords = []struct {
	action ActionType
	words  []string
}{
	{ActionFlee, []string{"flee", "run away", "escape", "retreat", "bỏ chạy", "chạy trốn", "rút lui", "đào tẩu"}},
	{ActionDefend, []string{"defend", "block", "guard", "parry", "brace", "phòng thủ", "thủ thế", "chống đỡ", "phòng ngự"}},
	{ActionSkill, []string{"skill", "cast", "technique", "kỹ năng", "thi triển", "võ công", "chiêu"}},
}

func normalize(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// Classify resolves the action to one of the four round kinds.
// Anything unrecognised is an attack.
func Classify(a Action) ActionType {
	switch a.Type {
	case ActionAttack, ActionDefend, ActionFlee, ActionSkill:
		return a.Type
	}
	if a.SkillID != "" {
		return ActionSkill
	}
	desc := normalize(a.Description)
	for _, k := range keywords {
		for _, w := range k.words {
			if strings.Contains(desc, cases.Fold().String(w)) {
				return k.action
			}
		}
	}
	return ActionAttack
}
