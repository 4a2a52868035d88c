package combat

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/rules-engine/pkg/actor"
)

// Outcome is the state of an encounter after a round.
type Outcome string

const (
	OutcomeOngoing Outcome = "ongoing"
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeFled    Outcome = "fled"
)

// Status is the host-held encounter state machine:
// NotInCombat → Starting → Ongoing → Ending → NotInCombat.
type Status string

const (
	StatusNotInCombat Status = "not_in_combat"
	StatusStarting    Status = "starting"
	StatusOngoing     Status = "ongoing"
	StatusEnding      Status = "ending"
)

// RoundResult is the full outcome of one round.
type RoundResult struct {
	Action          ActionType       `json:"action"`
	UpdatedPlayer   *actor.Character `json:"updated_player"`
	UpdatedOpponent *actor.Character `json:"updated_opponent"`
	Log             []string         `json:"log"`
	Outcome         Outcome          `json:"outcome"`
	CombatShouldEnd bool             `json:"combat_should_end"`
}

// Resolver computes combat rounds. It holds no encounter state; the only
// non-determinism comes from its Roller.
type Resolver struct {
	rng    Roller
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil rng falls back to a clock-seeded RNG.
func NewResolver(rng Roller, logger *slog.Logger) *Resolver {
	if rng == nil {
		rng = NewRNG(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{rng: rng, logger: logger}
}

// round carries the working copies and log for one ResolveRound call.
type round struct {
	player    *actor.Character
	opponent  *actor.Character
	log       []string
	outcome   Outcome
	reduction float64
}

func (rc *round) add(format string, args ...any) {
	rc.log = append(rc.log, fmt.Sprintf(format, args...))
}

// ResolveRound applies the player's action and, if combat continues, the
// opponent's counter-attack. Inputs are never mutated.
func (r *Resolver) ResolveRound(action Action, player, opponent *actor.Character) RoundResult {
	kind := Classify(action)
	if player == nil || opponent == nil {
		return RoundResult{
			Action:  kind,
			Log:     []string{"There is no one to fight."},
			Outcome: OutcomeOngoing,
		}
	}

	rc := &round{
		player:    player.Clone(),
		opponent:  opponent.Clone(),
		outcome:   OutcomeOngoing,
		reduction: 1,
	}

	switch kind {
	case ActionDefend:
		r.defend(rc)
	case ActionFlee:
		r.flee(rc)
	case ActionSkill:
		r.useSkill(rc, action)
	default:
		r.attack(rc)
	}

	if rc.outcome == OutcomeOngoing && rc.opponent.IsDefeated() {
		rc.outcome = OutcomeWin
		rc.add("%s is defeated.", rc.opponent.Label())
	}

	if rc.outcome == OutcomeOngoing {
		r.counterAttack(rc)
	}

	r.logger.Debug("Combat round resolved",
		"action", kind,
		"player_id", rc.player.ID,
		"opponent_id", rc.opponent.ID,
		"outcome", rc.outcome,
		"player_health", rc.player.Health.Current,
		"opponent_health", rc.opponent.Health.Current)

	return RoundResult{
		Action:          kind,
		UpdatedPlayer:   rc.player,
		UpdatedOpponent: rc.opponent,
		Log:             rc.log,
		Outcome:         rc.outcome,
		CombatShouldEnd: rc.outcome != OutcomeOngoing,
	}
}

func (r *Resolver) variance() float64 {
	return minVariance + varianceSpread*r.rng.Float64()
}

func (r *Resolver) succeeds(chance float64) bool {
	return r.rng.Float64()*100 < chance
}

func (r *Resolver) strike(attacker, defender *actor.Character) int {
	return AttackDamage(attacker.Stat(actor.StatAttack), defender.Stat(actor.StatDefense), r.variance())
}

func (r *Resolver) attack(rc *round) {
	dmg := r.strike(rc.player, rc.opponent)
	rc.opponent.TakeDamage(dmg)
	rc.add("%s strikes %s for %d damage.", rc.player.Label(), rc.opponent.Label(), dmg)
}

func (r *Resolver) defend(rc *round) {
	chance := DefendChance(rc.player.Stat(actor.StatSpeed), rc.opponent.Stat(actor.StatSpeed))
	if !r.succeeds(chance) {
		rc.add("%s fails to find a guard.", rc.player.Label())
		return
	}
	rc.reduction = defendReduction
	rc.add("%s takes a defensive stance.", rc.player.Label())

	if !r.succeeds(RiposteChance(rc.player.Stat(actor.StatSpeed))) {
		return
	}
	dmg := scale(r.strike(rc.player, rc.opponent), riposteScale)
	rc.opponent.TakeDamage(dmg)
	rc.add("%s ripostes for %d damage.", rc.player.Label(), dmg)
}

func (r *Resolver) flee(rc *round) {
	chance := FleeChance(rc.player.Stat(actor.StatSpeed), rc.opponent.Stat(actor.StatSpeed))
	if r.succeeds(chance) {
		rc.outcome = OutcomeFled
		rc.add("%s escapes from %s.", rc.player.Label(), rc.opponent.Label())
		return
	}
	rc.add("%s tries to flee but cannot get away.", rc.player.Label())
}

// findSkill looks the skill up by id, then by a name mentioned in the description.
func findSkill(c *actor.Character, action Action) *actor.Skill {
	if action.SkillID != "" {
		if idx := c.SkillIndex(action.SkillID); idx >= 0 {
			return &c.Skills[idx]
		}
		return nil
	}
	desc := normalize(action.Description)
	for i := range c.Skills {
		name := normalize(c.Skills[i].Name)
		if name != "" && strings.Contains(desc, name) {
			return &c.Skills[i]
		}
	}
	return nil
}

func (r *Resolver) useSkill(rc *round, action Action) {
	skill := findSkill(rc.player, action)
	if skill == nil {
		rc.add("%s does not know that technique.", rc.player.Label())
		return
	}
	if skill.ManaCost > rc.player.Mana.Current {
		rc.add("%s lacks the mana to use %s.", rc.player.Label(), skill.Name)
		return
	}
	rc.player.Mana.Current -= skill.ManaCost
	rc.add("%s uses %s.", rc.player.Label(), skill.Name)

	for _, e := range skill.Effects {
		switch e.Kind {
		case actor.EffectDamage:
			rc.opponent.TakeDamage(e.Value)
			rc.add("%s deals %d damage to %s.", skill.Name, e.Value, rc.opponent.Label())
		case actor.EffectHealth:
			before := rc.player.Health.Current
			rc.player.Heal(e.Value)
			rc.add("%s restores %d health.", rc.player.Label(), rc.player.Health.Current-before)
		case actor.EffectMana:
			before := rc.player.Mana.Current
			rc.player.RestoreMana(e.Value)
			rc.add("%s recovers %d mana.", rc.player.Label(), rc.player.Mana.Current-before)
		}
	}
}

func (r *Resolver) counterAttack(rc *round) {
	dmg := r.strike(rc.opponent, rc.player)
	if rc.reduction < 1 {
		dmg = scale(dmg, rc.reduction)
	}
	rc.player.TakeDamage(dmg)
	rc.add("%s counter-attacks %s for %d damage.", rc.opponent.Label(), rc.player.Label(), dmg)
	if rc.player.IsDefeated() {
		rc.outcome = OutcomeLoss
		rc.add("%s falls.", rc.player.Label())
	}
}
