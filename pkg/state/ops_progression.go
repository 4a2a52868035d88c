package state

import "github.com/jwebster45206/rules-engine/pkg/actor"

func breakthroughSkill(gs *GameState, a BreakthroughSkill) *Rejection {
	if rej := requireCapability(gs, CapBreakthrough); rej != nil {
		return rej
	}
	var c *actor.Character
	var rej *Rejection
	if a.CharacterID == "" {
		c, rej = requirePlayer(gs)
	} else {
		c, rej = findCharacter(gs, a.CharacterID)
	}
	if rej != nil {
		return rej
	}
	skill, rej := findSkill(c, a.SkillID)
	if rej != nil {
		return rej
	}
	next, ok := skill.Mastery.Next()
	if !ok {
		return reject(RejectPrecondition, "%s is already at %s", skill.ID, skill.Mastery)
	}
	required := actor.RequiredMasteryXP(skill.Mastery, skill.Level)
	if skill.MasteryXP < required {
		return reject(RejectInsufficient, "%s needs %d mastery experience, has %d", skill.ID, required, skill.MasteryXP)
	}
	if c.Cultivation == nil || c.Cultivation.Enlightenment < 1 {
		return reject(RejectInsufficient, "breakthrough needs one enlightenment")
	}

	c.Cultivation.Enlightenment--
	skill.MasteryXP = 0
	skill.Mastery = next
	return nil
}

func unlockMeridian(gs *GameState, a UnlockMeridian) *Rejection {
	if rej := requireCapability(gs, CapMeridians); rej != nil {
		return rej
	}
	if rej := requireField("point_id", a.PointID); rej != nil {
		return rej
	}
	player, rej := requirePlayer(gs)
	if rej != nil {
		return rej
	}
	idx := findByID(gs.Acupoints, a.PointID, func(p Acupoint) string { return p.ID })
	if idx < 0 {
		return reject(RejectNotFound, "acupoint %s not found", a.PointID)
	}
	point := gs.Acupoints[idx]

	if player.Cultivation == nil {
		return reject(RejectPrecondition, "%s has not begun cultivating", player.ID)
	}
	cult := player.Cultivation
	if cult.Meridians[point.ID] {
		return reject(RejectPrecondition, "%s is already unlocked", point.ID)
	}
	if point.Prerequisite != "" && !cult.Meridians[point.Prerequisite] {
		return reject(RejectPrecondition, "%s requires %s first", point.ID, point.Prerequisite)
	}
	if cult.Qi < point.Cost {
		return reject(RejectInsufficient, "%s costs %d qi, have %d", point.ID, point.Cost, cult.Qi)
	}

	cult.Qi -= point.Cost
	if cult.Meridians == nil {
		cult.Meridians = make(map[string]bool)
	}
	cult.Meridians[point.ID] = true
	player.AddBaseStats(point.Effects)
	return nil
}
