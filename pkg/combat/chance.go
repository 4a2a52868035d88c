package combat

import "math"

// Chance bounds, in percent.
const (
	minDefendChance  = 10
	maxDefendChance  = 95
	minFleeChance    = 5
	maxFleeChance    = 90
	maxRiposteChance = 50
)

// Damage tuning.
const (
	minVariance     = 0.8
	varianceSpread  = 0.4
	defendReduction = 0.25
	riposteScale    = 0.25
)

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// DefendChance is clamp(50 + 2×(defenderSpeed − opponentSpeed), 10, 95) percent.
func DefendChance(defenderSpeed, opponentSpeed int) float64 {
	return clamp(50+2*float64(defenderSpeed-opponentSpeed), minDefendChance, maxDefendChance)
}

// FleeChance is clamp(30 + 2.5×(fleeingSpeed − opponentSpeed), 5, 90) percent.
func FleeChance(fleeingSpeed, opponentSpeed int) float64 {
	return clamp(30+2.5*float64(fleeingSpeed-opponentSpeed), minFleeChance, maxFleeChance)
}

// RiposteChance grows one percent per point of speed, capped at 50.
func RiposteChance(speed int) float64 {
	return clamp(float64(speed), 0, maxRiposteChance)
}

// AttackDamage is max(1, attack − defense) scaled by variance and rounded.
// The result is never below 1.
func AttackDamage(attack, defense int, variance float64) int {
	base := max(1, attack-defense)
	return max(1, int(math.Round(float64(base)*variance)))
}

// scale multiplies damage by factor, rounding and keeping the floor of 1.
func scale(damage int, factor float64) int {
	return max(1, int(math.Round(float64(damage)*factor)))
}
