// Package outcome holds the static effect tables for resolved proposals and
// the arithmetic that applies them to participant stats.
package outcome

import "github.com/playperu/diplomacy/internal/diplomacy"

// Change is a stat delta: either a fixed amount or a percentage of the
// stat's current value, floored toward zero before the sign is applied.
type Change struct {
	Fixed   int
	Percent int
}

// Amount returns the delta for a stat currently at value.
func (c Change) Amount(value int) int {
	if c.Percent == 0 {
		return c.Fixed
	}
	pct := c.Percent
	if pct < 0 {
		return -(value * -pct / 100)
	}
	return value * pct / 100
}

type Effect struct {
	Might   Change
	Economy Change
}

type MilitaryTable struct {
	AttackerWins  Effect
	AttackerLoses Effect
	DefenderWins  Effect
	DefenderLoses Effect
	// AttackCost is nominal: it is not deducted on resolution.
	AttackCost int
}

// TradeTable is a prisoner's-dilemma payoff matrix.
type TradeTable struct {
	BothCooperate Effect
	Betrayer      Effect
	Betrayed      Effect
	BothBetray    Effect
}

type AllianceTable struct {
	Formed Effect
	Broken Effect
}

var Military = MilitaryTable{
	AttackerWins:  Effect{Might: Change{Percent: 50}, Economy: Change{Percent: 30}},
	AttackerLoses: Effect{Might: Change{Percent: -40}, Economy: Change{Fixed: -20}},
	DefenderWins:  Effect{Might: Change{Percent: 30}, Economy: Change{Fixed: 10}},
	DefenderLoses: Effect{Might: Change{Percent: -60}, Economy: Change{Percent: -40}},
	AttackCost:    30,
}

var Trade = TradeTable{
	BothCooperate: Effect{Economy: Change{Percent: 20}},
	Betrayer:      Effect{Economy: Change{Percent: 30}},
	Betrayed:      Effect{Economy: Change{Percent: -10}},
	BothBetray:    Effect{Economy: Change{Fixed: -10}},
}

var Alliance = AllianceTable{
	Formed: Effect{Might: Change{Percent: 15}, Economy: Change{Percent: 15}},
	Broken: Effect{Might: Change{Fixed: -10}, Economy: Change{Fixed: -10}},
}

// SpoilsPercent is the share of each defeated defender's economy pooled
// for the victors.
const SpoilsPercent = 30

// AttackerEfficiency discounts attacking might for coordination overhead.
const AttackerEfficiency = 0.9

// Apply computes p's stats after e plus an extra economy bonus, clamped to
// the stat bounds.
func Apply(p diplomacy.Participant, e Effect, bonusEconomy int) diplomacy.StatUpdate {
	return diplomacy.StatUpdate{
		ParticipantID: p.ID,
		Might:         diplomacy.Clamp(p.Might + e.Might.Amount(p.Might)),
		Economy:       diplomacy.Clamp(p.Economy + e.Economy.Amount(p.Economy) + bonusEconomy),
	}
}

// ApplyGroup applies e to every participant; spoils, when non-nil, is
// indexed like ps and added to each economy.
func ApplyGroup(ps []diplomacy.Participant, e Effect, spoils []int) []diplomacy.StatUpdate {
	updates := make([]diplomacy.StatUpdate, len(ps))
	for i, p := range ps {
		bonus := 0
		if i < len(spoils) {
			bonus = spoils[i]
		}
		updates[i] = Apply(p, e, bonus)
	}
	return updates
}
