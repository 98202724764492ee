package outcome

import "github.com/playperu/diplomacy/internal/diplomacy"

// GroupMight sums the might of ps, discounted when they are attacking.
func GroupMight(ps []diplomacy.Participant, attacking bool) float64 {
	efficiency := 1.0
	if attacking {
		efficiency = AttackerEfficiency
	}
	var total float64
	for _, p := range ps {
		total += float64(p.Might) * efficiency
	}
	return total
}

// AttackerWinChance is the probability that attackers beat defenders who
// fight back. It is not clamped; values outside [0,1] mean a certain result.
func AttackerWinChance(attackers, defenders []diplomacy.Participant) float64 {
	size := max(len(attackers), len(defenders), 1)
	diff := GroupMight(attackers, true) - GroupMight(defenders, false)
	return 0.5 + diff/float64(200*size)
}

// AttackersWin decides a battle. Defenders that do not fight back lose
// outright; otherwise a single draw from rng is compared to the win chance.
func AttackersWin(attackers, defenders []diplomacy.Participant, defendersAttacking bool, rng diplomacy.Rand) bool {
	if !defendersAttacking {
		return true
	}
	return rng.Float64() < AttackerWinChance(attackers, defenders)
}

// SpoilsPool is the economy taken from losers.
func SpoilsPool(losers []diplomacy.Participant) int {
	total := 0
	for _, p := range losers {
		total += p.Economy * SpoilsPercent / 100
	}
	return total
}

// DistributeSpoils splits pool among winners in proportion to their might.
func DistributeSpoils(winners []diplomacy.Participant, pool int) []int {
	shares := make([]int, len(winners))
	totalMight := 0
	for _, w := range winners {
		totalMight += w.Might
	}
	if totalMight == 0 {
		return shares
	}
	for i, w := range winners {
		shares[i] = w.Might * pool / totalMight
	}
	return shares
}
