package outcome

import (
	"fmt"
	"strings"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

// Batch is the result of resolving one accepted proposal: the stat updates
// to persist atomically and the log line describing them. Scope lists the
// participants a private proposal's log line is visible to.
type Batch struct {
	Updates []diplomacy.StatUpdate
	Summary string
	Scope   []string
}

// Resolver computes the effects of an accepted proposal of one type.
// members maps participant id to its current stats.
type Resolver interface {
	Resolve(p diplomacy.Proposal, members map[string]diplomacy.Participant) Batch
}

// Resolvers returns the handler for each proposal type.
func Resolvers(rng diplomacy.Rand) map[diplomacy.ProposalType]Resolver {
	return map[diplomacy.ProposalType]Resolver{
		diplomacy.ProposalTrade:    TradeResolver{},
		diplomacy.ProposalAlliance: AllianceResolver{},
		diplomacy.ProposalMilitary: MilitaryResolver{Rand: rng},
	}
}

// Tally counts votes from CREATOR and PARTICIPANT members only. A proposal
// passes on a strict majority of those votes; no votes means it fails.
func Tally(p diplomacy.Proposal) (support, total int, passed bool) {
	for _, v := range p.Votes {
		role, ok := p.RoleOf(v.ParticipantID)
		if !ok || !role.CanVote() {
			continue
		}
		total++
		if v.Support {
			support++
		}
	}
	return support, total, total > 0 && support*2 > total
}

type TradeResolver struct{}

func (TradeResolver) Resolve(p diplomacy.Proposal, members map[string]diplomacy.Participant) Batch {
	parties := lookup(members, p.IDsWithRole(diplomacy.RoleCreator, diplomacy.RoleParticipant))

	var honored, betrayers []diplomacy.Participant
	for _, m := range parties {
		if v, ok := p.VoteOf(m.ID); ok && v.Support {
			honored = append(honored, m)
		} else {
			betrayers = append(betrayers, m)
		}
	}

	var updates []diplomacy.StatUpdate
	switch {
	case len(betrayers) == 0:
		updates = ApplyGroup(parties, Trade.BothCooperate, nil)
		for i := range updates {
			updates[i].TradeDealDelta = 1
		}
	case len(honored) == 0:
		updates = ApplyGroup(parties, Trade.BothBetray, nil)
	default:
		updates = append(ApplyGroup(betrayers, Trade.Betrayer, nil), ApplyGroup(honored, Trade.Betrayed, nil)...)
	}

	return Batch{
		Updates: updates,
		Summary: fmt.Sprintf("Trade agreement completed between %s", civilizations(parties)),
		Scope:   ids(parties),
	}
}

type AllianceResolver struct{}

func (AllianceResolver) Resolve(p diplomacy.Proposal, members map[string]diplomacy.Participant) Batch {
	parties := lookup(members, p.IDsWithRole(diplomacy.RoleCreator, diplomacy.RoleParticipant))
	return Batch{
		Updates: ApplyGroup(parties, Alliance.Formed, nil),
		Summary: fmt.Sprintf("Alliance formed between %s", civilizations(parties)),
		Scope:   ids(parties),
	}
}

type MilitaryResolver struct {
	Rand diplomacy.Rand
}

func (r MilitaryResolver) Resolve(p diplomacy.Proposal, members map[string]diplomacy.Participant) Batch {
	attackers := lookup(members, p.IDsWithRole(diplomacy.RoleCreator, diplomacy.RoleParticipant))
	defenders := lookup(members, p.IDsWithRole(diplomacy.RoleTarget))

	defendersAttacking := false
	for _, d := range defenders {
		if v, ok := p.VoteOf(d.ID); ok && v.Support {
			defendersAttacking = true
			break
		}
	}

	scope := append(ids(attackers), ids(defenders)...)

	if AttackersWin(attackers, defenders, defendersAttacking, r.Rand) {
		spoils := DistributeSpoils(attackers, SpoilsPool(defenders))
		updates := append(
			ApplyGroup(attackers, Military.AttackerWins, spoils),
			ApplyGroup(defenders, Military.DefenderLoses, nil)...,
		)
		return Batch{
			Updates: updates,
			Summary: fmt.Sprintf("Military action succeeded: %s defeated %s", civilizations(attackers), civilizations(defenders)),
			Scope:   scope,
		}
	}

	updates := append(
		ApplyGroup(attackers, Military.AttackerLoses, nil),
		ApplyGroup(defenders, Military.DefenderWins, nil)...,
	)
	return Batch{
		Updates: updates,
		Summary: fmt.Sprintf("Military action failed: %s repelled %s", civilizations(defenders), civilizations(attackers)),
		Scope:   scope,
	}
}

func lookup(members map[string]diplomacy.Participant, idList []string) []diplomacy.Participant {
	ps := make([]diplomacy.Participant, 0, len(idList))
	for _, id := range idList {
		if p, ok := members[id]; ok {
			ps = append(ps, p)
		}
	}
	return ps
}

func ids(ps []diplomacy.Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func civilizations(ps []diplomacy.Participant) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Civilization
	}
	return strings.Join(names, ", ")
}
