// Package ai plays the non-human civilizations with simple randomized rules.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/engine"
	"github.com/playperu/diplomacy/internal/llm"
	"github.com/playperu/diplomacy/internal/outcome"
)

// Probabilities of the rule-based behaviour.
const (
	tradeShare      = 0.33
	militaryShare   = 0.33
	extraTargetOdds = 0.3
	partnerOdds     = 0.5
	publicOdds      = 0.3
	maxAllies       = 3
)

// Player implements engine.AI. Chat replies go through the LLM client when
// it is enabled and fall back to keyword replies otherwise.
type Player struct {
	rng            diplomacy.Rand
	proposalChance float64
	llm            *llm.Client
	logger         *slog.Logger
}

var _ engine.AI = (*Player)(nil)

func NewPlayer(rng diplomacy.Rand, proposalChance float64, client *llm.Client, logger *slog.Logger) *Player {
	return &Player{rng: rng, proposalChance: proposalChance, llm: client, logger: logger}
}

// Propose makes at most one proposal per turn.
func (p *Player) Propose(_ context.Context, view engine.TurnView) ([]engine.ProposalDraft, error) {
	others := view.Others()
	if len(others) == 0 || view.Self.RemainingProposals <= 0 {
		return nil, nil
	}
	if p.rng.Float64() >= p.proposalChance {
		return nil, nil
	}

	var (
		draft engine.ProposalDraft
		ok    bool
	)
	switch r := p.rng.Float64(); {
	case r < tradeShare:
		draft, ok = p.trade(view.Self, others)
	case r < tradeShare+militaryShare && view.Self.Economy > outcome.Military.AttackCost:
		draft, ok = p.military(view.Self, others)
	default:
		draft, ok = p.alliance(view.Self, others)
	}
	if !ok {
		return nil, nil
	}
	draft.IsPublic = p.rng.Float64() < publicOdds
	return []engine.ProposalDraft{draft}, nil
}

func (p *Player) trade(self diplomacy.Participant, others []diplomacy.Participant) (engine.ProposalDraft, bool) {
	partners := p.keep(others, partnerOdds)
	if len(partners) == 0 {
		return engine.ProposalDraft{}, false
	}
	return engine.ProposalDraft{
		Type:           diplomacy.ProposalTrade,
		Description:    fmt.Sprintf("%s proposes a trade arrangement with %s", self.Civilization, names(partners)),
		ParticipantIDs: ids(partners),
	}, true
}

func (p *Player) military(self diplomacy.Participant, others []diplomacy.Participant) (engine.ProposalDraft, bool) {
	pool := p.shuffled(others)
	targets := append([]diplomacy.Participant{pool[0]}, p.keep(pool[1:], extraTargetOdds)...)

	var rest []diplomacy.Participant
	for _, o := range pool[1:] {
		if !containsID(targets, o.ID) {
			rest = append(rest, o)
		}
	}
	allies := p.keep(rest, partnerOdds)
	if len(allies) == 0 {
		return engine.ProposalDraft{}, false
	}
	return engine.ProposalDraft{
		Type:           diplomacy.ProposalMilitary,
		Description:    fmt.Sprintf("%s proposes a military arrangement with %s against %s", self.Civilization, names(allies), names(targets)),
		ParticipantIDs: ids(allies),
		TargetIDs:      ids(targets),
	}, true
}

func (p *Player) alliance(self diplomacy.Participant, others []diplomacy.Participant) (engine.ProposalDraft, bool) {
	n := 1 + p.rng.IntN(min(maxAllies, len(others)))
	allies := p.shuffled(others)[:n]
	return engine.ProposalDraft{
		Type:           diplomacy.ProposalAlliance,
		Description:    fmt.Sprintf("%s proposes forming an alliance with %s", self.Civilization, names(allies)),
		ParticipantIDs: ids(allies),
	}, true
}

// Vote supports every trade or alliance it is part of and flips a coin on
// military action.
func (p *Player) Vote(_ context.Context, view engine.TurnView) ([]engine.Ballot, error) {
	ballots := make([]engine.Ballot, 0, len(view.Pending))
	for _, prop := range view.Pending {
		support := true
		if prop.Type == diplomacy.ProposalMilitary {
			support = p.rng.Float64() < 0.5
		}
		ballots = append(ballots, engine.Ballot{ProposalID: prop.ID, Support: support})
	}
	return ballots, nil
}

// Reply answers the last message of a discussion.
func (p *Player) Reply(ctx context.Context, view engine.ChatView) (string, error) {
	if p.llm.Enabled() {
		text, err := p.llm.Complete(ctx, systemPrompt, chatPrompt(view), 300)
		if err == nil {
			if reply := extractResponse(text); reply != "" {
				return reply, nil
			}
		} else {
			p.logger.Warn("llm reply failed, using canned reply", "participant_id", view.Self.ID, "error", err)
		}
	}
	return keywordReply(view.Self.Civilization, view.Message.Content), nil
}

func keywordReply(civilization, content string) string {
	content = strings.ToLower(content)
	switch {
	case strings.Contains(content, "trade"):
		return civilization + " expresses interest in trade negotiations"
	case strings.Contains(content, "alliance"):
		return civilization + " considers your alliance proposal"
	case strings.Contains(content, "attack"), strings.Contains(content, "military"):
		return civilization + " takes note of your military intentions"
	}
	return civilization + " acknowledges your message"
}

// keep returns each of ps independently with probability odds.
func (p *Player) keep(ps []diplomacy.Participant, odds float64) []diplomacy.Participant {
	var out []diplomacy.Participant
	for _, o := range ps {
		if p.rng.Float64() < odds {
			out = append(out, o)
		}
	}
	return out
}

func (p *Player) shuffled(ps []diplomacy.Participant) []diplomacy.Participant {
	out := append([]diplomacy.Participant(nil), ps...)
	for i := len(out) - 1; i > 0; i-- {
		j := p.rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func containsID(ps []diplomacy.Participant, id string) bool {
	for _, p := range ps {
		if p.ID == id {
			return true
		}
	}
	return false
}

func ids(ps []diplomacy.Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func names(ps []diplomacy.Participant) string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Civilization
	}
	return strings.Join(out, ", ")
}
