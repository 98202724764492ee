package engine

import (
	"context"
	"fmt"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/objective"
	"github.com/playperu/diplomacy/internal/outcome"
)

// resolveRound settles every pending proposal of the current round, each in
// its own transaction. A failure stops the round; proposals already
// resolved stay resolved and the rest remain pending. Objectives are scored
// afterwards when isGameEnd is set.
func (e *Engine) resolveRound(ctx context.Context, g diplomacy.Game, isGameEnd bool) (objective.Standings, error) {
	proposals, err := e.store.ListPendingProposals(ctx, g.ID, g.CurrentRound)
	if err != nil {
		return objective.Standings{}, fmt.Errorf("list pending proposals: %w", err)
	}
	for _, p := range proposals {
		if err := e.resolveProposal(ctx, p); err != nil {
			return objective.Standings{}, fmt.Errorf("resolve proposal %s: %w", p.ID, err)
		}
	}
	return e.evaluateObjectives(ctx, g.ID, isGameEnd)
}

func (e *Engine) resolveProposal(ctx context.Context, p diplomacy.Proposal) error {
	// Stats are reloaded per proposal since earlier ones may have changed them.
	ps, err := e.store.ListParticipants(ctx, p.GameID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	members := make(map[string]diplomacy.Participant, len(ps))
	for _, m := range ps {
		members[m.ID] = m
	}

	support, total, passed := outcome.Tally(p)
	log := e.logger.With("game_id", p.GameID, "proposal_id", p.ID, "type", p.Type, "support", support, "votes", total)

	if !passed {
		if err := e.store.ResolveProposal(ctx, p.ID, diplomacy.ProposalRejected, nil); err != nil {
			return err
		}
		log.Info("proposal rejected")
		msg := fmt.Sprintf("%s proposal by %s was rejected", p.Type, members[p.CreatorID].Civilization)
		return e.logScoped(ctx, p.GameID, msg, p.IsPublic, p.IDsWithRole(diplomacy.RoleCreator, diplomacy.RoleParticipant))
	}

	resolver, ok := e.resolvers[p.Type]
	if !ok {
		return fmt.Errorf("no resolver for %s: %w", p.Type, diplomacy.ErrInvalidProposal)
	}
	batch := resolver.Resolve(p, members)
	if err := e.store.ResolveProposal(ctx, p.ID, diplomacy.ProposalAccepted, batch.Updates); err != nil {
		return err
	}
	log.Info("proposal accepted", "summary", batch.Summary)
	return e.logScoped(ctx, p.GameID, batch.Summary, p.IsPublic, batch.Scope)
}
