package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

// runAITurns gives each AI participant its turn for g's phase, one at a
// time. Only PROPOSAL and VOTING have AI turns. A failing AI is logged and
// skipped so the others still act.
func (e *Engine) runAITurns(ctx context.Context, g diplomacy.Game) {
	if g.Phase != diplomacy.PhaseProposal && g.Phase != diplomacy.PhaseVoting {
		return
	}
	ps, err := e.store.ListParticipants(ctx, g.ID)
	if err != nil {
		e.logger.Error("listing participants for ai turns", "game_id", g.ID, "error", err)
		return
	}
	for _, p := range ps {
		if !p.IsAI {
			continue
		}
		if err := e.aiTurn(ctx, g, p, ps); err != nil {
			e.logger.Error("ai turn failed", "game_id", g.ID, "phase", g.Phase, "participant_id", p.ID, "error", err)
			msg := fmt.Sprintf("%s failed to act during the %s phase", p.Civilization, g.Phase)
			if lerr := e.logPublic(ctx, g.ID, msg); lerr != nil {
				e.logger.Error("logging ai failure", "game_id", g.ID, "error", lerr)
			}
		}
	}
}

func (e *Engine) aiTurn(ctx context.Context, g diplomacy.Game, self diplomacy.Participant, ps []diplomacy.Participant) error {
	view := TurnView{Game: g, Self: self, Participants: ps}
	if g.Phase == diplomacy.PhaseProposal {
		return e.aiPropose(ctx, view)
	}
	return e.aiVote(ctx, view)
}

func (e *Engine) aiPropose(ctx context.Context, view TurnView) error {
	drafts, err := e.ai.Propose(ctx, view)
	if err != nil {
		return fmt.Errorf("deciding proposals: %w", err)
	}
	for _, d := range drafts {
		_, err := e.createProposal(ctx, view.Game, ProposalRequest{
			GameID:         view.Game.ID,
			SenderID:       view.Self.ID,
			Description:    d.Description,
			Type:           d.Type,
			IsPublic:       d.IsPublic,
			ParticipantIDs: d.ParticipantIDs,
			TargetIDs:      d.TargetIDs,
		})
		if errors.Is(err, diplomacy.ErrNoProposalsRemaining) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("creating proposal: %w", err)
		}
	}
	return nil
}

// aiVote asks the AI for a ballot on every pending proposal it may still
// vote on. Ballots for other proposals are ignored; omitting one is an error.
func (e *Engine) aiVote(ctx context.Context, view TurnView) error {
	pending, err := e.store.ListPendingProposals(ctx, view.Game.ID, view.Game.CurrentRound)
	if err != nil {
		return fmt.Errorf("list pending proposals: %w", err)
	}
	open := make(map[string]diplomacy.Proposal)
	for _, p := range pending {
		role, ok := p.RoleOf(view.Self.ID)
		if _, voted := p.VoteOf(view.Self.ID); ok && role.CanVote() && !voted {
			view.Pending = append(view.Pending, p)
			open[p.ID] = p
		}
	}
	if len(view.Pending) == 0 {
		return nil
	}

	ballots, err := e.ai.Vote(ctx, view)
	if err != nil {
		return fmt.Errorf("deciding votes: %w", err)
	}
	for _, b := range ballots {
		p, ok := open[b.ProposalID]
		if !ok {
			continue
		}
		if _, err := e.vote(ctx, view.Game, p, view.Self.ID, b.Support); err != nil {
			return fmt.Errorf("voting on %s: %w", p.ID, err)
		}
		delete(open, b.ProposalID)
	}
	if len(open) > 0 {
		return fmt.Errorf("no ballot for %d proposals", len(open))
	}
	return nil
}
