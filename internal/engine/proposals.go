package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

type ProposalRequest struct {
	GameID         string
	SenderID       string
	Description    string
	Type           diplomacy.ProposalType
	IsPublic       bool
	ParticipantIDs []string
	TargetIDs      []string
}

// CreateProposal records a proposal from a human or AI participant and
// spends one of the sender's remaining proposals for the round.
func (e *Engine) CreateProposal(ctx context.Context, req ProposalRequest) (diplomacy.Proposal, error) {
	unlock := e.lock(req.GameID)
	defer unlock()

	g, err := e.store.GetGame(ctx, req.GameID)
	if err != nil {
		return diplomacy.Proposal{}, err
	}
	return e.createProposal(ctx, g, req)
}

func (e *Engine) createProposal(ctx context.Context, g diplomacy.Game, req ProposalRequest) (diplomacy.Proposal, error) {
	if err := requirePhase(g, diplomacy.PhaseProposal); err != nil {
		return diplomacy.Proposal{}, err
	}
	if !req.Type.Valid() {
		return diplomacy.Proposal{}, fmt.Errorf("unknown proposal type %q: %w", req.Type, diplomacy.ErrInvalidProposal)
	}

	sender, err := e.participantIn(ctx, g.ID, req.SenderID)
	if err != nil {
		return diplomacy.Proposal{}, err
	}
	ps, err := e.store.ListParticipants(ctx, g.ID)
	if err != nil {
		return diplomacy.Proposal{}, fmt.Errorf("list participants: %w", err)
	}
	byID := make(map[string]diplomacy.Participant, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
	}

	participants := unique(req.ParticipantIDs)
	targets := unique(req.TargetIDs)
	if err := validateRoles(req.Type, sender.ID, participants, targets, byID); err != nil {
		return diplomacy.Proposal{}, err
	}
	if sender.RemainingProposals <= 0 {
		return diplomacy.Proposal{}, diplomacy.ErrNoProposalsRemaining
	}

	p := diplomacy.Proposal{
		GameID:      g.ID,
		CreatorID:   sender.ID,
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
		IsPublic:    req.IsPublic,
		RoundNumber: g.CurrentRound,
		Status:      diplomacy.ProposalPending,
	}
	if p.Description == "" {
		p.Description = fmt.Sprintf("%s proposes a %s arrangement", sender.Civilization, strings.ToLower(string(req.Type)))
	}
	p.Members = append(p.Members, diplomacy.ProposalMember{ParticipantID: sender.ID, Role: diplomacy.RoleCreator})
	for _, id := range participants {
		if id != sender.ID {
			p.Members = append(p.Members, diplomacy.ProposalMember{ParticipantID: id, Role: diplomacy.RoleParticipant})
		}
	}
	for _, id := range targets {
		p.Members = append(p.Members, diplomacy.ProposalMember{ParticipantID: id, Role: diplomacy.RoleTarget})
	}

	if err := e.store.CreateProposal(ctx, &p); err != nil {
		return diplomacy.Proposal{}, err
	}

	visibility := "private"
	if p.IsPublic {
		visibility = "public"
	}
	msg := fmt.Sprintf("%s made a %s %s proposal", sender.Civilization, visibility, p.Type)
	scope := p.IDsWithRole(diplomacy.RoleCreator, diplomacy.RoleParticipant, diplomacy.RoleTarget)
	if err := e.logScoped(ctx, g.ID, msg, p.IsPublic, scope); err != nil {
		return p, err
	}
	return p, nil
}

// validateRoles checks the member sets of a new proposal.
func validateRoles(t diplomacy.ProposalType, senderID string, participants, targets []string, inGame map[string]diplomacy.Participant) error {
	for _, id := range slices.Concat(participants, targets) {
		if _, ok := inGame[id]; !ok {
			return fmt.Errorf("participant %s: %w", id, diplomacy.ErrNotParticipant)
		}
	}
	isParticipant := make(map[string]bool, len(participants)+1)
	isParticipant[senderID] = true
	partners := 0
	for _, id := range participants {
		isParticipant[id] = true
		if id != senderID {
			partners++
		}
	}
	for _, id := range targets {
		if isParticipant[id] {
			return diplomacy.ErrOverlappingRoles
		}
	}

	switch {
	case t == diplomacy.ProposalMilitary && len(targets) == 0:
		return fmt.Errorf("military proposal needs a target: %w", diplomacy.ErrInvalidProposal)
	case t != diplomacy.ProposalMilitary && len(targets) > 0:
		return fmt.Errorf("only military proposals take targets: %w", diplomacy.ErrInvalidProposal)
	case t != diplomacy.ProposalMilitary && partners == 0:
		return fmt.Errorf("%s proposal needs another participant: %w", t, diplomacy.ErrInvalidProposal)
	}
	return nil
}

// Vote records participantID's vote on a proposal during VOTING.
func (e *Engine) Vote(ctx context.Context, proposalID, participantID string, support bool) (diplomacy.Vote, error) {
	p, err := e.store.GetProposal(ctx, proposalID)
	if err != nil {
		return diplomacy.Vote{}, err
	}
	unlock := e.lock(p.GameID)
	defer unlock()

	g, err := e.store.GetGame(ctx, p.GameID)
	if err != nil {
		return diplomacy.Vote{}, err
	}
	// Reload under the lock; the round may have been resolved meanwhile.
	if p, err = e.store.GetProposal(ctx, proposalID); err != nil {
		return diplomacy.Vote{}, err
	}
	return e.vote(ctx, g, p, participantID, support)
}

func (e *Engine) vote(ctx context.Context, g diplomacy.Game, p diplomacy.Proposal, voterID string, support bool) (diplomacy.Vote, error) {
	if err := requirePhase(g, diplomacy.PhaseVoting); err != nil {
		return diplomacy.Vote{}, err
	}
	if p.Status != diplomacy.ProposalPending {
		return diplomacy.Vote{}, fmt.Errorf("proposal is %s: %w", p.Status, diplomacy.ErrWrongPhase)
	}
	voter, err := e.participantIn(ctx, g.ID, voterID)
	if err != nil {
		return diplomacy.Vote{}, err
	}
	if role, ok := p.RoleOf(voter.ID); !ok || !role.CanVote() {
		return diplomacy.Vote{}, diplomacy.ErrNotEligible
	}
	if _, voted := p.VoteOf(voter.ID); voted {
		return diplomacy.Vote{}, diplomacy.ErrAlreadyVoted
	}

	v := diplomacy.Vote{ProposalID: p.ID, ParticipantID: voter.ID, Support: support}
	if err := e.store.CreateVote(ctx, &v); err != nil {
		return diplomacy.Vote{}, err
	}

	stance := "against"
	if support {
		stance = "in favor of"
	}
	msg := fmt.Sprintf("%s voted %s the proposal", voter.Civilization, stance)
	if p.Type == diplomacy.ProposalMilitary {
		names, err := e.civilizations(ctx, g.ID, p.IDsWithRole(diplomacy.RoleTarget))
		if err != nil {
			return v, err
		}
		msg += " to attack " + names
	}
	if err := e.logScoped(ctx, g.ID, msg, p.IsPublic, []string{voter.ID, p.CreatorID}); err != nil {
		return v, err
	}
	return v, nil
}

func requirePhase(g diplomacy.Game, want diplomacy.Phase) error {
	if g.Phase == diplomacy.PhaseCompleted {
		return diplomacy.ErrGameCompleted
	}
	if g.Phase != want {
		return fmt.Errorf("game is in %s, not %s: %w", g.Phase, want, diplomacy.ErrWrongPhase)
	}
	return nil
}

func (e *Engine) civilizations(ctx context.Context, gameID string, ids []string) (string, error) {
	ps, err := e.store.ListParticipants(ctx, gameID)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		for _, p := range ps {
			if p.ID == id {
				names = append(names, p.Civilization)
			}
		}
	}
	return strings.Join(names, ", "), nil
}
