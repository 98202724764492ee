package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/store"
)

// CreateGame starts a game for userID playing civilization against the
// configured AI civilizations. rounds overrides the default round cap when
// positive.
func (e *Engine) CreateGame(ctx context.Context, userID, civilization string, rounds int) (diplomacy.Game, error) {
	civilization = strings.TrimSpace(civilization)
	if civilization == "" {
		return diplomacy.Game{}, fmt.Errorf("civilization name required: %w", diplomacy.ErrInvalidInput)
	}
	if rounds <= 0 {
		rounds = e.settings.NumberOfRounds
	}

	g := diplomacy.Game{
		ID:             uuid.NewString(),
		Phase:          diplomacy.PhaseSetup,
		CurrentRound:   1,
		NumberOfRounds: rounds,
	}

	names := append([]string{civilization}, e.settings.AICivilizations...)
	ps := make([]diplomacy.Participant, len(names))
	for i, name := range names {
		ps[i] = diplomacy.Participant{
			ID:                 uuid.NewString(),
			GameID:             g.ID,
			Civilization:       name,
			Might:              diplomacy.Clamp(e.settings.StartingMight),
			Economy:            diplomacy.Clamp(e.settings.StartingEconomy),
			IsAI:               i > 0,
			RemainingProposals: e.settings.ProposalsPerRound,
			JoinOrder:          i,
		}
	}
	ps[0].UserID = userID

	objs, err := e.assignObjectives(g.ID, ps)
	if err != nil {
		return diplomacy.Game{}, err
	}
	if err := e.store.CreateGame(ctx, &g, ps, objs); err != nil {
		return diplomacy.Game{}, fmt.Errorf("create game: %w", err)
	}
	e.logger.Info("game created", "game_id", g.ID, "civilization", civilization, "rounds", rounds)

	if err := e.logPublic(ctx, g.ID, fmt.Sprintf("Game started with %s", civilization)); err != nil {
		return diplomacy.Game{}, err
	}
	e.runAITurns(ctx, g)
	e.publishUpdate(g, "Game created")
	return g, nil
}

// ParticipantView is a participant as seen by one viewer. PrivateObjective
// is only set for the viewer's own entry.
type ParticipantView struct {
	diplomacy.Participant
	PublicObjective  *diplomacy.Objective
	PrivateObjective *diplomacy.Objective
}

// Snapshot is the game as one participant is allowed to see it.
type Snapshot struct {
	Game         diplomacy.Game
	Viewer       diplomacy.Participant
	Participants []ParticipantView
	Proposals    []diplomacy.Proposal
	Discussions  []diplomacy.Discussion
	Log          []diplomacy.LogEntry
}

// GameState returns the snapshot of gameID visible to participantID.
func (e *Engine) GameState(ctx context.Context, gameID, participantID string) (Snapshot, error) {
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return Snapshot{}, err
	}
	viewer, err := e.participantIn(ctx, gameID, participantID)
	if err != nil {
		return Snapshot{}, err
	}

	ps, err := e.store.ListParticipants(ctx, gameID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list participants: %w", err)
	}
	objs, err := e.store.ListObjectives(ctx, gameID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list objectives: %w", err)
	}
	proposals, err := e.store.ListProposals(ctx, gameID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list proposals: %w", err)
	}
	discussions, err := e.store.ListDiscussions(ctx, gameID, viewer.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list discussions: %w", err)
	}
	log, err := e.store.ListLog(ctx, gameID, viewer.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list log: %w", err)
	}

	snap := Snapshot{Game: g, Viewer: viewer, Discussions: discussions, Log: log}
	for _, p := range ps {
		pv := ParticipantView{Participant: p}
		for _, o := range objs {
			if o.OwnerID != p.ID {
				continue
			}
			if o.IsPublic {
				pv.PublicObjective = &o
			} else if p.ID == viewer.ID {
				pv.PrivateObjective = &o
			}
		}
		snap.Participants = append(snap.Participants, pv)
	}
	for _, p := range proposals {
		if _, member := p.RoleOf(viewer.ID); p.IsPublic || member {
			snap.Proposals = append(snap.Proposals, p)
		}
	}
	return snap, nil
}

// Acknowledge records that the participant dismissed the end of game
// result. Repeating it has no further effect.
func (e *Engine) Acknowledge(ctx context.Context, gameID, participantID string) error {
	if _, err := e.participantIn(ctx, gameID, participantID); err != nil {
		return err
	}
	return e.store.AcknowledgeCompletion(ctx, participantID)
}

// ListGames returns the games userID plays in.
func (e *Engine) ListGames(ctx context.Context, userID string, filter store.GameFilter) ([]store.GameSummary, error) {
	return e.store.ListUserGames(ctx, userID, filter)
}

// participantIn loads participantID and checks it belongs to gameID.
func (e *Engine) participantIn(ctx context.Context, gameID, participantID string) (diplomacy.Participant, error) {
	p, err := e.store.GetParticipant(ctx, participantID)
	if err != nil {
		return diplomacy.Participant{}, err
	}
	if p.GameID != gameID {
		return diplomacy.Participant{}, diplomacy.ErrNotParticipant
	}
	return p, nil
}
