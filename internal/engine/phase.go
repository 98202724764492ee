package engine

import (
	"context"
	"fmt"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

// AdvancePhase moves the game to the next phase of the round cycle.
//
// Entering RESOLVE resolves the round's proposals first; in the last round
// the game is scored and goes straight to COMPLETED. Leaving RESOLVE starts
// the next round. PROPOSAL and VOTING give every AI participant a turn.
func (e *Engine) AdvancePhase(ctx context.Context, gameID string) (diplomacy.Game, error) {
	unlock := e.lock(gameID)
	defer unlock()

	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return diplomacy.Game{}, err
	}
	if g.Phase == diplomacy.PhaseCompleted {
		return g, diplomacy.ErrGameCompleted
	}

	from := g.Phase
	next := from.Next()
	log := e.logger.With("game_id", g.ID, "round", g.CurrentRound, "from", from)

	switch {
	case next == diplomacy.PhaseResolve:
		isGameEnd := g.CurrentRound >= g.NumberOfRounds
		standings, err := e.resolveRound(ctx, g, isGameEnd)
		if err != nil {
			return g, err
		}
		if isGameEnd {
			winnerID := standings.WinnerID()
			if err := e.store.CompleteGame(ctx, g.ID, from, winnerID); err != nil {
				return g, err
			}
			g.Phase, g.WinnerID = diplomacy.PhaseCompleted, winnerID
			log.Info("game completed", "winner_id", winnerID)
			e.publishUpdate(g, "Game completed")
			return g, nil
		}
		if err := e.enter(ctx, &g, from, next); err != nil {
			return g, err
		}

	case from == diplomacy.PhaseResolve:
		ng, err := e.store.StartRound(ctx, g.ID, from, e.settings.ProposalsPerRound)
		if err != nil {
			return g, err
		}
		msg := fmt.Sprintf("Round %d resolved. Starting Round %d", g.CurrentRound, ng.CurrentRound)
		g = ng
		if err := e.logPublic(ctx, g.ID, msg); err != nil {
			return g, err
		}
		log.Info("round started", "next_round", g.CurrentRound)
		e.runAITurns(ctx, g)
		e.publishUpdate(g, msg)
		return g, nil

	default:
		if err := e.enter(ctx, &g, from, next); err != nil {
			return g, err
		}
		e.runAITurns(ctx, g)
	}

	log.Info("phase advanced", "to", g.Phase)
	e.publishUpdate(g, fmt.Sprintf("Game advanced to %s phase", g.Phase))
	return g, nil
}

// enter persists the phase change and writes its log line.
func (e *Engine) enter(ctx context.Context, g *diplomacy.Game, from, to diplomacy.Phase) error {
	if err := e.store.SetPhase(ctx, g.ID, from, to); err != nil {
		return err
	}
	g.Phase = to
	return e.logPublic(ctx, g.ID, fmt.Sprintf("Game advanced to %s phase", to))
}
