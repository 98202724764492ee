package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/objective"
)

func (e *Engine) assignObjectives(gameID string, ps []diplomacy.Participant) ([]diplomacy.Objective, error) {
	objs, err := objective.Assign(e.rng, gameID, ps)
	if err != nil {
		return nil, fmt.Errorf("assign objectives: %w", err)
	}
	return objs, nil
}

// evaluateObjectives scores every pending objective and ranks the
// participants. It does nothing until the game ends. Once no objective is
// pending the game has already been scored, so the stored statuses are
// ranked again without writing the announcement a second time.
func (e *Engine) evaluateObjectives(ctx context.Context, gameID string, isGameEnd bool) (objective.Standings, error) {
	if !isGameEnd {
		return objective.Standings{}, nil
	}

	ps, err := e.store.ListParticipants(ctx, gameID)
	if err != nil {
		return objective.Standings{}, fmt.Errorf("list participants: %w", err)
	}
	objs, err := e.store.ListObjectives(ctx, gameID)
	if err != nil {
		return objective.Standings{}, fmt.Errorf("list objectives: %w", err)
	}
	if !slices.ContainsFunc(objs, func(o diplomacy.Objective) bool { return o.Status == diplomacy.ObjectivePending }) {
		return objective.Rank(ps, objs), nil
	}

	results := objective.Evaluate(ps, objs)
	decided := make([]diplomacy.Objective, len(results))
	status := make(map[string]diplomacy.ObjectiveStatus, len(results))
	for i, r := range results {
		decided[i] = r.Objective
		status[r.Objective.ID] = r.Objective.Status
	}
	if err := e.store.UpdateObjectiveStatuses(ctx, decided); err != nil {
		return objective.Standings{}, fmt.Errorf("update objectives: %w", err)
	}
	for _, r := range results {
		if err := e.logScoped(ctx, gameID, r.Message, r.Objective.IsPublic, []string{r.Owner.ID}); err != nil {
			return objective.Standings{}, err
		}
	}

	for i, o := range objs {
		if s, ok := status[o.ID]; ok {
			objs[i].Status = s
		}
	}
	standings := objective.Rank(ps, objs)
	if err := e.logPublic(ctx, gameID, standings.Announcement()); err != nil {
		return objective.Standings{}, err
	}
	for _, line := range standings.FinalScores() {
		if err := e.logPublic(ctx, gameID, line); err != nil {
			return objective.Standings{}, err
		}
	}
	return standings, nil
}
