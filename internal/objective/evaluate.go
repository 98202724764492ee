package objective

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

// Assign picks one public and one private objective for every participant.
// Each private objective is bound to a random other participant, so at
// least two participants are required.
func Assign(rng diplomacy.Rand, gameID string, participants []diplomacy.Participant) ([]diplomacy.Objective, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("assign objectives to %d participants: %w", len(participants), diplomacy.ErrNotEnoughParticipants)
	}

	out := make([]diplomacy.Objective, 0, 2*len(participants))
	for _, p := range participants {
		pub := Pick(rng, Public, DefaultPublic)
		out = append(out, pub.Instantiate(gameID, p.ID, diplomacy.Participant{}))

		others := make([]diplomacy.Participant, 0, len(participants)-1)
		for _, o := range participants {
			if o.ID != p.ID {
				others = append(others, o)
			}
		}
		target := others[rng.IntN(len(others))]
		priv := Pick(rng, Private, DefaultPrivate)
		out = append(out, priv.Instantiate(gameID, p.ID, target))
	}
	return out, nil
}

// Result is an objective whose status was decided at game end, together
// with its owner and the log line announcing it.
type Result struct {
	Objective diplomacy.Objective
	Owner     diplomacy.Participant
	Message   string
}

// Evaluate scores every PENDING objective against the final stats. Each
// returned objective is either COMPLETED or FAILED.
func Evaluate(participants []diplomacy.Participant, objectives []diplomacy.Objective) []Result {
	byID := make(map[string]diplomacy.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}
	might := func(p diplomacy.Participant) int { return p.Might }
	economy := func(p diplomacy.Participant) int { return p.Economy }
	trades := func(p diplomacy.Participant) int { return p.TradeDealsAccepted }
	var (
		maxMight   = highest(participants, might)
		maxEconomy = highest(participants, economy)
		maxTrades  = max(0, highest(participants, trades))
		minMight   = lowest(participants, might)
		minEconomy = lowest(participants, economy)
	)

	var results []Result
	for _, o := range objectives {
		if o.Status != diplomacy.ObjectivePending {
			continue
		}
		owner, ok := byID[o.OwnerID]
		if !ok {
			continue
		}

		completed := false
		if o.IsPublic {
			if o.TargetMight != nil && *o.TargetMight > 0 && owner.Might >= *o.TargetMight && owner.Might == maxMight {
				completed = true
			}
			if o.TargetEconomy != nil && *o.TargetEconomy > 0 && owner.Economy >= *o.TargetEconomy && owner.Economy == maxEconomy {
				completed = true
			}
			if o.Type == diplomacy.ObjectiveTradeDeal && owner.TradeDealsAccepted > 0 && owner.TradeDealsAccepted == maxTrades {
				completed = true
			}
		} else if target, ok := byID[o.TargetParticipantID]; ok {
			if o.TargetMight != nil && *o.TargetMight == 0 && target.Might == minMight {
				completed = true
			}
			if o.TargetEconomy != nil && *o.TargetEconomy == 0 && target.Economy == minEconomy {
				completed = true
			}
		}

		visibility := "private"
		if o.IsPublic {
			visibility = "public"
		}
		verb := "failed"
		o.Status = diplomacy.ObjectiveFailed
		if completed {
			verb = "completed"
			o.Status = diplomacy.ObjectiveCompleted
		}
		results = append(results, Result{
			Objective: o,
			Owner:     owner,
			Message:   fmt.Sprintf("%s %s their %s objective: %s", owner.Civilization, verb, visibility, o.Description),
		})
	}
	return results
}

func highest(ps []diplomacy.Participant, stat func(diplomacy.Participant) int) int {
	if len(ps) == 0 {
		return 0
	}
	v := stat(ps[0])
	for _, p := range ps[1:] {
		v = max(v, stat(p))
	}
	return v
}

func lowest(ps []diplomacy.Participant, stat func(diplomacy.Participant) int) int {
	if len(ps) == 0 {
		return 0
	}
	v := stat(ps[0])
	for _, p := range ps[1:] {
		v = min(v, stat(p))
	}
	return v
}

// Score is one participant's final standing.
type Score struct {
	Participant diplomacy.Participant
	Completed   int
}

func (s Score) tiebreak() int { return s.Participant.Might + s.Participant.Economy }

// Standings is the ranked end of game result.
type Standings struct {
	Scores []Score
	// Winners holds every participant tied for first after the tiebreak.
	Winners []diplomacy.Participant
}

// WinnerID is the first participant in rank order.
func (s Standings) WinnerID() string {
	if len(s.Scores) == 0 {
		return ""
	}
	return s.Scores[0].Participant.ID
}

// Announcement is the public game-over log line.
func (s Standings) Announcement() string {
	if len(s.Scores) == 0 {
		return "Game Over!"
	}
	top := s.Scores[0].Completed
	if len(s.Winners) > 1 {
		names := make([]string, len(s.Winners))
		for i, w := range s.Winners {
			names[i] = w.Civilization
		}
		return fmt.Sprintf("Game Over! It's a tie between %s with %d completed objectives!", strings.Join(names, " and "), top)
	}
	return fmt.Sprintf("Game Over! %s wins with %d completed objectives!", s.Scores[0].Participant.Civilization, top)
}

// FinalScores returns one public log line per participant in rank order.
func (s Standings) FinalScores() []string {
	lines := make([]string, len(s.Scores))
	for i, sc := range s.Scores {
		lines[i] = fmt.Sprintf("Final score for %s: %d objectives completed (Might: %d, Economy: %d)",
			sc.Participant.Civilization, sc.Completed, sc.Participant.Might, sc.Participant.Economy)
	}
	return lines
}

// Rank counts COMPLETED objectives per participant and orders them by
// score, then might plus economy. Participants with equal score and
// tiebreak share first place; join order keeps the ranking stable.
func Rank(participants []diplomacy.Participant, objectives []diplomacy.Objective) Standings {
	completed := make(map[string]int, len(participants))
	for _, o := range objectives {
		if o.Status == diplomacy.ObjectiveCompleted {
			completed[o.OwnerID]++
		}
	}

	scores := make([]Score, len(participants))
	for i, p := range participants {
		scores[i] = Score{Participant: p, Completed: completed[p.ID]}
	}
	slices.SortStableFunc(scores, func(a, b Score) int {
		return cmp.Or(
			cmp.Compare(b.Completed, a.Completed),
			cmp.Compare(b.tiebreak(), a.tiebreak()),
			cmp.Compare(a.Participant.JoinOrder, b.Participant.JoinOrder),
		)
	})

	st := Standings{Scores: scores}
	for _, sc := range scores {
		if sc.Completed == scores[0].Completed && sc.tiebreak() == scores[0].tiebreak() {
			st.Winners = append(st.Winners, sc.Participant)
		}
	}
	return st
}
