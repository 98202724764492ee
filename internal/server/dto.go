package server

import (
	"time"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/engine"
	"github.com/playperu/diplomacy/internal/store"
)

type GameResponse struct {
	ID             string          `json:"id"`
	Phase          diplomacy.Phase `json:"phase"`
	CurrentRound   int             `json:"currentRound"`
	NumberOfRounds int             `json:"numberOfRounds"`
	WinnerID       string          `json:"winnerId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type GameSummaryResponse struct {
	Game          GameResponse `json:"game"`
	ParticipantID string       `json:"participantId"`
	Civilization  string       `json:"civilization"`
}

type ObjectiveResponse struct {
	ID                  string                    `json:"id"`
	Description         string                    `json:"description"`
	Type                diplomacy.ObjectiveType   `json:"type"`
	IsPublic            bool                      `json:"isPublic"`
	Status              diplomacy.ObjectiveStatus `json:"status"`
	TargetMight         *int                      `json:"targetMight"`
	TargetEconomy       *int                      `json:"targetEconomy"`
	TargetParticipantID string                    `json:"targetParticipantId,omitempty"`
}

type ParticipantResponse struct {
	ID                        string             `json:"id"`
	Civilization              string             `json:"civilization"`
	Might                     int                `json:"might"`
	Economy                   int                `json:"economy"`
	IsAI                      bool               `json:"isAI"`
	RemainingProposals        int                `json:"remainingProposals"`
	TradeDealsAccepted        int                `json:"tradeDealsAccepted"`
	HasAcknowledgedCompletion bool               `json:"hasAcknowledgedCompletion"`
	PublicObjective           *ObjectiveResponse `json:"publicObjective,omitempty"`
	PrivateObjective          *ObjectiveResponse `json:"privateObjective,omitempty"`
}

type ProposalMemberResponse struct {
	ParticipantID string         `json:"participantId"`
	Role          diplomacy.Role `json:"role"`
}

type VoteResponse struct {
	ID            string    `json:"id"`
	ProposalID    string    `json:"proposalId"`
	ParticipantID string    `json:"participantId"`
	Support       bool      `json:"support"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ProposalResponse struct {
	ID           string                   `json:"id"`
	CreatorID    string                   `json:"creatorId"`
	Type         diplomacy.ProposalType   `json:"type"`
	Description  string                   `json:"description"`
	IsPublic     bool                     `json:"isPublic"`
	RoundNumber  int                      `json:"roundNumber"`
	Status       diplomacy.ProposalStatus `json:"status"`
	Participants []ProposalMemberResponse `json:"participants"`
	Votes        []VoteResponse           `json:"votes"`
	CreatedAt    time.Time                `json:"createdAt"`
}

type DiscussionResponse struct {
	ID             string                  `json:"id"`
	GameID         string                  `json:"gameId"`
	ParticipantIDs []string                `json:"participantIds"`
	Messages       []diplomacy.ChatMessage `json:"messages"`
}

// GameStateResponse is the snapshot of a game visible to the caller.
type GameStateResponse struct {
	Game         GameResponse          `json:"game"`
	ViewerID     string                `json:"viewerId"`
	Participants []ParticipantResponse `json:"participants"`
	Proposals    []ProposalResponse    `json:"proposals"`
	Discussions  []DiscussionResponse  `json:"discussions"`
	Log          []diplomacy.LogEntry  `json:"log"`
}

type CreateGameRequest struct {
	Civilization   string `json:"civilization"`
	NumberOfRounds int    `json:"numberOfRounds,omitempty"`
}

type CreateProposalRequest struct {
	Type           diplomacy.ProposalType `json:"type"`
	Description    string                 `json:"description"`
	IsPublic       bool                   `json:"isPublic"`
	ParticipantIDs []string               `json:"participantIds"`
	TargetIDs      []string               `json:"targetIds"`
}

type VoteRequest struct {
	Support *bool `json:"support"`
}

type DiscussionRequest struct {
	GameID         string   `json:"gameId,omitempty"`
	ParticipantIDs []string `json:"participantIds"`
}

type MessageRequest struct {
	Content string `json:"content"`
}

func newGameResponse(g diplomacy.Game) GameResponse {
	return GameResponse{
		ID:             g.ID,
		Phase:          g.Phase,
		CurrentRound:   g.CurrentRound,
		NumberOfRounds: g.NumberOfRounds,
		WinnerID:       g.WinnerID,
		CreatedAt:      g.CreatedAt,
	}
}

func newGameSummaries(gs []store.GameSummary) []GameSummaryResponse {
	out := make([]GameSummaryResponse, len(gs))
	for i, g := range gs {
		out[i] = GameSummaryResponse{Game: newGameResponse(g.Game), ParticipantID: g.ParticipantID, Civilization: g.Civilization}
	}
	return out
}

func newObjectiveResponse(o *diplomacy.Objective) *ObjectiveResponse {
	if o == nil {
		return nil
	}
	return &ObjectiveResponse{
		ID:                  o.ID,
		Description:         o.Description,
		Type:                o.Type,
		IsPublic:            o.IsPublic,
		Status:              o.Status,
		TargetMight:         o.TargetMight,
		TargetEconomy:       o.TargetEconomy,
		TargetParticipantID: o.TargetParticipantID,
	}
}

func newProposalResponse(p diplomacy.Proposal) ProposalResponse {
	out := ProposalResponse{
		ID:           p.ID,
		CreatorID:    p.CreatorID,
		Type:         p.Type,
		Description:  p.Description,
		IsPublic:     p.IsPublic,
		RoundNumber:  p.RoundNumber,
		Status:       p.Status,
		Participants: make([]ProposalMemberResponse, len(p.Members)),
		Votes:        make([]VoteResponse, len(p.Votes)),
		CreatedAt:    p.CreatedAt,
	}
	for i, m := range p.Members {
		out.Participants[i] = ProposalMemberResponse{ParticipantID: m.ParticipantID, Role: m.Role}
	}
	for i, v := range p.Votes {
		out.Votes[i] = newVoteResponse(v)
	}
	return out
}

func newVoteResponse(v diplomacy.Vote) VoteResponse {
	return VoteResponse{ID: v.ID, ProposalID: v.ProposalID, ParticipantID: v.ParticipantID, Support: v.Support, CreatedAt: v.CreatedAt}
}

func newDiscussionResponse(d diplomacy.Discussion) DiscussionResponse {
	msgs := d.Messages
	if msgs == nil {
		msgs = []diplomacy.ChatMessage{}
	}
	return DiscussionResponse{ID: d.ID, GameID: d.GameID, ParticipantIDs: d.ParticipantIDs, Messages: msgs}
}

func newGameStateResponse(s engine.Snapshot) GameStateResponse {
	out := GameStateResponse{
		Game:         newGameResponse(s.Game),
		ViewerID:     s.Viewer.ID,
		Participants: make([]ParticipantResponse, len(s.Participants)),
		Proposals:    make([]ProposalResponse, len(s.Proposals)),
		Discussions:  make([]DiscussionResponse, len(s.Discussions)),
		Log:          s.Log,
	}
	for i, p := range s.Participants {
		out.Participants[i] = ParticipantResponse{
			ID:                        p.ID,
			Civilization:              p.Civilization,
			Might:                     p.Might,
			Economy:                   p.Economy,
			IsAI:                      p.IsAI,
			RemainingProposals:        p.RemainingProposals,
			TradeDealsAccepted:        p.TradeDealsAccepted,
			HasAcknowledgedCompletion: p.HasAcknowledgedCompletion,
			PublicObjective:           newObjectiveResponse(p.PublicObjective),
			PrivateObjective:          newObjectiveResponse(p.PrivateObjective),
		}
	}
	for i, p := range s.Proposals {
		out.Proposals[i] = newProposalResponse(p)
	}
	for i, d := range s.Discussions {
		out.Discussions[i] = newDiscussionResponse(d)
	}
	if out.Log == nil {
		out.Log = []diplomacy.LogEntry{}
	}
	return out
}
