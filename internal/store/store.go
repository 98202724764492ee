// Package store persists games, participants, proposals, discussions and the
// game log.
package store

import (
	"context"
	"time"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

// GameSummary is one entry in a user's game list.
type GameSummary struct {
	Game          diplomacy.Game
	ParticipantID string
	Civilization  string
}

// GameFilter narrows ListUserGames.
type GameFilter string

const (
	GamesAll       GameFilter = ""
	GamesActive    GameFilter = "active"
	GamesCompleted GameFilter = "completed"
)

type Store interface {
	CreateUser(ctx context.Context, name, passwordHash string) (diplomacy.User, error)
	UserByName(ctx context.Context, name string) (diplomacy.User, string, error)
	CreateSession(ctx context.Context, userID string, expiresAt time.Time) (string, error)
	UserFromSession(ctx context.Context, sessionID string, now time.Time) (diplomacy.User, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListUserGames(ctx context.Context, userID string, filter GameFilter) ([]GameSummary, error)

	// CreateGame inserts the game, its participants and their objectives in
	// one transaction. Empty ids are filled in place.
	CreateGame(ctx context.Context, g *diplomacy.Game, ps []diplomacy.Participant, objs []diplomacy.Objective) error
	GetGame(ctx context.Context, id string) (diplomacy.Game, error)
	// SetPhase moves the game from one phase to another and fails with
	// ErrPhaseConflict when the game is no longer in from.
	SetPhase(ctx context.Context, gameID string, from, to diplomacy.Phase) error
	// StartRound moves a game from the given phase to PROPOSAL, increments
	// its round and resets every participant's proposal allowance.
	StartRound(ctx context.Context, gameID string, from diplomacy.Phase, allowance int) (diplomacy.Game, error)
	CompleteGame(ctx context.Context, gameID string, from diplomacy.Phase, winnerID string) error

	ListParticipants(ctx context.Context, gameID string) ([]diplomacy.Participant, error)
	GetParticipant(ctx context.Context, id string) (diplomacy.Participant, error)
	ParticipantForUser(ctx context.Context, gameID, userID string) (diplomacy.Participant, error)
	AcknowledgeCompletion(ctx context.Context, participantID string) error

	ListObjectives(ctx context.Context, gameID string) ([]diplomacy.Objective, error)
	UpdateObjectiveStatuses(ctx context.Context, objs []diplomacy.Objective) error

	// CreateProposal spends one of the creator's remaining proposals and
	// inserts the proposal with its members, failing with
	// ErrNoProposalsRemaining when the allowance is used up.
	CreateProposal(ctx context.Context, p *diplomacy.Proposal) error
	GetProposal(ctx context.Context, id string) (diplomacy.Proposal, error)
	ListProposals(ctx context.Context, gameID string) ([]diplomacy.Proposal, error)
	ListPendingProposals(ctx context.Context, gameID string, round int) ([]diplomacy.Proposal, error)
	CreateVote(ctx context.Context, v *diplomacy.Vote) error
	// ResolveProposal finalizes a PENDING proposal and applies its stat
	// updates atomically.
	ResolveProposal(ctx context.Context, proposalID string, status diplomacy.ProposalStatus, updates []diplomacy.StatUpdate) error

	AppendLog(ctx context.Context, e *diplomacy.LogEntry) error
	// ListLog returns the game's log in append order. A non-empty
	// participantID limits it to entries that participant may see.
	ListLog(ctx context.Context, gameID, participantID string) ([]diplomacy.LogEntry, error)

	CreateDiscussion(ctx context.Context, d *diplomacy.Discussion) error
	GetDiscussion(ctx context.Context, id string) (diplomacy.Discussion, error)
	FindDiscussion(ctx context.Context, gameID string, participantIDs []string) (diplomacy.Discussion, error)
	SetDiscussionParticipants(ctx context.Context, id string, participantIDs []string) error
	ListDiscussions(ctx context.Context, gameID, participantID string) ([]diplomacy.Discussion, error)
	CreateMessage(ctx context.Context, m *diplomacy.ChatMessage) error
}
