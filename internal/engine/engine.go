// Package engine drives a game: it advances phases, records proposals and
// votes, resolves rounds, scores objectives and runs AI turns.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/events"
	"github.com/playperu/diplomacy/internal/outcome"
	"github.com/playperu/diplomacy/internal/store"
)

// Settings are the rules new games are created with.
type Settings struct {
	NumberOfRounds    int
	ProposalsPerRound int
	StartingMight     int
	StartingEconomy   int
	AICivilizations   []string
}

// TurnView is what an AI participant sees when it takes a phase turn.
// Pending lists the proposals Self may still vote on.
type TurnView struct {
	Game         diplomacy.Game
	Self         diplomacy.Participant
	Participants []diplomacy.Participant
	Pending      []diplomacy.Proposal
}

// Others returns every participant except Self.
func (v TurnView) Others() []diplomacy.Participant {
	out := make([]diplomacy.Participant, 0, len(v.Participants))
	for _, p := range v.Participants {
		if p.ID != v.Self.ID {
			out = append(out, p)
		}
	}
	return out
}

// ProposalDraft is a proposal an AI wants to create. The creator is implied.
type ProposalDraft struct {
	Type           diplomacy.ProposalType
	Description    string
	IsPublic       bool
	ParticipantIDs []string
	TargetIDs      []string
}

type Ballot struct {
	ProposalID string
	Support    bool
}

// ChatView is the context for an AI reply to a discussion message.
type ChatView struct {
	Self         diplomacy.Participant
	Participants []diplomacy.Participant
	Discussion   diplomacy.Discussion
	Message      diplomacy.ChatMessage
}

// AI decides the actions of non-human participants. An empty reply means
// the AI stays silent.
type AI interface {
	Propose(ctx context.Context, view TurnView) ([]ProposalDraft, error)
	Vote(ctx context.Context, view TurnView) ([]Ballot, error)
	Reply(ctx context.Context, view ChatView) (string, error)
}

type Engine struct {
	store     store.Store
	bus       events.Bus
	ai        AI
	rng       diplomacy.Rand
	logger    *slog.Logger
	settings  Settings
	resolvers map[diplomacy.ProposalType]outcome.Resolver

	mu    sync.Mutex
	games map[string]*gameLock
}

// gameLock is held or awaited by refs callers. It is dropped from
// Engine.games when the last of them unlocks.
type gameLock struct {
	sync.Mutex
	refs int
}

func New(st store.Store, bus events.Bus, ai AI, rng diplomacy.Rand, logger *slog.Logger, settings Settings) *Engine {
	return &Engine{
		store:     st,
		bus:       bus,
		ai:        ai,
		rng:       rng,
		logger:    logger,
		settings:  settings,
		resolvers: outcome.Resolvers(rng),
		games:     make(map[string]*gameLock),
	}
}

// lock serializes state-changing operations on one game and returns the
// matching unlock.
func (e *Engine) lock(gameID string) func() {
	e.mu.Lock()
	l, ok := e.games[gameID]
	if !ok {
		l = &gameLock{}
		e.games[gameID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.games, gameID)
		}
		e.mu.Unlock()
	}
}

// lockedGames reports how many games currently have a lock entry.
func (e *Engine) lockedGames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.games)
}
