// Package diplomacy defines the core domain types of the game.
// It has no dependencies outside the standard library.
package diplomacy

import (
	"math/rand/v2"
	"slices"
	"time"
)

// Stat bounds applied after every effect.
const (
	MinStat = 1
	MaxStat = 100
)

type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Game struct {
	ID             string
	Phase          Phase
	CurrentRound   int
	NumberOfRounds int
	WinnerID       string
	CreatedAt      time.Time
}

type Phase string

const (
	PhaseSetup      Phase = "SETUP"
	PhaseProposal   Phase = "PROPOSAL"
	PhaseDiscussion Phase = "DISCUSSION"
	PhaseVoting     Phase = "VOTING"
	PhaseResolve    Phase = "RESOLVE"
	PhaseCompleted  Phase = "COMPLETED"
)

// Next returns the phase that follows p in the round cycle. The round cap
// is not considered here; COMPLETED is chosen by the state machine.
func (p Phase) Next() Phase {
	switch p {
	case PhaseSetup:
		return PhaseProposal
	case PhaseProposal:
		return PhaseDiscussion
	case PhaseDiscussion:
		return PhaseVoting
	case PhaseVoting:
		return PhaseResolve
	case PhaseResolve:
		return PhaseProposal
	}
	return PhaseCompleted
}

type Participant struct {
	ID                        string
	GameID                    string
	Civilization              string
	Might                     int
	Economy                   int
	IsAI                      bool
	UserID                    string
	RemainingProposals        int
	TradeDealsAccepted        int
	HasAcknowledgedCompletion bool
	JoinOrder                 int
}

type ObjectiveType string

const (
	ObjectiveTradeDeal        ObjectiveType = "TRADE_DEAL"
	ObjectiveMilitaryAlliance ObjectiveType = "MILITARY_ALLIANCE"
	ObjectiveSabotage         ObjectiveType = "SABOTAGE"
	ObjectiveEconomicGrowth   ObjectiveType = "ECONOMIC_GROWTH"
	ObjectiveMilitaryGrowth   ObjectiveType = "MILITARY_GROWTH"
)

type ObjectiveStatus string

const (
	ObjectivePending   ObjectiveStatus = "PENDING"
	ObjectiveCompleted ObjectiveStatus = "COMPLETED"
	ObjectiveFailed    ObjectiveStatus = "FAILED"
)

// Objective is a scoring goal owned by one participant. For public
// objectives TargetMight/TargetEconomy hold the threshold the owner must
// reach; for private objectives a zero value marks which stat of
// TargetParticipantID must end up the lowest.
type Objective struct {
	ID                  string
	GameID              string
	OwnerID             string
	Description         string
	Type                ObjectiveType
	IsPublic            bool
	Status              ObjectiveStatus
	TargetMight         *int
	TargetEconomy       *int
	TargetParticipantID string
}

type ProposalType string

const (
	ProposalTrade    ProposalType = "TRADE"
	ProposalMilitary ProposalType = "MILITARY"
	ProposalAlliance ProposalType = "ALLIANCE"
)

func (t ProposalType) Valid() bool {
	switch t {
	case ProposalTrade, ProposalMilitary, ProposalAlliance:
		return true
	}
	return false
}

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalAccepted ProposalStatus = "ACCEPTED"
	ProposalRejected ProposalStatus = "REJECTED"
)

type Role string

const (
	RoleCreator     Role = "CREATOR"
	RoleParticipant Role = "PARTICIPANT"
	RoleTarget      Role = "TARGET"
)

// CanVote reports whether holders of r may vote on the proposal.
func (r Role) CanVote() bool {
	return r == RoleCreator || r == RoleParticipant
}

type Proposal struct {
	ID          string
	GameID      string
	CreatorID   string
	Type        ProposalType
	Description string
	IsPublic    bool
	RoundNumber int
	Status      ProposalStatus
	Members     []ProposalMember
	Votes       []Vote
	CreatedAt   time.Time
}

type ProposalMember struct {
	ParticipantID string
	Role          Role
}

// RoleOf returns the role participantID holds on p, if any.
func (p Proposal) RoleOf(participantID string) (Role, bool) {
	for _, m := range p.Members {
		if m.ParticipantID == participantID {
			return m.Role, true
		}
	}
	return "", false
}

// IDsWithRole returns member ids holding any of roles, in membership order.
func (p Proposal) IDsWithRole(roles ...Role) []string {
	var ids []string
	for _, m := range p.Members {
		if slices.Contains(roles, m.Role) {
			ids = append(ids, m.ParticipantID)
		}
	}
	return ids
}

// VoteOf returns participantID's vote on p, if cast.
func (p Proposal) VoteOf(participantID string) (Vote, bool) {
	for _, v := range p.Votes {
		if v.ParticipantID == participantID {
			return v, true
		}
	}
	return Vote{}, false
}

type Vote struct {
	ID            string
	ProposalID    string
	ParticipantID string
	Support       bool
	CreatedAt     time.Time
}

type Discussion struct {
	ID             string
	GameID         string
	ParticipantIDs []string
	Messages       []ChatMessage
	CreatedAt      time.Time
}

// HasMember reports whether participantID belongs to d.
func (d Discussion) HasMember(participantID string) bool {
	return slices.Contains(d.ParticipantIDs, participantID)
}

type ChatMessage struct {
	ID           string    `json:"id"`
	DiscussionID string    `json:"discussionId"`
	SenderID     string    `json:"senderId"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}

type LogEntry struct {
	ID        string    `json:"id"`
	GameID    string    `json:"gameId"`
	Event     string    `json:"event"`
	Time      time.Time `json:"time"`
	IsPublic  bool      `json:"isPublic"`
	VisibleTo []string  `json:"visibleTo,omitempty"`
}

// VisibleToParticipant reports whether participantID may see e.
func (e LogEntry) VisibleToParticipant(participantID string) bool {
	return e.IsPublic || slices.Contains(e.VisibleTo, participantID)
}

// StatUpdate is a participant's post-effect stats, already clamped.
type StatUpdate struct {
	ParticipantID  string
	Might          int
	Economy        int
	TradeDealDelta int
}

// Clamp bounds v to [MinStat, MaxStat].
func Clamp(v int) int {
	return max(MinStat, min(MaxStat, v))
}

// Rand is the randomness the game draws on. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// GlobalRand draws from the math/rand/v2 top-level source, which is safe
// for concurrent use.
type GlobalRand struct{}

func (GlobalRand) Float64() float64 { return rand.Float64() }
func (GlobalRand) IntN(n int) int   { return rand.IntN(n) }
