package diplomacy

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrNotParticipant        = errors.New("not a participant in this game")
	ErrNotEligible           = errors.New("not entitled to vote on this proposal")
	ErrNotMember             = errors.New("not a member of this discussion")
	ErrNoProposalsRemaining  = errors.New("no proposals remaining this round")
	ErrOverlappingRoles      = errors.New("participant cannot be both participant and target")
	ErrInvalidProposal       = errors.New("invalid proposal")
	ErrAlreadyVoted          = errors.New("already voted on this proposal")
	ErrWrongPhase            = errors.New("action not allowed in current phase")
	ErrPhaseConflict         = errors.New("game phase changed concurrently")
	ErrGameCompleted         = errors.New("game is completed")
	ErrNotEnoughParticipants = errors.New("a game needs at least two participants")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthenticated       = errors.New("not authenticated")
	ErrNameTaken             = errors.New("name already taken")
	ErrInvalidInput          = errors.New("invalid input")
)
