// Package events carries game and chat notifications from the engine to
// connected clients.
package events

import (
	"github.com/playperu/diplomacy/internal/diplomacy"
)

// Type discriminates the payload of an Event.
type Type string

const (
	TypeGameUpdate  Type = "GAME_UPDATE"
	TypeLogEntry    Type = "LOG_ENTRY"
	TypeChatMessage Type = "CHAT_MESSAGE"
)

// Event is a tagged union: exactly one payload field is set, matching Type.
// ID is stable across redelivery so clients can de-duplicate; Seq increases
// monotonically per topic.
type Event struct {
	ID         string                 `json:"id"`
	Seq        uint64                 `json:"seq"`
	Type       Type                   `json:"type"`
	GameUpdate *GameUpdate            `json:"gameUpdate,omitempty"`
	LogEntry   *diplomacy.LogEntry    `json:"logEntry,omitempty"`
	Message    *diplomacy.ChatMessage `json:"message,omitempty"`
}

// GameUpdate tells clients to refresh their snapshot.
type GameUpdate struct {
	GameID string          `json:"gameId"`
	Phase  diplomacy.Phase `json:"phase"`
	Round  int             `json:"round"`
	Reason string          `json:"reason"`
}

func GameUpdated(g diplomacy.Game, reason string) Event {
	return Event{
		Type:       TypeGameUpdate,
		GameUpdate: &GameUpdate{GameID: g.ID, Phase: g.Phase, Round: g.CurrentRound, Reason: reason},
	}
}

func LogAppended(e diplomacy.LogEntry) Event {
	return Event{ID: e.ID, Type: TypeLogEntry, LogEntry: &e}
}

func MessagePosted(m diplomacy.ChatMessage) Event {
	return Event{ID: m.ID, Type: TypeChatMessage, Message: &m}
}

// VisibleTo reports whether participantID may receive e. Only log entries
// carry a visibility scope; discussion membership is checked at subscribe
// time.
func (e Event) VisibleTo(participantID string) bool {
	if e.Type == TypeLogEntry && e.LogEntry != nil {
		return e.LogEntry.VisibleToParticipant(participantID)
	}
	return true
}

func GameTopic(gameID string) string { return "game:" + gameID }

func DiscussionTopic(discussionID string) string { return "chat:" + discussionID }
