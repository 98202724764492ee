package engine

import (
	"context"
	"fmt"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/events"
)

func (e *Engine) logPublic(ctx context.Context, gameID, message string) error {
	return e.appendLog(ctx, diplomacy.LogEntry{GameID: gameID, Event: message, IsPublic: true})
}

// logPrivate records an entry only visibleTo may see. An empty scope still
// writes a private entry, which nobody sees.
func (e *Engine) logPrivate(ctx context.Context, gameID, message string, visibleTo []string) error {
	return e.appendLog(ctx, diplomacy.LogEntry{GameID: gameID, Event: message, VisibleTo: unique(visibleTo)})
}

func (e *Engine) logScoped(ctx context.Context, gameID, message string, public bool, visibleTo []string) error {
	if public {
		return e.logPublic(ctx, gameID, message)
	}
	return e.logPrivate(ctx, gameID, message, visibleTo)
}

func (e *Engine) appendLog(ctx context.Context, entry diplomacy.LogEntry) error {
	if err := e.store.AppendLog(ctx, &entry); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	e.bus.Publish(events.GameTopic(entry.GameID), events.LogAppended(entry))
	return nil
}

func (e *Engine) publishUpdate(g diplomacy.Game, reason string) {
	e.bus.Publish(events.GameTopic(g.ID), events.GameUpdated(g, reason))
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
