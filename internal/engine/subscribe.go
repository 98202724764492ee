package engine

import (
	"context"
	"errors"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/events"
)

func isNotFound(err error) bool { return errors.Is(err, diplomacy.ErrNotFound) }

// SubscribeGame streams game updates and the log entries participantID may
// see. The channel is closed once ctx is done, after unsubscribing.
func (e *Engine) SubscribeGame(ctx context.Context, gameID, participantID string) (<-chan events.Event, error) {
	if _, err := e.participantIn(ctx, gameID, participantID); err != nil {
		return nil, err
	}
	return e.stream(ctx, events.GameTopic(gameID), func(ev events.Event) bool {
		return ev.VisibleTo(participantID)
	}), nil
}

// SubscribeDiscussion streams new messages of a discussion participantID
// belongs to. Membership is checked again for every message, so a member
// removed from the discussion stops receiving it.
func (e *Engine) SubscribeDiscussion(ctx context.Context, discussionID, participantID string) (<-chan events.Event, error) {
	d, err := e.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	if !d.HasMember(participantID) {
		return nil, diplomacy.ErrNotMember
	}
	return e.stream(ctx, events.DiscussionTopic(discussionID), func(events.Event) bool {
		cur, err := e.store.GetDiscussion(ctx, discussionID)
		return err == nil && cur.HasMember(participantID)
	}), nil
}

func (e *Engine) stream(ctx context.Context, topic string, allow func(events.Event) bool) <-chan events.Event {
	in := e.bus.Subscribe(topic)
	out := make(chan events.Event, cap(in))
	go func() {
		defer close(out)
		defer e.bus.Unsubscribe(topic, in)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				if !allow(ev) {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
