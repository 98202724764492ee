package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/events"
)

// NewDiscussion is the discussion id that asks
// UpdateDiscussionParticipants to create a discussion.
const NewDiscussion = "new"

// SendMessage posts a message to a discussion the sender belongs to. A
// message from a human is answered by every AI member of the discussion.
func (e *Engine) SendMessage(ctx context.Context, discussionID, senderID, content string) (diplomacy.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return diplomacy.ChatMessage{}, fmt.Errorf("empty message: %w", diplomacy.ErrInvalidInput)
	}
	d, err := e.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return diplomacy.ChatMessage{}, err
	}
	if !d.HasMember(senderID) {
		return diplomacy.ChatMessage{}, diplomacy.ErrNotMember
	}
	sender, err := e.participantIn(ctx, d.GameID, senderID)
	if err != nil {
		return diplomacy.ChatMessage{}, err
	}

	m, err := e.postMessage(ctx, d.ID, sender.ID, content)
	if err != nil {
		return diplomacy.ChatMessage{}, err
	}
	if !sender.IsAI {
		e.aiReplies(ctx, d, m)
	}
	return m, nil
}

func (e *Engine) postMessage(ctx context.Context, discussionID, senderID, content string) (diplomacy.ChatMessage, error) {
	m := diplomacy.ChatMessage{DiscussionID: discussionID, SenderID: senderID, Content: content}
	if err := e.store.CreateMessage(ctx, &m); err != nil {
		return diplomacy.ChatMessage{}, err
	}
	e.bus.Publish(events.DiscussionTopic(discussionID), events.MessagePosted(m))
	return m, nil
}

// aiReplies lets each AI member other than the sender answer m in turn.
func (e *Engine) aiReplies(ctx context.Context, d diplomacy.Discussion, m diplomacy.ChatMessage) {
	ps, err := e.store.ListParticipants(ctx, d.GameID)
	if err != nil {
		e.logger.Error("listing participants for ai replies", "discussion_id", d.ID, "error", err)
		return
	}
	for _, p := range ps {
		if !p.IsAI || p.ID == m.SenderID || !d.HasMember(p.ID) {
			continue
		}
		reply, err := e.ai.Reply(ctx, ChatView{Self: p, Participants: ps, Discussion: d, Message: m})
		if err != nil {
			e.logger.Error("ai reply failed", "discussion_id", d.ID, "participant_id", p.ID, "error", err)
			continue
		}
		if strings.TrimSpace(reply) == "" {
			continue
		}
		if _, err := e.postMessage(ctx, d.ID, p.ID, reply); err != nil {
			e.logger.Error("posting ai reply", "discussion_id", d.ID, "participant_id", p.ID, "error", err)
		}
	}
}

// UpdateDiscussionParticipants replaces the member set of a discussion, or
// creates one when discussionID is NewDiscussion. The actor must belong to
// the discussion and is always kept in the new set.
func (e *Engine) UpdateDiscussionParticipants(ctx context.Context, actorID, discussionID, gameID string, participantIDs []string) (diplomacy.Discussion, error) {
	ids, err := e.memberSet(ctx, actorID, gameID, participantIDs)
	if err != nil {
		return diplomacy.Discussion{}, err
	}

	if discussionID == NewDiscussion {
		d := diplomacy.Discussion{GameID: gameID, ParticipantIDs: ids}
		if err := e.store.CreateDiscussion(ctx, &d); err != nil {
			return diplomacy.Discussion{}, err
		}
		return d, nil
	}

	d, err := e.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return diplomacy.Discussion{}, err
	}
	if d.GameID != gameID {
		return diplomacy.Discussion{}, fmt.Errorf("discussion %s: %w", discussionID, diplomacy.ErrNotFound)
	}
	if !d.HasMember(actorID) {
		return diplomacy.Discussion{}, diplomacy.ErrNotMember
	}
	if err := e.store.SetDiscussionParticipants(ctx, d.ID, ids); err != nil {
		return diplomacy.Discussion{}, err
	}
	return e.store.GetDiscussion(ctx, d.ID)
}

// LookupDiscussion returns the discussion whose member set is exactly the
// actor plus participantIDs, creating it if none exists.
func (e *Engine) LookupDiscussion(ctx context.Context, actorID, gameID string, participantIDs []string) (diplomacy.Discussion, error) {
	ids, err := e.memberSet(ctx, actorID, gameID, participantIDs)
	if err != nil {
		return diplomacy.Discussion{}, err
	}
	d, err := e.store.FindDiscussion(ctx, gameID, ids)
	if err == nil {
		return d, nil
	}
	if !isNotFound(err) {
		return diplomacy.Discussion{}, err
	}
	d = diplomacy.Discussion{GameID: gameID, ParticipantIDs: ids}
	if err := e.store.CreateDiscussion(ctx, &d); err != nil {
		return diplomacy.Discussion{}, err
	}
	return d, nil
}

// memberSet validates a discussion member list and adds the actor to it.
func (e *Engine) memberSet(ctx context.Context, actorID, gameID string, participantIDs []string) ([]string, error) {
	if _, err := e.participantIn(ctx, gameID, actorID); err != nil {
		return nil, err
	}
	ids := unique(append([]string{actorID}, participantIDs...))
	if len(ids) < 2 {
		return nil, fmt.Errorf("a discussion needs at least two members: %w", diplomacy.ErrInvalidInput)
	}
	for _, id := range ids[1:] {
		if _, err := e.participantIn(ctx, gameID, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
