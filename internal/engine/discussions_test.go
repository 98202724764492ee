package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/events"
)

func TestLookupDiscussion(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome := ps[0], ps[1]

	d, err := f.engine.LookupDiscussion(ctx, human.ID, g.ID, []string{rome.ID})
	if err != nil {
		t.Fatalf("LookupDiscussion: %v", err)
	}
	again, err := f.engine.LookupDiscussion(ctx, rome.ID, g.ID, []string{human.ID})
	if err != nil {
		t.Fatalf("LookupDiscussion: %v", err)
	}
	if again.ID != d.ID {
		t.Errorf("same member set gave discussions %s and %s", d.ID, again.ID)
	}

	if _, err := f.engine.LookupDiscussion(ctx, human.ID, g.ID, nil); !errors.Is(err, diplomacy.ErrInvalidInput) {
		t.Errorf("solo discussion err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.engine.LookupDiscussion(ctx, human.ID, g.ID, []string{"nobody"}); !errors.Is(err, diplomacy.ErrNotFound) && !errors.Is(err, diplomacy.ErrNotParticipant) {
		t.Errorf("stranger err = %v", err)
	}
}

func TestUpdateDiscussionParticipants(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome, egypt := ps[0], ps[1], ps[2]

	d, err := f.engine.UpdateDiscussionParticipants(ctx, human.ID, NewDiscussion, g.ID, []string{rome.ID})
	if err != nil {
		t.Fatalf("create discussion: %v", err)
	}
	if len(d.ParticipantIDs) != 2 || !d.HasMember(human.ID) {
		t.Fatalf("members = %v", d.ParticipantIDs)
	}

	d, err = f.engine.UpdateDiscussionParticipants(ctx, human.ID, d.ID, g.ID, []string{egypt.ID})
	if err != nil {
		t.Fatalf("update discussion: %v", err)
	}
	if d.HasMember(rome.ID) || !d.HasMember(egypt.ID) || !d.HasMember(human.ID) {
		t.Errorf("members = %v, want human and egypt", d.ParticipantIDs)
	}

	if _, err := f.engine.UpdateDiscussionParticipants(ctx, rome.ID, d.ID, g.ID, []string{human.ID}); !errors.Is(err, diplomacy.ErrNotMember) {
		t.Errorf("outsider update err = %v, want ErrNotMember", err)
	}
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome, egypt := ps[0], ps[1], ps[2]
	f.ai.reply = func(v ChatView) (string, error) {
		if strings.Contains(v.Message.Content, "quiet") {
			return "", nil
		}
		return v.Self.Civilization + " acknowledges your message", nil
	}

	d, err := f.engine.LookupDiscussion(ctx, human.ID, g.ID, []string{rome.ID})
	if err != nil {
		t.Fatalf("LookupDiscussion: %v", err)
	}
	m, err := f.engine.SendMessage(ctx, d.ID, human.ID, "  shall we trade?  ")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if m.Content != "shall we trade?" || m.SenderID != human.ID {
		t.Errorf("message = %+v", m)
	}
	if _, err := f.engine.SendMessage(ctx, d.ID, human.ID, "stay quiet"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	got, err := f.store.GetDiscussion(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDiscussion: %v", err)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(got.Messages))
	}
	if reply := got.Messages[1]; reply.SenderID != rome.ID || reply.Content != "Rome acknowledges your message" {
		t.Errorf("reply = %+v", reply)
	}

	if _, err := f.engine.SendMessage(ctx, d.ID, egypt.ID, "hello"); !errors.Is(err, diplomacy.ErrNotMember) {
		t.Errorf("outsider message err = %v, want ErrNotMember", err)
	}
	if _, err := f.engine.SendMessage(ctx, d.ID, human.ID, " "); !errors.Is(err, diplomacy.ErrInvalidInput) {
		t.Errorf("blank message err = %v, want ErrInvalidInput", err)
	}
}

func TestAIReplyFailureDoesNotFailSend(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	f.ai.reply = func(ChatView) (string, error) { return "", errors.New("timeout") }

	d, err := f.engine.LookupDiscussion(ctx, ps[0].ID, g.ID, []string{ps[1].ID, ps[2].ID})
	if err != nil {
		t.Fatalf("LookupDiscussion: %v", err)
	}
	if _, err := f.engine.SendMessage(ctx, d.ID, ps[0].ID, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
}

func receive(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return events.Event{}
}

func TestSubscribeGameFiltersPrivateEntries(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ps := f.newGame(t, 0)
	human, rome, egypt := ps[0], ps[1], ps[2]
	f.advanceTo(t, g.ID, diplomacy.PhaseProposal)

	outsider, err := f.engine.SubscribeGame(ctx, g.ID, egypt.ID)
	if err != nil {
		t.Fatalf("SubscribeGame: %v", err)
	}
	member, err := f.engine.SubscribeGame(ctx, g.ID, rome.ID)
	if err != nil {
		t.Fatalf("SubscribeGame: %v", err)
	}

	f.propose(t, ProposalRequest{GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalAlliance, ParticipantIDs: []string{rome.ID}})
	if _, err := f.engine.AdvancePhase(ctx, g.ID); err != nil {
		t.Fatalf("AdvancePhase: %v", err)
	}

	ev := receive(t, member)
	if ev.Type != events.TypeLogEntry || !strings.Contains(ev.LogEntry.Event, "private ALLIANCE proposal") {
		t.Errorf("member first event = %+v", ev)
	}

	ev = receive(t, outsider)
	if ev.Type != events.TypeLogEntry || ev.LogEntry.Event != "Game advanced to DISCUSSION phase" {
		t.Errorf("outsider first event = %+v", ev)
	}
	ev = receive(t, outsider)
	if ev.Type != events.TypeGameUpdate || ev.GameUpdate.Phase != diplomacy.PhaseDiscussion {
		t.Errorf("outsider second event = %+v", ev)
	}

	if _, err := f.engine.SubscribeGame(ctx, "other-game", egypt.ID); err == nil {
		t.Error("subscribed to a game the participant is not in")
	}

	cancel()
	for range outsider {
	}
	deadline := time.Now().Add(2 * time.Second)
	for f.bus.Subscribers(events.GameTopic(g.ID)) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriptions not released after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubscribeGameEndsWhenSubscriberFallsBehind(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ps := f.newGame(t, 1)

	ch, err := f.engine.SubscribeGame(ctx, g.ID, ps[0].ID)
	if err != nil {
		t.Fatalf("SubscribeGame: %v", err)
	}
	f.advanceTo(t, g.ID, diplomacy.PhaseCompleted)
	// Enough further events to overrun both the engine and broker buffers
	// while nobody reads.
	for range 3 * (cap(ch) + 1) {
		f.engine.publishUpdate(diplomacy.Game{ID: g.ID, Phase: diplomacy.PhaseCompleted}, "")
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if n := f.bus.Subscribers(events.GameTopic(g.ID)); n != 0 {
					t.Errorf("Subscribers = %d after stream ended, want 0", n)
				}
				return
			}
		case <-timeout:
			t.Fatal("stream stayed open after its subscriber fell behind")
		}
	}
}

func TestSubscribeDiscussion(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ps := f.newGame(t, 0)
	human, rome, egypt := ps[0], ps[1], ps[2]

	d, err := f.engine.LookupDiscussion(ctx, human.ID, g.ID, []string{rome.ID})
	if err != nil {
		t.Fatalf("LookupDiscussion: %v", err)
	}
	if _, err := f.engine.SubscribeDiscussion(ctx, d.ID, egypt.ID); !errors.Is(err, diplomacy.ErrNotMember) {
		t.Errorf("outsider subscribe err = %v, want ErrNotMember", err)
	}

	ch, err := f.engine.SubscribeDiscussion(ctx, d.ID, rome.ID)
	if err != nil {
		t.Fatalf("SubscribeDiscussion: %v", err)
	}
	if _, err := f.engine.SendMessage(ctx, d.ID, human.ID, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	ev := receive(t, ch)
	if ev.Type != events.TypeChatMessage || ev.Message.Content != "hello" || ev.Seq != 1 {
		t.Errorf("event = %+v", ev)
	}
}
