package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/playperu/diplomacy/internal/database"
	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/events"
	"github.com/playperu/diplomacy/internal/migrations"
	"github.com/playperu/diplomacy/internal/store"
)

type fixedRand struct{ f float64 }

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(int) int     { return 0 }

// fakeAI votes in favor of everything and proposes nothing unless told to.
type fakeAI struct {
	propose func(TurnView) ([]ProposalDraft, error)
	vote    func(TurnView) ([]Ballot, error)
	reply   func(ChatView) (string, error)
}

func (f *fakeAI) Propose(_ context.Context, v TurnView) ([]ProposalDraft, error) {
	if f.propose == nil {
		return nil, nil
	}
	return f.propose(v)
}

func (f *fakeAI) Vote(_ context.Context, v TurnView) ([]Ballot, error) {
	if f.vote != nil {
		return f.vote(v)
	}
	ballots := make([]Ballot, len(v.Pending))
	for i, p := range v.Pending {
		ballots[i] = Ballot{ProposalID: p.ID, Support: true}
	}
	return ballots, nil
}

func (f *fakeAI) Reply(_ context.Context, v ChatView) (string, error) {
	if f.reply == nil {
		return "", nil
	}
	return f.reply(v)
}

type fixture struct {
	engine *Engine
	store  store.Store
	bus    *events.Broker
	ai     *fakeAI
	userID string
}

func newFixture(t *testing.T, wrap func(store.Store) store.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(ctx, db, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	var st store.Store = store.NewSQLiteStore(db)
	u, err := st.CreateUser(ctx, "ada", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if wrap != nil {
		st = wrap(st)
	}

	ai := &fakeAI{}
	bus := events.NewBroker()
	settings := Settings{
		NumberOfRounds:    3,
		ProposalsPerRound: 2,
		StartingMight:     50,
		StartingEconomy:   50,
		AICivilizations:   []string{"Rome", "Egypt"},
	}
	eng := New(st, bus, ai, fixedRand{0.99}, slog.New(slog.DiscardHandler), settings)
	return &fixture{engine: eng, store: st, bus: bus, ai: ai, userID: u.ID}
}

// newGame creates a game and returns it with its participants in join
// order: the human, Rome, Egypt.
func (f *fixture) newGame(t *testing.T, rounds int) (diplomacy.Game, []diplomacy.Participant) {
	t.Helper()
	ctx := context.Background()
	g, err := f.engine.CreateGame(ctx, f.userID, "Carthage", rounds)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	ps, err := f.store.ListParticipants(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	return g, ps
}

func (f *fixture) advanceTo(t *testing.T, gameID string, want diplomacy.Phase) diplomacy.Game {
	t.Helper()
	for range 10 {
		g, err := f.engine.AdvancePhase(context.Background(), gameID)
		if err != nil {
			t.Fatalf("AdvancePhase: %v", err)
		}
		if g.Phase == want {
			return g
		}
	}
	t.Fatalf("game never reached %s", want)
	return diplomacy.Game{}
}

func (f *fixture) participant(t *testing.T, id string) diplomacy.Participant {
	t.Helper()
	p, err := f.store.GetParticipant(context.Background(), id)
	if err != nil {
		t.Fatalf("GetParticipant: %v", err)
	}
	return p
}

func (f *fixture) logContains(t *testing.T, gameID, viewerID, substr string) bool {
	t.Helper()
	entries, err := f.store.ListLog(context.Background(), gameID, viewerID)
	if err != nil {
		t.Fatalf("ListLog: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Event, substr) {
			return true
		}
	}
	return false
}

func (f *fixture) propose(t *testing.T, req ProposalRequest) diplomacy.Proposal {
	t.Helper()
	p, err := f.engine.CreateProposal(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}
	return p
}

func TestCreateGame(t *testing.T) {
	f := newFixture(t, nil)
	g, ps := f.newGame(t, 0)

	if g.Phase != diplomacy.PhaseSetup || g.CurrentRound != 1 || g.NumberOfRounds != 3 {
		t.Errorf("game = %+v", g)
	}
	if len(ps) != 3 || ps[0].IsAI || ps[0].UserID != f.userID || !ps[1].IsAI || ps[2].Civilization != "Egypt" {
		t.Fatalf("participants = %+v", ps)
	}
	objs, err := f.store.ListObjectives(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("ListObjectives: %v", err)
	}
	if len(objs) != 6 {
		t.Errorf("got %d objectives, want 6", len(objs))
	}
	if !f.logContains(t, g.ID, ps[2].ID, "Game started with Carthage") {
		t.Error("missing start log entry")
	}

	if _, err := f.engine.CreateGame(context.Background(), f.userID, "  ", 0); !errors.Is(err, diplomacy.ErrInvalidInput) {
		t.Errorf("blank civilization err = %v, want ErrInvalidInput", err)
	}
}

func TestRoundCycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome, egypt := ps[0], ps[1], ps[2]

	f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
	p := f.propose(t, ProposalRequest{
		GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalAlliance,
		ParticipantIDs: []string{rome.ID},
	})
	if got := f.participant(t, human.ID).RemainingProposals; got != 1 {
		t.Errorf("remaining proposals = %d, want 1", got)
	}

	f.advanceTo(t, g.ID, diplomacy.PhaseVoting)
	if _, err := f.engine.Vote(ctx, p.ID, human.ID, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	g = f.advanceTo(t, g.ID, diplomacy.PhaseResolve)
	if g.CurrentRound != 1 {
		t.Errorf("round = %d, want 1", g.CurrentRound)
	}
	got, err := f.store.GetProposal(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProposal: %v", err)
	}
	if got.Status != diplomacy.ProposalAccepted {
		t.Fatalf("status = %s, want ACCEPTED", got.Status)
	}
	if h := f.participant(t, human.ID); h.Might != 57 || h.Economy != 57 {
		t.Errorf("human = might %d economy %d, want 57 57", h.Might, h.Economy)
	}
	if e := f.participant(t, egypt.ID); e.Might != 50 {
		t.Errorf("egypt might = %d, want unchanged 50", e.Might)
	}

	g = f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
	if g.CurrentRound != 2 {
		t.Errorf("round = %d, want 2", g.CurrentRound)
	}
	if got := f.participant(t, human.ID).RemainingProposals; got != 2 {
		t.Errorf("remaining proposals after new round = %d, want 2", got)
	}
	if !f.logContains(t, g.ID, "", "Round 1 resolved. Starting Round 2") {
		t.Error("missing round log entry")
	}
}

func TestGameEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 1)

	g = f.advanceTo(t, g.ID, diplomacy.PhaseCompleted)
	if g.WinnerID != ps[0].ID {
		t.Errorf("winner = %q, want %q", g.WinnerID, ps[0].ID)
	}
	stored, err := f.store.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if stored.Phase != diplomacy.PhaseCompleted || stored.WinnerID != ps[0].ID {
		t.Errorf("stored game = %+v", stored)
	}

	// Every economy is still 50, so every objective completes and all tie.
	if !f.logContains(t, g.ID, "", "Game Over! It's a tie between Carthage and Rome and Egypt with 2 completed objectives!") {
		t.Error("missing game over announcement")
	}
	if !f.logContains(t, g.ID, "", "Final score for Rome: 2 objectives completed (Might: 50, Economy: 50)") {
		t.Error("missing final score line")
	}
	if f.logContains(t, g.ID, ps[1].ID, "Carthage completed their private objective") {
		t.Error("private objective result leaked to another participant")
	}

	objs, err := f.store.ListObjectives(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListObjectives: %v", err)
	}
	for _, o := range objs {
		if o.Status != diplomacy.ObjectiveCompleted {
			t.Errorf("objective %s status = %s", o.Description, o.Status)
		}
	}

	if _, err := f.engine.AdvancePhase(ctx, g.ID); !errors.Is(err, diplomacy.ErrGameCompleted) {
		t.Errorf("advance completed game err = %v, want ErrGameCompleted", err)
	}
	if n := f.engine.lockedGames(); n != 0 {
		t.Errorf("%d game locks retained after completion, want 0", n)
	}

	if err := f.engine.Acknowledge(ctx, g.ID, ps[0].ID); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if err := f.engine.Acknowledge(ctx, g.ID, ps[0].ID); err != nil {
		t.Fatalf("second Acknowledge: %v", err)
	}
	if !f.participant(t, ps[0].ID).HasAcknowledgedCompletion {
		t.Error("completion not acknowledged")
	}
}

func TestMajorityRule(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome, egypt := ps[0], ps[1], ps[2]
	f.ai.vote = func(v TurnView) ([]Ballot, error) {
		var bs []Ballot
		for _, p := range v.Pending {
			bs = append(bs, Ballot{ProposalID: p.ID, Support: false})
		}
		return bs, nil
	}

	f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
	p := f.propose(t, ProposalRequest{
		GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalTrade, IsPublic: true,
		ParticipantIDs: []string{rome.ID, egypt.ID},
	})
	f.advanceTo(t, g.ID, diplomacy.PhaseVoting)
	if _, err := f.engine.Vote(ctx, p.ID, human.ID, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	f.advanceTo(t, g.ID, diplomacy.PhaseResolve)

	got, err := f.store.GetProposal(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProposal: %v", err)
	}
	if got.Status != diplomacy.ProposalRejected {
		t.Errorf("1 of 3 in favor: status = %s, want REJECTED", got.Status)
	}
	if h := f.participant(t, human.ID); h.Economy != 50 {
		t.Errorf("rejected proposal changed economy to %d", h.Economy)
	}
	if !f.logContains(t, g.ID, egypt.ID, "TRADE proposal by Carthage was rejected") {
		t.Error("missing rejection log entry")
	}
}

func TestMilitaryResolution(t *testing.T) {
	t.Run("undefended target loses", func(t *testing.T) {
		f := newFixture(t, nil)
		ctx := context.Background()
		g, ps := f.newGame(t, 0)
		human, egypt := ps[0], ps[2]

		f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
		p := f.propose(t, ProposalRequest{
			GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalMilitary, IsPublic: true,
			TargetIDs: []string{egypt.ID},
		})
		f.advanceTo(t, g.ID, diplomacy.PhaseVoting)
		if _, err := f.engine.Vote(ctx, p.ID, egypt.ID, true); !errors.Is(err, diplomacy.ErrNotEligible) {
			t.Errorf("target vote err = %v, want ErrNotEligible", err)
		}
		if _, err := f.engine.Vote(ctx, p.ID, human.ID, true); err != nil {
			t.Fatalf("Vote: %v", err)
		}
		if !f.logContains(t, g.ID, human.ID, "Carthage voted in favor of the proposal to attack Egypt") {
			t.Error("missing vote log entry")
		}
		f.advanceTo(t, g.ID, diplomacy.PhaseResolve)

		if h := f.participant(t, human.ID); h.Might != 75 || h.Economy != 80 {
			t.Errorf("attacker = might %d economy %d, want 75 80", h.Might, h.Economy)
		}
		if e := f.participant(t, egypt.ID); e.Might != 20 || e.Economy != 30 {
			t.Errorf("defender = might %d economy %d, want 20 30", e.Might, e.Economy)
		}
		if !f.logContains(t, g.ID, "", "Military action succeeded: Carthage defeated Egypt") {
			t.Error("missing military log entry")
		}
	})

	t.Run("defended target repels", func(t *testing.T) {
		f := newFixture(t, nil)
		ctx := context.Background()
		g, ps := f.newGame(t, 0)
		human, egypt := ps[0], ps[2]

		f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
		p := f.propose(t, ProposalRequest{
			GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalMilitary, IsPublic: true,
			TargetIDs: []string{egypt.ID},
		})
		f.advanceTo(t, g.ID, diplomacy.PhaseVoting)
		if _, err := f.engine.Vote(ctx, p.ID, human.ID, true); err != nil {
			t.Fatalf("Vote: %v", err)
		}
		// The engine never accepts target votes; insert one to make the
		// defender fight back.
		if err := f.store.CreateVote(ctx, &diplomacy.Vote{ProposalID: p.ID, ParticipantID: egypt.ID, Support: true}); err != nil {
			t.Fatalf("CreateVote: %v", err)
		}
		f.advanceTo(t, g.ID, diplomacy.PhaseResolve)

		// A draw of 0.99 loses against a 0.475 win chance.
		if h := f.participant(t, human.ID); h.Might != 30 || h.Economy != 30 {
			t.Errorf("attacker = might %d economy %d, want 30 30", h.Might, h.Economy)
		}
		if e := f.participant(t, egypt.ID); e.Might != 65 || e.Economy != 60 {
			t.Errorf("defender = might %d economy %d, want 65 60", e.Might, e.Economy)
		}
	})
}

func TestPrivateProposalVisibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome, egypt := ps[0], ps[1], ps[2]

	f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
	p := f.propose(t, ProposalRequest{
		GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalAlliance,
		ParticipantIDs: []string{rome.ID},
	})
	f.advanceTo(t, g.ID, diplomacy.PhaseVoting)
	if _, err := f.engine.Vote(ctx, p.ID, human.ID, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	f.advanceTo(t, g.ID, diplomacy.PhaseResolve)

	for _, id := range []string{human.ID, rome.ID} {
		if !f.logContains(t, g.ID, id, "Alliance formed between Carthage, Rome") {
			t.Errorf("member %s cannot see the resolution", id)
		}
	}
	if f.logContains(t, g.ID, egypt.ID, "Alliance formed") {
		t.Error("outsider sees the private resolution")
	}
	if f.logContains(t, g.ID, egypt.ID, "made a private ALLIANCE proposal") {
		t.Error("outsider sees the private proposal")
	}

	snap, err := f.engine.GameState(ctx, g.ID, egypt.ID)
	if err != nil {
		t.Fatalf("GameState: %v", err)
	}
	if len(snap.Proposals) != 0 {
		t.Errorf("outsider snapshot has %d proposals", len(snap.Proposals))
	}
	for _, pv := range snap.Participants {
		if pv.PublicObjective == nil {
			t.Errorf("%s has no public objective", pv.Civilization)
		}
		if (pv.PrivateObjective != nil) != (pv.ID == egypt.ID) {
			t.Errorf("%s private objective visibility wrong", pv.Civilization)
		}
	}

	snap, err = f.engine.GameState(ctx, g.ID, rome.ID)
	if err != nil {
		t.Fatalf("GameState: %v", err)
	}
	if len(snap.Proposals) != 1 {
		t.Errorf("member snapshot has %d proposals, want 1", len(snap.Proposals))
	}
}

func TestProposalValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome, egypt := ps[0], ps[1], ps[2]

	alliance := ProposalRequest{GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalAlliance, ParticipantIDs: []string{rome.ID}}
	if _, err := f.engine.CreateProposal(ctx, alliance); !errors.Is(err, diplomacy.ErrWrongPhase) {
		t.Errorf("proposal in SETUP err = %v, want ErrWrongPhase", err)
	}
	f.advanceTo(t, g.ID, diplomacy.PhaseProposal)

	tests := []struct {
		name string
		req  ProposalRequest
		want error
	}{
		{"unknown type", ProposalRequest{Type: "PEACE", ParticipantIDs: []string{rome.ID}}, diplomacy.ErrInvalidProposal},
		{"participant is target", ProposalRequest{Type: diplomacy.ProposalMilitary, ParticipantIDs: []string{rome.ID}, TargetIDs: []string{rome.ID}}, diplomacy.ErrOverlappingRoles},
		{"sender is target", ProposalRequest{Type: diplomacy.ProposalMilitary, TargetIDs: []string{human.ID}}, diplomacy.ErrOverlappingRoles},
		{"military without target", ProposalRequest{Type: diplomacy.ProposalMilitary, ParticipantIDs: []string{rome.ID}}, diplomacy.ErrInvalidProposal},
		{"trade with target", ProposalRequest{Type: diplomacy.ProposalTrade, ParticipantIDs: []string{rome.ID}, TargetIDs: []string{egypt.ID}}, diplomacy.ErrInvalidProposal},
		{"alliance alone", ProposalRequest{Type: diplomacy.ProposalAlliance}, diplomacy.ErrInvalidProposal},
		{"stranger", ProposalRequest{Type: diplomacy.ProposalTrade, ParticipantIDs: []string{"nobody"}}, diplomacy.ErrNotParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.GameID, tt.req.SenderID = g.ID, human.ID
			if _, err := f.engine.CreateProposal(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if got := f.participant(t, human.ID).RemainingProposals; got != 2 {
		t.Errorf("invalid proposals spent allowance: remaining = %d", got)
	}

	f.propose(t, alliance)
	f.propose(t, alliance)
	if _, err := f.engine.CreateProposal(ctx, alliance); !errors.Is(err, diplomacy.ErrNoProposalsRemaining) {
		t.Errorf("third proposal err = %v, want ErrNoProposalsRemaining", err)
	}
}

func TestVoteValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome := ps[0], ps[1]

	f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
	p := f.propose(t, ProposalRequest{GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalTrade, ParticipantIDs: []string{rome.ID}})
	if _, err := f.engine.Vote(ctx, p.ID, human.ID, true); !errors.Is(err, diplomacy.ErrWrongPhase) {
		t.Errorf("vote in PROPOSAL err = %v, want ErrWrongPhase", err)
	}

	f.advanceTo(t, g.ID, diplomacy.PhaseVoting)
	if _, err := f.engine.Vote(ctx, p.ID, human.ID, false); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if _, err := f.engine.Vote(ctx, p.ID, human.ID, true); !errors.Is(err, diplomacy.ErrAlreadyVoted) {
		t.Errorf("second vote err = %v, want ErrAlreadyVoted", err)
	}
	// Rome already voted during its AI turn.
	if _, err := f.engine.Vote(ctx, p.ID, rome.ID, true); !errors.Is(err, diplomacy.ErrAlreadyVoted) {
		t.Errorf("ai second vote err = %v, want ErrAlreadyVoted", err)
	}
	if _, err := f.engine.Vote(ctx, "missing", human.ID, true); !errors.Is(err, diplomacy.ErrNotFound) {
		t.Errorf("vote on missing proposal err = %v, want ErrNotFound", err)
	}
}

func TestAITurns(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome, egypt := ps[0], ps[1], ps[2]

	f.ai.propose = func(v TurnView) ([]ProposalDraft, error) {
		if v.Self.ID == rome.ID {
			return nil, errors.New("model unavailable")
		}
		draft := ProposalDraft{Type: diplomacy.ProposalTrade, IsPublic: true, ParticipantIDs: []string{human.ID}}
		return []ProposalDraft{draft, draft, draft}, nil
	}

	f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
	if !f.logContains(t, g.ID, human.ID, "Rome failed to act during the PROPOSAL phase") {
		t.Error("missing ai failure log entry")
	}
	proposals, err := f.store.ListProposals(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListProposals: %v", err)
	}
	if len(proposals) != 2 {
		t.Fatalf("got %d proposals, want the 2 Egypt could afford", len(proposals))
	}
	for _, p := range proposals {
		if p.CreatorID != egypt.ID || p.Description != "Egypt proposes a trade arrangement" {
			t.Errorf("proposal = %+v", p)
		}
	}
	if f.participant(t, egypt.ID).RemainingProposals != 0 {
		t.Error("egypt allowance not spent")
	}

	f.advanceTo(t, g.ID, diplomacy.PhaseVoting)
	for _, id := range []string{proposals[0].ID, proposals[1].ID} {
		p, err := f.store.GetProposal(ctx, id)
		if err != nil {
			t.Fatalf("GetProposal: %v", err)
		}
		if v, ok := p.VoteOf(egypt.ID); !ok || !v.Support {
			t.Errorf("egypt did not vote on %s", id)
		}
		if _, ok := p.VoteOf(rome.ID); ok {
			t.Errorf("rome voted on a proposal it is not part of")
		}
	}
}

func TestAIVoteMissingBallot(t *testing.T) {
	f := newFixture(t, nil)
	g, ps := f.newGame(t, 0)
	human, rome := ps[0], ps[1]
	f.ai.vote = func(TurnView) ([]Ballot, error) { return nil, nil }

	f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
	f.propose(t, ProposalRequest{GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalAlliance, ParticipantIDs: []string{rome.ID}})
	f.advanceTo(t, g.ID, diplomacy.PhaseVoting)
	if !f.logContains(t, g.ID, "", "Rome failed to act during the VOTING phase") {
		t.Error("missing ballot not reported")
	}
}

// flakyStore fails the nth ResolveProposal call.
type flakyStore struct {
	store.Store
	failAt int
	calls  int
}

func (s *flakyStore) ResolveProposal(ctx context.Context, id string, status diplomacy.ProposalStatus, updates []diplomacy.StatUpdate) error {
	s.calls++
	if s.calls == s.failAt {
		return errors.New("disk full")
	}
	return s.Store.ResolveProposal(ctx, id, status, updates)
}

func TestPartialResolutionRetries(t *testing.T) {
	flaky := &flakyStore{failAt: 2}
	f := newFixture(t, func(st store.Store) store.Store {
		flaky.Store = st
		return flaky
	})
	ctx := context.Background()
	g, ps := f.newGame(t, 0)
	human, rome := ps[0], ps[1]

	f.advanceTo(t, g.ID, diplomacy.PhaseProposal)
	req := ProposalRequest{GameID: g.ID, SenderID: human.ID, Type: diplomacy.ProposalAlliance, ParticipantIDs: []string{rome.ID}}
	first := f.propose(t, req)
	second := f.propose(t, req)
	f.advanceTo(t, g.ID, diplomacy.PhaseVoting)

	if _, err := f.engine.AdvancePhase(ctx, g.ID); err == nil {
		t.Fatal("AdvancePhase succeeded despite store failure")
	}
	stored, err := f.store.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if stored.Phase != diplomacy.PhaseVoting {
		t.Fatalf("phase = %s, want VOTING after failed resolution", stored.Phase)
	}
	p1, _ := f.store.GetProposal(ctx, first.ID)
	p2, _ := f.store.GetProposal(ctx, second.ID)
	if p1.Status == p2.Status {
		t.Fatalf("statuses = %s, %s, want one resolved and one pending", p1.Status, p2.Status)
	}

	g = f.advanceTo(t, g.ID, diplomacy.PhaseResolve)
	for _, id := range []string{first.ID, second.ID} {
		p, err := f.store.GetProposal(ctx, id)
		if err != nil {
			t.Fatalf("GetProposal: %v", err)
		}
		if p.Status != diplomacy.ProposalAccepted {
			t.Errorf("proposal %s status = %s after retry", id, p.Status)
		}
	}
	// Two alliances: 50 -> 57 -> 65.
	if h := f.participant(t, human.ID); h.Might != 65 {
		t.Errorf("might = %d, want 65", h.Might)
	}
}

// failingCompleteStore fails the first CompleteGame call.
type failingCompleteStore struct {
	store.Store
	failed bool
}

func (s *failingCompleteStore) CompleteGame(ctx context.Context, gameID string, from diplomacy.Phase, winnerID string) error {
	if !s.failed {
		s.failed = true
		return errors.New("disk full")
	}
	return s.Store.CompleteGame(ctx, gameID, from, winnerID)
}

func (f *fixture) countLog(t *testing.T, gameID, substr string) int {
	t.Helper()
	entries, err := f.store.ListLog(context.Background(), gameID, "")
	if err != nil {
		t.Fatalf("ListLog: %v", err)
	}
	n := 0
	for _, e := range entries {
		if strings.Contains(e.Event, substr) {
			n++
		}
	}
	return n
}

func TestGameEndRetryAnnouncesOnce(t *testing.T) {
	failing := &failingCompleteStore{}
	f := newFixture(t, func(st store.Store) store.Store {
		failing.Store = st
		return failing
	})
	ctx := context.Background()
	g, ps := f.newGame(t, 1)
	f.advanceTo(t, g.ID, diplomacy.PhaseVoting)

	if _, err := f.engine.AdvancePhase(ctx, g.ID); err == nil {
		t.Fatal("AdvancePhase succeeded despite CompleteGame failure")
	}
	done, err := f.engine.AdvancePhase(ctx, g.ID)
	if err != nil {
		t.Fatalf("retry AdvancePhase: %v", err)
	}
	if done.Phase != diplomacy.PhaseCompleted || done.WinnerID != ps[0].ID {
		t.Errorf("game after retry = %+v", done)
	}

	if n := f.countLog(t, g.ID, "Game Over!"); n != 1 {
		t.Errorf("%d game over announcements, want 1", n)
	}
	if n := f.countLog(t, g.ID, "Final score for Rome"); n != 1 {
		t.Errorf("%d final score lines for Rome, want 1", n)
	}
}

func TestConcurrentAdvanceIsSerialized(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, _ := f.newGame(t, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.AdvancePhase(ctx, g.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("AdvancePhase: %v", err)
		}
	}
	if n := f.engine.lockedGames(); n != 0 {
		t.Errorf("%d game locks retained with no callers, want 0", n)
	}

	stored, err := f.store.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if stored.Phase != diplomacy.PhaseVoting {
		t.Errorf("phase = %s, want VOTING after three serialized advances", stored.Phase)
	}

	if err := f.store.SetPhase(ctx, g.ID, diplomacy.PhaseSetup, diplomacy.PhaseProposal); !errors.Is(err, diplomacy.ErrPhaseConflict) {
		t.Errorf("stale SetPhase err = %v, want ErrPhaseConflict", err)
	}
}
