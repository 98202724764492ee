package outcome

import (
	"math"
	"testing"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

type fixedRand struct{ f float64 }

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(int) int     { return 0 }

func participant(id string, might, economy int) diplomacy.Participant {
	return diplomacy.Participant{ID: id, Civilization: "Civ " + id, Might: might, Economy: economy}
}

func members(ps ...diplomacy.Participant) map[string]diplomacy.Participant {
	m := make(map[string]diplomacy.Participant, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}
	return m
}

func byID(updates []diplomacy.StatUpdate) map[string]diplomacy.StatUpdate {
	m := make(map[string]diplomacy.StatUpdate, len(updates))
	for _, u := range updates {
		m[u.ParticipantID] = u
	}
	return m
}

func TestChangeAmount(t *testing.T) {
	tests := []struct {
		name   string
		change Change
		value  int
		want   int
	}{
		{"fixed", Change{Fixed: -20}, 77, -20},
		{"percent floors", Change{Percent: 30}, 55, 16},
		{"negative percent floors toward zero", Change{Percent: -40}, 55, -22},
		{"zero", Change{}, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.change.Amount(tt.value); got != tt.want {
				t.Errorf("Amount(%d) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestApplyClamps(t *testing.T) {
	high := Apply(participant("a", 90, 95), Alliance.Formed, 20)
	if high.Might != diplomacy.MaxStat || high.Economy != diplomacy.MaxStat {
		t.Errorf("got might=%d economy=%d, want both %d", high.Might, high.Economy, diplomacy.MaxStat)
	}

	low := Apply(participant("b", 5, 5), Military.AttackerLoses, 0)
	if low.Might != 3 {
		t.Errorf("might = %d, want 3", low.Might)
	}
	if low.Economy != diplomacy.MinStat {
		t.Errorf("economy = %d, want %d", low.Economy, diplomacy.MinStat)
	}
}

func TestTally(t *testing.T) {
	members := []diplomacy.ProposalMember{
		{ParticipantID: "c", Role: diplomacy.RoleCreator},
		{ParticipantID: "p1", Role: diplomacy.RoleParticipant},
		{ParticipantID: "p2", Role: diplomacy.RoleParticipant},
		{ParticipantID: "p3", Role: diplomacy.RoleParticipant},
		{ParticipantID: "p4", Role: diplomacy.RoleParticipant},
		{ParticipantID: "t", Role: diplomacy.RoleTarget},
	}
	votes := func(support ...bool) []diplomacy.Vote {
		voters := []string{"c", "p1", "p2", "p3", "p4"}
		vs := make([]diplomacy.Vote, len(support))
		for i, s := range support {
			vs[i] = diplomacy.Vote{ParticipantID: voters[i], Support: s}
		}
		return vs
	}

	tests := []struct {
		name  string
		votes []diplomacy.Vote
		want  bool
	}{
		{"3 for 2 against", votes(true, true, true, false, false), true},
		{"2 for 3 against", votes(true, true, false, false, false), false},
		{"no votes", nil, false},
		{"even split", votes(true, false), false},
		{"target vote ignored", append(votes(false), diplomacy.Vote{ParticipantID: "t", Support: true}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, passed := Tally(diplomacy.Proposal{Members: members, Votes: tt.votes})
			if passed != tt.want {
				t.Errorf("passed = %v, want %v", passed, tt.want)
			}
		})
	}
}

func tradeProposal(votes map[string]bool) diplomacy.Proposal {
	p := diplomacy.Proposal{
		Type: diplomacy.ProposalTrade,
		Members: []diplomacy.ProposalMember{
			{ParticipantID: "a", Role: diplomacy.RoleCreator},
			{ParticipantID: "b", Role: diplomacy.RoleParticipant},
		},
	}
	for id, s := range votes {
		p.Votes = append(p.Votes, diplomacy.Vote{ParticipantID: id, Support: s})
	}
	return p
}

func TestTradeResolver(t *testing.T) {
	m := members(participant("a", 40, 50), participant("b", 40, 60))

	t.Run("mixed", func(t *testing.T) {
		got := byID(TradeResolver{}.Resolve(tradeProposal(map[string]bool{"a": true, "b": false}), m).Updates)
		// a honored and receives the betrayed payoff: 50 - 10% = 45.
		if got["a"].Economy != 45 {
			t.Errorf("honoring economy = %d, want 45", got["a"].Economy)
		}
		// b betrayed and receives the betrayer payoff: 60 + 30% = 78.
		if got["b"].Economy != 78 {
			t.Errorf("betrayer economy = %d, want 78", got["b"].Economy)
		}
		if got["a"].Might != 40 || got["b"].Might != 40 {
			t.Error("trade must not change might")
		}
		if got["a"].TradeDealDelta != 0 || got["b"].TradeDealDelta != 0 {
			t.Error("mixed trade must not count as an accepted deal")
		}
	})

	t.Run("all honor", func(t *testing.T) {
		got := byID(TradeResolver{}.Resolve(tradeProposal(map[string]bool{"a": true, "b": true}), m).Updates)
		if got["a"].Economy != 60 || got["b"].Economy != 72 {
			t.Errorf("economies = %d, %d, want 60, 72", got["a"].Economy, got["b"].Economy)
		}
		if got["a"].TradeDealDelta != 1 || got["b"].TradeDealDelta != 1 {
			t.Error("cooperation must count an accepted deal for everyone")
		}
	})

	t.Run("all betray", func(t *testing.T) {
		got := byID(TradeResolver{}.Resolve(tradeProposal(map[string]bool{"a": false}), m).Updates)
		if got["a"].Economy != 40 || got["b"].Economy != 50 {
			t.Errorf("economies = %d, %d, want 40, 50", got["a"].Economy, got["b"].Economy)
		}
	})
}

func TestAllianceResolver(t *testing.T) {
	p := diplomacy.Proposal{
		Type: diplomacy.ProposalAlliance,
		Members: []diplomacy.ProposalMember{
			{ParticipantID: "a", Role: diplomacy.RoleCreator},
			{ParticipantID: "b", Role: diplomacy.RoleParticipant},
		},
	}
	batch := AllianceResolver{}.Resolve(p, members(participant("a", 40, 20), participant("b", 60, 80)))
	got := byID(batch.Updates)
	if got["a"].Might != 46 || got["a"].Economy != 23 {
		t.Errorf("a = %+v, want might 46 economy 23", got["a"])
	}
	if got["b"].Might != 69 || got["b"].Economy != 92 {
		t.Errorf("b = %+v, want might 69 economy 92", got["b"])
	}
	if batch.Summary != "Alliance formed between Civ a, Civ b" {
		t.Errorf("summary = %q", batch.Summary)
	}
}

func militaryProposal(targetSupports bool) diplomacy.Proposal {
	p := diplomacy.Proposal{
		Type: diplomacy.ProposalMilitary,
		Members: []diplomacy.ProposalMember{
			{ParticipantID: "a", Role: diplomacy.RoleCreator},
			{ParticipantID: "t", Role: diplomacy.RoleTarget},
		},
		Votes: []diplomacy.Vote{{ParticipantID: "a", Support: true}},
	}
	if targetSupports {
		p.Votes = append(p.Votes, diplomacy.Vote{ParticipantID: "t", Support: true})
	}
	return p
}

func TestMilitaryAutoWin(t *testing.T) {
	// The attacker is far weaker, and a draw of 0.99 would lose any contested battle.
	m := members(participant("a", 10, 20), participant("t", 90, 50))
	batch := MilitaryResolver{Rand: fixedRand{0.99}}.Resolve(militaryProposal(false), m)
	got := byID(batch.Updates)

	// 10 + 50% = 15 might; economy 20 + 30% (6) + spoils 30% of 50 (15) = 41.
	if got["a"].Might != 15 || got["a"].Economy != 41 {
		t.Errorf("attacker = %+v, want might 15 economy 41", got["a"])
	}
	// 90 - 60% (54) = 36 might; 50 - 40% (20) = 30 economy.
	if got["t"].Might != 36 || got["t"].Economy != 30 {
		t.Errorf("defender = %+v, want might 36 economy 30", got["t"])
	}
	if batch.Summary != "Military action succeeded: Civ a defeated Civ t" {
		t.Errorf("summary = %q", batch.Summary)
	}
}

func TestMilitaryContested(t *testing.T) {
	m := members(participant("a", 50, 50), participant("t", 50, 50))
	// Attack might 45 vs 50: chance = 0.5 - 5/200 = 0.475.
	if got := AttackerWinChance([]diplomacy.Participant{m["a"]}, []diplomacy.Participant{m["t"]}); math.Abs(got-0.475) > 1e-9 {
		t.Fatalf("win chance = %v, want 0.475", got)
	}

	win := byID(MilitaryResolver{Rand: fixedRand{0.4}}.Resolve(militaryProposal(true), m).Updates)
	if win["a"].Might != 75 {
		t.Errorf("winning attacker might = %d, want 75", win["a"].Might)
	}

	lose := byID(MilitaryResolver{Rand: fixedRand{0.5}}.Resolve(militaryProposal(true), m).Updates)
	if lose["a"].Might != 30 || lose["a"].Economy != 30 {
		t.Errorf("losing attacker = %+v, want might 30 economy 30", lose["a"])
	}
	if lose["t"].Might != 65 || lose["t"].Economy != 60 {
		t.Errorf("winning defender = %+v, want might 65 economy 60", lose["t"])
	}
}

func TestDistributeSpoils(t *testing.T) {
	winners := []diplomacy.Participant{participant("a", 30, 0), participant("b", 10, 0)}
	got := DistributeSpoils(winners, 21)
	if got[0] != 15 || got[1] != 5 {
		t.Errorf("shares = %v, want [15 5]", got)
	}
}
