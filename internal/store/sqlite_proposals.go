package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

type proposalRow struct {
	ID          string `db:"id"`
	GameID      string `db:"game_id"`
	CreatorID   string `db:"creator_id"`
	Type        string `db:"type"`
	Description string `db:"description"`
	IsPublic    bool   `db:"is_public"`
	RoundNumber int    `db:"round_number"`
	Status      string `db:"status"`
	CreatedAt   string `db:"created_at"`
}

func (r proposalRow) proposal() diplomacy.Proposal {
	return diplomacy.Proposal{
		ID:          r.ID,
		GameID:      r.GameID,
		CreatorID:   r.CreatorID,
		Type:        diplomacy.ProposalType(r.Type),
		Description: r.Description,
		IsPublic:    r.IsPublic,
		RoundNumber: r.RoundNumber,
		Status:      diplomacy.ProposalStatus(r.Status),
		CreatedAt:   parseTime(r.CreatedAt),
	}
}

type memberRow struct {
	ProposalID    string `db:"proposal_id"`
	ParticipantID string `db:"participant_id"`
	Role          string `db:"role"`
}

type voteRow struct {
	ID            string `db:"id"`
	ProposalID    string `db:"proposal_id"`
	ParticipantID string `db:"participant_id"`
	Support       bool   `db:"support"`
	CreatedAt     string `db:"created_at"`
}

func (r voteRow) vote() diplomacy.Vote {
	return diplomacy.Vote{
		ID:            r.ID,
		ProposalID:    r.ProposalID,
		ParticipantID: r.ParticipantID,
		Support:       r.Support,
		CreatedAt:     parseTime(r.CreatedAt),
	}
}

func (s *SQLiteStore) CreateProposal(ctx context.Context, p *diplomacy.Proposal) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Status == "" {
		p.Status = diplomacy.ProposalPending
	}
	p.CreatedAt = s.now()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE participants SET remaining_proposals = remaining_proposals - 1
			WHERE id = ? AND remaining_proposals > 0
		`, p.CreatorID)
		if err != nil {
			return fmt.Errorf("spend proposal: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return diplomacy.ErrNoProposalsRemaining
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO proposals (id, game_id, creator_id, type, description, is_public, round_number, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.GameID, p.CreatorID, string(p.Type), p.Description, boolInt(p.IsPublic),
			p.RoundNumber, string(p.Status), formatTime(p.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert proposal: %w", err)
		}

		for i, m := range p.Members {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO proposal_participants (proposal_id, participant_id, role, position)
				VALUES (?, ?, ?, ?)
			`, p.ID, m.ParticipantID, string(m.Role), i)
			if isUniqueViolation(err) {
				return diplomacy.ErrOverlappingRoles
			}
			if err != nil {
				return fmt.Errorf("insert proposal member: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetProposal(ctx context.Context, id string) (diplomacy.Proposal, error) {
	var r proposalRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, game_id, creator_id, type, description, is_public, round_number, status, created_at
		FROM proposals WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return diplomacy.Proposal{}, fmt.Errorf("proposal %s: %w", id, diplomacy.ErrNotFound)
	}
	if err != nil {
		return diplomacy.Proposal{}, err
	}
	ps, err := s.hydrate(ctx, []proposalRow{r})
	if err != nil {
		return diplomacy.Proposal{}, err
	}
	return ps[0], nil
}

func (s *SQLiteStore) ListProposals(ctx context.Context, gameID string) ([]diplomacy.Proposal, error) {
	var rows []proposalRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, game_id, creator_id, type, description, is_public, round_number, status, created_at
		FROM proposals WHERE game_id = ? ORDER BY created_at, id
	`, gameID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, rows)
}

func (s *SQLiteStore) ListPendingProposals(ctx context.Context, gameID string, round int) ([]diplomacy.Proposal, error) {
	var rows []proposalRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, game_id, creator_id, type, description, is_public, round_number, status, created_at
		FROM proposals
		WHERE game_id = ? AND round_number = ? AND status = 'PENDING'
		ORDER BY created_at, id
	`, gameID, round)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, rows)
}

// hydrate loads members and votes for the given proposals.
func (s *SQLiteStore) hydrate(ctx context.Context, rows []proposalRow) ([]diplomacy.Proposal, error) {
	out := make([]diplomacy.Proposal, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		out[i] = r.proposal()
		ids[i] = r.ID
		index[r.ID] = i
	}

	query, args, err := sqlx.In(`
		SELECT proposal_id, participant_id, role FROM proposal_participants
		WHERE proposal_id IN (?) ORDER BY proposal_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	var members []memberRow
	if err := s.db.SelectContext(ctx, &members, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list proposal members: %w", err)
	}
	for _, m := range members {
		i := index[m.ProposalID]
		out[i].Members = append(out[i].Members, diplomacy.ProposalMember{ParticipantID: m.ParticipantID, Role: diplomacy.Role(m.Role)})
	}

	query, args, err = sqlx.In(`
		SELECT id, proposal_id, participant_id, support, created_at FROM votes
		WHERE proposal_id IN (?) ORDER BY created_at, id
	`, ids)
	if err != nil {
		return nil, err
	}
	var votes []voteRow
	if err := s.db.SelectContext(ctx, &votes, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	for _, v := range votes {
		i := index[v.ProposalID]
		out[i].Votes = append(out[i].Votes, v.vote())
	}
	return out, nil
}

func (s *SQLiteStore) CreateVote(ctx context.Context, v *diplomacy.Vote) error {
	if v.ID == "" {
		v.ID = newID()
	}
	v.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (id, proposal_id, participant_id, support, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, v.ID, v.ProposalID, v.ParticipantID, boolInt(v.Support), formatTime(v.CreatedAt))
	if isUniqueViolation(err) {
		return diplomacy.ErrAlreadyVoted
	}
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ResolveProposal(ctx context.Context, proposalID string, status diplomacy.ProposalStatus, updates []diplomacy.StatUpdate) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE proposals SET status = ? WHERE id = ? AND status = 'PENDING'
		`, string(status), proposalID)
		if err != nil {
			return fmt.Errorf("update proposal status: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("proposal %s already resolved: %w", proposalID, diplomacy.ErrPhaseConflict)
		}

		for _, u := range updates {
			_, err := tx.ExecContext(ctx, `
				UPDATE participants
				SET might = ?, economy = ?, trade_deals_accepted = trade_deals_accepted + ?
				WHERE id = ?
			`, diplomacy.Clamp(u.Might), diplomacy.Clamp(u.Economy), u.TradeDealDelta, u.ParticipantID)
			if err != nil {
				return fmt.Errorf("update participant %s: %w", u.ParticipantID, err)
			}
		}
		return nil
	})
}
