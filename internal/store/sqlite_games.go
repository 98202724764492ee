package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

type gameRow struct {
	ID             string         `db:"id"`
	Phase          string         `db:"phase"`
	CurrentRound   int            `db:"current_round"`
	NumberOfRounds int            `db:"number_of_rounds"`
	WinnerID       sql.NullString `db:"winner_id"`
	CreatedAt      string         `db:"created_at"`
}

func (r gameRow) game() diplomacy.Game {
	return diplomacy.Game{
		ID:             r.ID,
		Phase:          diplomacy.Phase(r.Phase),
		CurrentRound:   r.CurrentRound,
		NumberOfRounds: r.NumberOfRounds,
		WinnerID:       r.WinnerID.String,
		CreatedAt:      parseTime(r.CreatedAt),
	}
}

type participantRow struct {
	ID                        string         `db:"id"`
	GameID                    string         `db:"game_id"`
	Civilization              string         `db:"civilization"`
	Might                     int            `db:"might"`
	Economy                   int            `db:"economy"`
	IsAI                      bool           `db:"is_ai"`
	UserID                    sql.NullString `db:"user_id"`
	RemainingProposals        int            `db:"remaining_proposals"`
	TradeDealsAccepted        int            `db:"trade_deals_accepted"`
	HasAcknowledgedCompletion bool           `db:"has_acknowledged_completion"`
	JoinOrder                 int            `db:"join_order"`
}

func (r participantRow) participant() diplomacy.Participant {
	return diplomacy.Participant{
		ID:                        r.ID,
		GameID:                    r.GameID,
		Civilization:              r.Civilization,
		Might:                     r.Might,
		Economy:                   r.Economy,
		IsAI:                      r.IsAI,
		UserID:                    r.UserID.String,
		RemainingProposals:        r.RemainingProposals,
		TradeDealsAccepted:        r.TradeDealsAccepted,
		HasAcknowledgedCompletion: r.HasAcknowledgedCompletion,
		JoinOrder:                 r.JoinOrder,
	}
}

const participantColumns = `id, game_id, civilization, might, economy, is_ai, user_id,
	remaining_proposals, trade_deals_accepted, has_acknowledged_completion, join_order`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func (s *SQLiteStore) CreateGame(ctx context.Context, g *diplomacy.Game, ps []diplomacy.Participant, objs []diplomacy.Objective) error {
	if g.ID == "" {
		g.ID = newID()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO games (id, phase, current_round, number_of_rounds, winner_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, g.ID, string(g.Phase), g.CurrentRound, g.NumberOfRounds, nullString(g.WinnerID), formatTime(g.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}

		for i := range ps {
			p := &ps[i]
			if p.ID == "" {
				p.ID = newID()
			}
			p.GameID = g.ID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO participants (`+participantColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, p.ID, g.ID, p.Civilization, p.Might, p.Economy, boolInt(p.IsAI), nullString(p.UserID),
				p.RemainingProposals, p.TradeDealsAccepted, boolInt(p.HasAcknowledgedCompletion), p.JoinOrder)
			if err != nil {
				return fmt.Errorf("insert participant %s: %w", p.Civilization, err)
			}
		}

		for i := range objs {
			o := &objs[i]
			if o.ID == "" {
				o.ID = newID()
			}
			o.GameID = g.ID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO objectives (id, game_id, owner_id, description, type, is_public, status,
					target_might, target_economy, target_participant_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, o.ID, g.ID, o.OwnerID, o.Description, string(o.Type), boolInt(o.IsPublic), string(o.Status),
				nullInt(o.TargetMight), nullInt(o.TargetEconomy), nullString(o.TargetParticipantID))
			if err != nil {
				return fmt.Errorf("insert objective: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetGame(ctx context.Context, id string) (diplomacy.Game, error) {
	return getGame(ctx, s.db, id)
}

func getGame(ctx context.Context, q sqlx.QueryerContext, id string) (diplomacy.Game, error) {
	var r gameRow
	err := sqlx.GetContext(ctx, q, &r, `
		SELECT id, phase, current_round, number_of_rounds, winner_id, created_at
		FROM games WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return diplomacy.Game{}, fmt.Errorf("game %s: %w", id, diplomacy.ErrNotFound)
	}
	if err != nil {
		return diplomacy.Game{}, err
	}
	return r.game(), nil
}

// casPhase updates the phase only if it still equals from.
func casPhase(ctx context.Context, tx sqlx.ExecerContext, gameID string, from, to diplomacy.Phase, extra string, args ...any) error {
	query := `UPDATE games SET phase = ?` + extra + ` WHERE id = ? AND phase = ?`
	params := append([]any{string(to)}, args...)
	params = append(params, gameID, string(from))
	res, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("update phase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("game %s is no longer in %s: %w", gameID, from, diplomacy.ErrPhaseConflict)
	}
	return nil
}

func (s *SQLiteStore) SetPhase(ctx context.Context, gameID string, from, to diplomacy.Phase) error {
	return casPhase(ctx, s.db, gameID, from, to, "")
}

func (s *SQLiteStore) StartRound(ctx context.Context, gameID string, from diplomacy.Phase, allowance int) (diplomacy.Game, error) {
	var g diplomacy.Game
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := casPhase(ctx, tx, gameID, from, diplomacy.PhaseProposal, ", current_round = current_round + 1"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE participants SET remaining_proposals = ? WHERE game_id = ?
		`, allowance, gameID); err != nil {
			return fmt.Errorf("reset allowances: %w", err)
		}
		var err error
		g, err = getGame(ctx, tx, gameID)
		return err
	})
	return g, err
}

func (s *SQLiteStore) CompleteGame(ctx context.Context, gameID string, from diplomacy.Phase, winnerID string) error {
	return casPhase(ctx, s.db, gameID, from, diplomacy.PhaseCompleted, ", winner_id = ?", nullString(winnerID))
}

func (s *SQLiteStore) ListParticipants(ctx context.Context, gameID string) ([]diplomacy.Participant, error) {
	var rows []participantRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+participantColumns+` FROM participants WHERE game_id = ? ORDER BY join_order
	`, gameID)
	if err != nil {
		return nil, err
	}
	out := make([]diplomacy.Participant, len(rows))
	for i, r := range rows {
		out[i] = r.participant()
	}
	return out, nil
}

func (s *SQLiteStore) GetParticipant(ctx context.Context, id string) (diplomacy.Participant, error) {
	var r participantRow
	err := s.db.GetContext(ctx, &r, `SELECT `+participantColumns+` FROM participants WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return diplomacy.Participant{}, fmt.Errorf("participant %s: %w", id, diplomacy.ErrNotFound)
	}
	if err != nil {
		return diplomacy.Participant{}, err
	}
	return r.participant(), nil
}

func (s *SQLiteStore) ParticipantForUser(ctx context.Context, gameID, userID string) (diplomacy.Participant, error) {
	var r participantRow
	err := s.db.GetContext(ctx, &r, `
		SELECT `+participantColumns+` FROM participants WHERE game_id = ? AND user_id = ?
	`, gameID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return diplomacy.Participant{}, diplomacy.ErrNotParticipant
	}
	if err != nil {
		return diplomacy.Participant{}, err
	}
	return r.participant(), nil
}

func (s *SQLiteStore) AcknowledgeCompletion(ctx context.Context, participantID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE participants SET has_acknowledged_completion = 1 WHERE id = ?
	`, participantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("participant %s: %w", participantID, diplomacy.ErrNotFound)
	}
	return nil
}

type objectiveRow struct {
	ID                  string         `db:"id"`
	GameID              string         `db:"game_id"`
	OwnerID             string         `db:"owner_id"`
	Description         string         `db:"description"`
	Type                string         `db:"type"`
	IsPublic            bool           `db:"is_public"`
	Status              string         `db:"status"`
	TargetMight         sql.NullInt64  `db:"target_might"`
	TargetEconomy       sql.NullInt64  `db:"target_economy"`
	TargetParticipantID sql.NullString `db:"target_participant_id"`
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func (r objectiveRow) objective() diplomacy.Objective {
	return diplomacy.Objective{
		ID:                  r.ID,
		GameID:              r.GameID,
		OwnerID:             r.OwnerID,
		Description:         r.Description,
		Type:                diplomacy.ObjectiveType(r.Type),
		IsPublic:            r.IsPublic,
		Status:              diplomacy.ObjectiveStatus(r.Status),
		TargetMight:         intPtr(r.TargetMight),
		TargetEconomy:       intPtr(r.TargetEconomy),
		TargetParticipantID: r.TargetParticipantID.String,
	}
}

func (s *SQLiteStore) ListObjectives(ctx context.Context, gameID string) ([]diplomacy.Objective, error) {
	var rows []objectiveRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT o.id, o.game_id, o.owner_id, o.description, o.type, o.is_public, o.status,
		       o.target_might, o.target_economy, o.target_participant_id
		FROM objectives o
		JOIN participants p ON p.id = o.owner_id
		WHERE o.game_id = ?
		ORDER BY p.join_order, o.is_public DESC
	`, gameID)
	if err != nil {
		return nil, err
	}
	out := make([]diplomacy.Objective, len(rows))
	for i, r := range rows {
		out[i] = r.objective()
	}
	return out, nil
}

func (s *SQLiteStore) UpdateObjectiveStatuses(ctx context.Context, objs []diplomacy.Objective) error {
	if len(objs) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, o := range objs {
			_, err := tx.ExecContext(ctx, `UPDATE objectives SET status = ? WHERE id = ?`, string(o.Status), o.ID)
			if err != nil {
				return fmt.Errorf("update objective %s: %w", o.ID, err)
			}
		}
		return nil
	})
}
