package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

func (s *SQLiteStore) AppendLog(ctx context.Context, e *diplomacy.LogEntry) error {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO log_entries (id, game_id, event, is_public, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, e.GameID, e.Event, boolInt(e.IsPublic), formatTime(e.Time))
		if err != nil {
			return fmt.Errorf("insert log entry: %w", err)
		}
		if e.IsPublic {
			return nil
		}
		for _, pid := range e.VisibleTo {
			_, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO log_entry_visibility (log_entry_id, participant_id) VALUES (?, ?)
			`, e.ID, pid)
			if err != nil {
				return fmt.Errorf("insert log visibility: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ListLog(ctx context.Context, gameID, participantID string) ([]diplomacy.LogEntry, error) {
	var rows []struct {
		ID        string `db:"id"`
		GameID    string `db:"game_id"`
		Event     string `db:"event"`
		IsPublic  bool   `db:"is_public"`
		CreatedAt string `db:"created_at"`
	}
	query := `SELECT id, game_id, event, is_public, created_at FROM log_entries WHERE game_id = ?`
	args := []any{gameID}
	if participantID != "" {
		query += ` AND (is_public = 1 OR EXISTS (
			SELECT 1 FROM log_entry_visibility v WHERE v.log_entry_id = log_entries.id AND v.participant_id = ?))`
		args = append(args, participantID)
	}
	query += ` ORDER BY seq`
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	var vis []struct {
		LogEntryID    string `db:"log_entry_id"`
		ParticipantID string `db:"participant_id"`
	}
	err := s.db.SelectContext(ctx, &vis, `
		SELECT v.log_entry_id, v.participant_id
		FROM log_entry_visibility v
		JOIN log_entries l ON l.id = v.log_entry_id
		WHERE l.game_id = ?
		ORDER BY v.participant_id
	`, gameID)
	if err != nil {
		return nil, err
	}
	scope := make(map[string][]string)
	for _, v := range vis {
		scope[v.LogEntryID] = append(scope[v.LogEntryID], v.ParticipantID)
	}

	out := make([]diplomacy.LogEntry, len(rows))
	for i, r := range rows {
		out[i] = diplomacy.LogEntry{
			ID:        r.ID,
			GameID:    r.GameID,
			Event:     r.Event,
			Time:      parseTime(r.CreatedAt),
			IsPublic:  r.IsPublic,
			VisibleTo: scope[r.ID],
		}
	}
	return out, nil
}

// memberKey identifies a discussion by its participant set.
func memberKey(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), ",")
}

func (s *SQLiteStore) CreateDiscussion(ctx context.Context, d *diplomacy.Discussion) error {
	if d.ID == "" {
		d.ID = newID()
	}
	d.CreatedAt = s.now()
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO discussions (id, game_id, member_key, created_at) VALUES (?, ?, ?, ?)
		`, d.ID, d.GameID, memberKey(d.ParticipantIDs), formatTime(d.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert discussion: %w", err)
		}
		return insertMembers(ctx, tx, d.ID, d.ParticipantIDs)
	})
}

func insertMembers(ctx context.Context, tx *sqlx.Tx, discussionID string, ids []string) error {
	for _, pid := range ids {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO discussion_participants (discussion_id, participant_id) VALUES (?, ?)
		`, discussionID, pid)
		if err != nil {
			return fmt.Errorf("insert discussion member: %w", err)
		}
	}
	return nil
}

type discussionRow struct {
	ID        string `db:"id"`
	GameID    string `db:"game_id"`
	MemberKey string `db:"member_key"`
	CreatedAt string `db:"created_at"`
}

type messageRow struct {
	ID           string `db:"id"`
	DiscussionID string `db:"discussion_id"`
	SenderID     string `db:"sender_id"`
	Content      string `db:"content"`
	CreatedAt    string `db:"created_at"`
}

func (r messageRow) message() diplomacy.ChatMessage {
	return diplomacy.ChatMessage{
		ID:           r.ID,
		DiscussionID: r.DiscussionID,
		SenderID:     r.SenderID,
		Content:      r.Content,
		Timestamp:    parseTime(r.CreatedAt),
	}
}

func (s *SQLiteStore) GetDiscussion(ctx context.Context, id string) (diplomacy.Discussion, error) {
	var r discussionRow
	err := s.db.GetContext(ctx, &r, `SELECT id, game_id, member_key, created_at FROM discussions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return diplomacy.Discussion{}, fmt.Errorf("discussion %s: %w", id, diplomacy.ErrNotFound)
	}
	if err != nil {
		return diplomacy.Discussion{}, err
	}
	ds, err := s.hydrateDiscussions(ctx, []discussionRow{r})
	if err != nil {
		return diplomacy.Discussion{}, err
	}
	return ds[0], nil
}

func (s *SQLiteStore) FindDiscussion(ctx context.Context, gameID string, participantIDs []string) (diplomacy.Discussion, error) {
	var r discussionRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, game_id, member_key, created_at FROM discussions
		WHERE game_id = ? AND member_key = ?
		ORDER BY created_at LIMIT 1
	`, gameID, memberKey(participantIDs))
	if errors.Is(err, sql.ErrNoRows) {
		return diplomacy.Discussion{}, diplomacy.ErrNotFound
	}
	if err != nil {
		return diplomacy.Discussion{}, err
	}
	ds, err := s.hydrateDiscussions(ctx, []discussionRow{r})
	if err != nil {
		return diplomacy.Discussion{}, err
	}
	return ds[0], nil
}

func (s *SQLiteStore) SetDiscussionParticipants(ctx context.Context, id string, participantIDs []string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE discussions SET member_key = ? WHERE id = ?`, memberKey(participantIDs), id)
		if err != nil {
			return fmt.Errorf("update discussion: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("discussion %s: %w", id, diplomacy.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM discussion_participants WHERE discussion_id = ?`, id); err != nil {
			return fmt.Errorf("clear discussion members: %w", err)
		}
		return insertMembers(ctx, tx, id, participantIDs)
	})
}

func (s *SQLiteStore) ListDiscussions(ctx context.Context, gameID, participantID string) ([]diplomacy.Discussion, error) {
	query := `SELECT id, game_id, member_key, created_at FROM discussions d WHERE game_id = ?`
	args := []any{gameID}
	if participantID != "" {
		query += ` AND EXISTS (SELECT 1 FROM discussion_participants dp WHERE dp.discussion_id = d.id AND dp.participant_id = ?)`
		args = append(args, participantID)
	}
	query += ` ORDER BY created_at`

	var rows []discussionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return s.hydrateDiscussions(ctx, rows)
}

func (s *SQLiteStore) hydrateDiscussions(ctx context.Context, rows []discussionRow) ([]diplomacy.Discussion, error) {
	out := make([]diplomacy.Discussion, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		out[i] = diplomacy.Discussion{ID: r.ID, GameID: r.GameID, CreatedAt: parseTime(r.CreatedAt)}
		ids[i] = r.ID
		index[r.ID] = i
	}

	query, args, err := sqlx.In(`
		SELECT dp.discussion_id, dp.participant_id
		FROM discussion_participants dp
		JOIN participants p ON p.id = dp.participant_id
		WHERE dp.discussion_id IN (?)
		ORDER BY p.join_order
	`, ids)
	if err != nil {
		return nil, err
	}
	var members []struct {
		DiscussionID  string `db:"discussion_id"`
		ParticipantID string `db:"participant_id"`
	}
	if err := s.db.SelectContext(ctx, &members, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list discussion members: %w", err)
	}
	for _, m := range members {
		i := index[m.DiscussionID]
		out[i].ParticipantIDs = append(out[i].ParticipantIDs, m.ParticipantID)
	}

	query, args, err = sqlx.In(`
		SELECT id, discussion_id, sender_id, content, created_at FROM chat_messages
		WHERE discussion_id IN (?) ORDER BY created_at, id
	`, ids)
	if err != nil {
		return nil, err
	}
	var msgs []messageRow
	if err := s.db.SelectContext(ctx, &msgs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for _, m := range msgs {
		i := index[m.DiscussionID]
		out[i].Messages = append(out[i].Messages, m.message())
	}
	return out, nil
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, m *diplomacy.ChatMessage) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, discussion_id, sender_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.DiscussionID, m.SenderID, m.Content, formatTime(m.Timestamp))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}
