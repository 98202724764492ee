package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

func init() {
	sqlx.BindDriver("libsql", sqlx.QUESTION)
}

// SQLiteStore implements Store on a libSQL database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:  sqlx.NewDb(db, "libsql"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func newID() string { return uuid.NewString() }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// withTx runs fn inside a transaction, committing when it returns nil.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type userRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
}

func (r userRow) user() diplomacy.User {
	return diplomacy.User{ID: r.ID, Name: r.Name, CreatedAt: parseTime(r.CreatedAt)}
}

func (s *SQLiteStore) CreateUser(ctx context.Context, name, passwordHash string) (diplomacy.User, error) {
	u := diplomacy.User{ID: newID(), Name: name, CreatedAt: s.now()}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, u.ID, name, passwordHash, formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return diplomacy.User{}, diplomacy.ErrNameTaken
	}
	if err != nil {
		return diplomacy.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) UserByName(ctx context.Context, name string) (diplomacy.User, string, error) {
	var r userRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, name, password_hash, created_at FROM users WHERE name = ?
	`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return diplomacy.User{}, "", diplomacy.ErrNotFound
	}
	if err != nil {
		return diplomacy.User{}, "", err
	}
	return r.user(), r.PasswordHash, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, userID string, expiresAt time.Time) (string, error) {
	id := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_sessions (id, user_id, expires_at) VALUES (?, ?, ?)
	`, id, userID, formatTime(expiresAt))
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UserFromSession(ctx context.Context, sessionID string, now time.Time) (diplomacy.User, error) {
	var r struct {
		userRow
		ExpiresAt string `db:"expires_at"`
	}
	err := s.db.GetContext(ctx, &r, `
		SELECT u.id, u.name, u.password_hash, u.created_at, s.expires_at
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ?
	`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return diplomacy.User{}, diplomacy.ErrUnauthenticated
	}
	if err != nil {
		return diplomacy.User{}, err
	}
	if !parseTime(r.ExpiresAt).After(now) {
		return diplomacy.User{}, diplomacy.ErrUnauthenticated
	}
	return r.user(), nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) ListUserGames(ctx context.Context, userID string, filter GameFilter) ([]GameSummary, error) {
	query := `
		SELECT g.id, g.phase, g.current_round, g.number_of_rounds, g.winner_id, g.created_at,
		       p.id AS participant_id, p.civilization
		FROM games g
		JOIN participants p ON p.game_id = g.id
		WHERE p.user_id = ?`
	switch filter {
	case GamesActive:
		query += ` AND g.phase <> 'COMPLETED'`
	case GamesCompleted:
		query += ` AND g.phase = 'COMPLETED'`
	}
	query += ` ORDER BY g.created_at DESC`

	var rows []struct {
		gameRow
		ParticipantID string `db:"participant_id"`
		Civilization  string `db:"civilization"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	out := make([]GameSummary, len(rows))
	for i, r := range rows {
		out[i] = GameSummary{Game: r.game(), ParticipantID: r.ParticipantID, Civilization: r.Civilization}
	}
	return out, nil
}
