package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/store"
)

const sessionCookieName = "session"

func setSessionCookie(w http.ResponseWriter, sessionID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// actingParticipant returns the participant the signed-in user plays in
// gameID. A missing game is ErrNotFound; a game the user is not part of is
// ErrNotParticipant.
func actingParticipant(ctx context.Context, st store.Store, user diplomacy.User, gameID string) (diplomacy.Participant, error) {
	p, err := st.ParticipantForUser(ctx, gameID, user.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, diplomacy.ErrNotParticipant) {
		return diplomacy.Participant{}, err
	}
	if _, gerr := st.GetGame(ctx, gameID); gerr != nil {
		return diplomacy.Participant{}, gerr
	}
	return diplomacy.Participant{}, diplomacy.ErrNotParticipant
}
