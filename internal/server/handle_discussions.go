package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/engine"
	"github.com/playperu/diplomacy/internal/store"
)

// handleLookupDiscussion returns the discussion with exactly the caller and
// the requested participants, creating it when none exists yet.
func handleLookupDiscussion(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		var req DiscussionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		actor, err := actingParticipant(r.Context(), st, userFrom(r), gameID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		d, err := eng.LookupDiscussion(r.Context(), actor.ID, gameID, req.ParticipantIDs)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newDiscussionResponse(d))
	}
}

// handleUpdateDiscussion replaces a discussion's membership. The id "new"
// creates a discussion in the game named by the request body.
func handleUpdateDiscussion(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		discussionID := chi.URLParam(r, "discussionID")
		var req DiscussionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		gameID := req.GameID
		status := http.StatusCreated
		if discussionID != engine.NewDiscussion {
			d, err := st.GetDiscussion(r.Context(), discussionID)
			if err != nil {
				writeDomainError(w, r, logger, err)
				return
			}
			gameID = d.GameID
			status = http.StatusOK
		} else if gameID == "" {
			writeError(w, http.StatusBadRequest, "gameId is required")
			return
		}

		actor, err := actingParticipant(r.Context(), st, userFrom(r), gameID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		d, err := eng.UpdateDiscussionParticipants(r.Context(), actor.ID, discussionID, gameID, req.ParticipantIDs)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, status, newDiscussionResponse(d))
	}
}

func handleSendMessage(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MessageRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		d, sender, err := discussionMember(r, st)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		m, err := eng.SendMessage(r.Context(), d.ID, sender.ID, req.Content)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

// discussionMember loads the discussion in the URL and the caller's
// participant in its game.
func discussionMember(r *http.Request, st store.Store) (diplomacy.Discussion, diplomacy.Participant, error) {
	d, err := st.GetDiscussion(r.Context(), chi.URLParam(r, "discussionID"))
	if err != nil {
		return diplomacy.Discussion{}, diplomacy.Participant{}, err
	}
	p, err := actingParticipant(r.Context(), st, userFrom(r), d.GameID)
	if err != nil {
		return diplomacy.Discussion{}, diplomacy.Participant{}, err
	}
	return d, p, nil
}
