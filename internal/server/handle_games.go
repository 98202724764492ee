package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/diplomacy/internal/engine"
	"github.com/playperu/diplomacy/internal/store"
)

func handleListGames(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter store.GameFilter
		switch status := r.URL.Query().Get("status"); status {
		case "", "all":
			filter = store.GamesAll
		case "active":
			filter = store.GamesActive
		case "completed":
			filter = store.GamesCompleted
		default:
			writeError(w, http.StatusBadRequest, "status must be one of all, active, completed")
			return
		}

		games, err := eng.ListGames(r.Context(), userFrom(r).ID, filter)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newGameSummaries(games))
	}
}

func handleCreateGame(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.NumberOfRounds < 0 {
			writeError(w, http.StatusBadRequest, "numberOfRounds must be positive")
			return
		}

		u := userFrom(r)
		g, err := eng.CreateGame(r.Context(), u.ID, req.Civilization, req.NumberOfRounds)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		p, err := st.ParticipantForUser(r.Context(), g.ID, u.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		snap, err := eng.GameState(r.Context(), g.ID, p.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newGameStateResponse(snap))
	}
}

func handleGameState(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		p, err := actingParticipant(r.Context(), st, userFrom(r), gameID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		snap, err := eng.GameState(r.Context(), gameID, p.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newGameStateResponse(snap))
	}
}

// handleAdvance moves the game to its next phase and returns the caller's
// refreshed snapshot.
func handleAdvance(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		p, err := actingParticipant(r.Context(), st, userFrom(r), gameID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		g, err := eng.AdvancePhase(r.Context(), gameID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		logger.Info("phase advanced", "game_id", gameID, "phase", g.Phase, "round", g.CurrentRound)

		snap, err := eng.GameState(r.Context(), gameID, p.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newGameStateResponse(snap))
	}
}

func handleAcknowledge(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		p, err := actingParticipant(r.Context(), st, userFrom(r), gameID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		if err := eng.Acknowledge(r.Context(), gameID, p.ID); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
