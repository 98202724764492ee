package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/diplomacy/internal/engine"
	"github.com/playperu/diplomacy/internal/store"
)

const ssePingInterval = 30 * time.Second

// handleEvents streams a game's events to the caller as server-sent events.
// Log entries the caller may not see are filtered out upstream.
func handleEvents(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		p, err := actingParticipant(r.Context(), st, userFrom(r), gameID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		ch, err := eng.SubscribeGame(r.Context(), gameID, p.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ping := time.NewTicker(ssePingInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					logger.Error("encoding event", "game_id", gameID, "error", err)
					continue
				}
				fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Type, data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
