package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/diplomacy/internal/engine"
	"github.com/playperu/diplomacy/internal/store"
)

func handleCreateProposal(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		var req CreateProposalRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sender, err := actingParticipant(r.Context(), st, userFrom(r), gameID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		p, err := eng.CreateProposal(r.Context(), engine.ProposalRequest{
			GameID:         gameID,
			SenderID:       sender.ID,
			Description:    req.Description,
			Type:           req.Type,
			IsPublic:       req.IsPublic,
			ParticipantIDs: req.ParticipantIDs,
			TargetIDs:      req.TargetIDs,
		})
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newProposalResponse(p))
	}
}

func handleVote(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VoteRequest
		if err := readJSON(r, &req); err != nil || req.Support == nil {
			writeError(w, http.StatusBadRequest, "support is required")
			return
		}

		proposal, err := st.GetProposal(r.Context(), chi.URLParam(r, "proposalID"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		voter, err := actingParticipant(r.Context(), st, userFrom(r), proposal.GameID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		v, err := eng.Vote(r.Context(), proposal.ID, voter.ID, *req.Support)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newVoteResponse(v))
	}
}
