package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps a domain error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, diplomacy.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, diplomacy.ErrUnauthenticated),
		errors.Is(err, diplomacy.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, diplomacy.ErrNotParticipant),
		errors.Is(err, diplomacy.ErrNotEligible),
		errors.Is(err, diplomacy.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, diplomacy.ErrNoProposalsRemaining),
		errors.Is(err, diplomacy.ErrOverlappingRoles),
		errors.Is(err, diplomacy.ErrAlreadyVoted),
		errors.Is(err, diplomacy.ErrWrongPhase),
		errors.Is(err, diplomacy.ErrPhaseConflict),
		errors.Is(err, diplomacy.ErrGameCompleted),
		errors.Is(err, diplomacy.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, diplomacy.ErrInvalidProposal),
		errors.Is(err, diplomacy.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeDomainError reports err to the client. Internal errors are logged
// and replaced with a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
