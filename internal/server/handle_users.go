package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/store"
)

// CredentialsRequest is the request body for POST /api/users and POST /api/login.
type CredentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const minPasswordLength = 8

func handleRegister(logger *slog.Logger, st store.Store, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || len(req.Password) < minPasswordLength {
			writeError(w, http.StatusBadRequest, "name and a password of at least 8 characters are required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		u, err := st.CreateUser(r.Context(), req.Name, string(hash))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		if err := startSession(w, r, st, u.ID, ttl); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, UserResponse{ID: u.ID, Name: u.Name})
	}
}

func handleLogin(logger *slog.Logger, st store.Store, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "name and password are required")
			return
		}

		u, hash, err := st.UserByName(r.Context(), req.Name)
		if errors.Is(err, diplomacy.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, diplomacy.ErrInvalidCredentials.Error())
			return
		}
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, diplomacy.ErrInvalidCredentials.Error())
			return
		}

		if err := startSession(w, r, st, u.ID, ttl); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, UserResponse{ID: u.ID, Name: u.Name})
	}
}

func startSession(w http.ResponseWriter, r *http.Request, st store.Store, userID string, ttl time.Duration) error {
	sid, err := st.CreateSession(r.Context(), userID, time.Now().Add(ttl))
	if err != nil {
		return err
	}
	setSessionCookie(w, sid, ttl)
	return nil
}

func handleLogout(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err == nil && cookie.Value != "" {
			st.DeleteSession(r.Context(), cookie.Value)
		}
		clearSessionCookie(w)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := userFrom(r)
		writeJSON(w, http.StatusOK, UserResponse{ID: u.ID, Name: u.Name})
	}
}
