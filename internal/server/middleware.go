package server

import (
	"context"
	"net/http"
	"time"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/store"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

// requireUser resolves the session cookie to a user and rejects the request
// with 401 when there is none.
func requireUser(st store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			u, err := st.UserFromSession(r.Context(), cookie.Value, time.Now())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFrom(r *http.Request) diplomacy.User {
	return r.Context().Value(ctxKeyUser).(diplomacy.User)
}
