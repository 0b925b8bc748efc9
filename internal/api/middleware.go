// internal/api/middleware.go
package api

import (
	"context"
	"net/http"
	"strings"

	apperrors "pr-review-service/internal/errors"
	"pr-review-service/internal/model"
)

type contextKey string

const userContextKey contextKey = "user"

// requireSession resolves the bearer token to a user and stores it in the
// request context. Identity is passed explicitly from here on; no handler
// reads session state ambiently.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, apperrors.ErrUnauthenticated.Error())
			return
		}

		user, err := h.db.GetUserBySessionToken(r.Context(), token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, apperrors.ErrUnauthenticated.Error())
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionUser returns the user placed in the context by requireSession.
func sessionUser(r *http.Request) model.User {
	user, _ := r.Context().Value(userContextKey).(model.User)
	return user
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}
