package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bolingo/bolingo-backend/internal/crypto"
)

type contextKey string

const subjectKey contextKey = "subject"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (crypto.Subject, error)
}

// BearerAuth returns middleware that validates a Bearer token from the Authorization header.
func BearerAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			sub, err := tokens.Verify(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext extracts the authenticated token subject from the request context.
func SubjectFromContext(ctx context.Context) (crypto.Subject, bool) {
	sub, ok := ctx.Value(subjectKey).(crypto.Subject)
	return sub, ok
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
