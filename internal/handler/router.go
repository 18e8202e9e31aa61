package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bolingo/bolingo-backend/internal/middleware"
)

// routePrefixes are the mount points for the auth endpoints.
var routePrefixes = []string{"", "/api", "/auth"}

// NewRouter builds the HTTP routes for the service.
func NewRouter(auth *AuthHandler, tokens middleware.TokenVerifier) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/", HandleRoot)
	r.Get("/health", HandleHealth)

	for _, prefix := range routePrefixes {
		r.Post(prefix+"/signup", auth.HandleSignup)
		r.Post(prefix+"/login", auth.HandleLogin)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(tokens))
		r.Get("/api/me", auth.HandleMe)
		r.Get("/auth/me", auth.HandleMe)
	})

	return r
}
