package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bolingo/bolingo-backend/internal/middleware"
	"github.com/bolingo/bolingo-backend/internal/model"
	"github.com/bolingo/bolingo-backend/internal/service"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// HandleSignup handles POST /signup requests.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Signup(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation),
			errors.Is(err, service.ErrConflict),
			errors.Is(err, service.ErrPasswordTooLong):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		default:
			slog.ErrorContext(r.Context(), "signup failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleLogin handles POST /login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusBadRequest, errorResponse(service.ErrInvalidCredentials.Error()))
			return
		}
		slog.ErrorContext(r.Context(), "login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMe handles GET /api/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	resp, err := h.service.Me(r.Context(), sub.ID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
			return
		}
		slog.ErrorContext(r.Context(), "loading current user failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
