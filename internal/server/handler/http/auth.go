// Package http provides the JSON HTTP API of the guardian server.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/models"
	"github.com/aiguardian/guardian/internal/service"
)

// SessionService defines the session operations required by the HTTP handlers.
type SessionService interface {
	Register(ctx context.Context, in service.RegisterInput) (models.User, error)
	Login(ctx context.Context, email, password string) (models.User, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (models.User, error)
	UpdateFaceData(ctx context.Context, faceData string) (models.User, error)
}

// AuthHandler handles registration, login and session requests.
type AuthHandler struct {
	// Sessions performs the underlying session operations.
	Sessions SessionService
	Log      *zap.Logger
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FaceData        string `json:"faceData"`
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FaceRequest carries a face descriptor.
type FaceRequest struct {
	FaceData string `json:"faceData"`
}

// Register creates a user and logs them in. Validation failures are returned
// as 400 with a user-readable message.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.Sessions.Register(r.Context(), service.RegisterInput(req))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user.Public())
}

// Login makes the user with the given email current.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// Logout clears the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context()); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the current user.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, err := h.Sessions.Current(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// EnrollFace replaces the current user's enrolled face descriptor.
func (h *AuthHandler) EnrollFace(w http.ResponseWriter, r *http.Request) {
	var req FaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.Sessions.UpdateFaceData(r.Context(), req.FaceData)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}
