package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/authenticator"
	"github.com/aiguardian/guardian/internal/middleware"
	"github.com/aiguardian/guardian/internal/models"
	"github.com/aiguardian/guardian/internal/service"
)

// FlowService defines the authentication flow operations required by the
// HTTP handlers.
type FlowService interface {
	Begin(ctx context.Context, user models.User, deviceID string) (service.Attempt, error)
	Get(id string) (service.Attempt, error)
	StartCapture(id string) (service.Attempt, error)
	Capture(id, faceData string, src authenticator.Source) (service.Attempt, error)
	Retake(id string) (service.Attempt, error)
	Cancel(id string) (service.Attempt, error)
	Submit(id string) (service.Attempt, error)
}

// FlowHandler exposes the face authentication flow of a device.
type FlowHandler struct {
	Flows   FlowService
	Devices *DeviceHandler
	Log     *zap.Logger
}

// CaptureRequest is the body of POST /api/auth/{attemptID}/capture.
type CaptureRequest struct {
	FaceData string               `json:"faceData"`
	Source   authenticator.Source `json:"source"`
}

// Begin opens an authentication flow for an online device, matching against
// the face of the user stored by middleware.RequireSession.
func (h *FlowHandler) Begin(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "login required", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")
	if !h.Devices.requireOnline(w, id) {
		return
	}

	a, err := h.Flows.Begin(r.Context(), user, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Get returns the current state of a flow.
func (h *FlowHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.Flows.Get(chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Start switches the flow to capturing.
func (h *FlowHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, http.StatusOK, h.Flows.StartCapture)
}

// Capture records a face descriptor from the camera or an uploaded file.
func (h *FlowHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	switch req.Source {
	case "":
		req.Source = authenticator.SourceCamera
	case authenticator.SourceCamera, authenticator.SourceUpload:
	default:
		http.Error(w, "unknown capture source", http.StatusBadRequest)
		return
	}

	h.step(w, r, http.StatusOK, func(id string) (service.Attempt, error) {
		return h.Flows.Capture(id, req.FaceData, req.Source)
	})
}

// Retake discards the captured descriptor.
func (h *FlowHandler) Retake(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, http.StatusOK, h.Flows.Retake)
}

// Submit starts matching. The result is reported asynchronously.
func (h *FlowHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, http.StatusAccepted, h.Flows.Submit)
}

// Cancel resets a flow that is not yet processing.
func (h *FlowHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, http.StatusOK, h.Flows.Cancel)
}

func (h *FlowHandler) step(w http.ResponseWriter, r *http.Request, status int, fn func(string) (service.Attempt, error)) {
	a, err := fn(chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, status, a)
}
