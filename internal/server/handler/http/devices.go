package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/models"
)

// DeviceService defines the device operations required by the HTTP handlers.
type DeviceService interface {
	Devices() []models.Device
	Device(id string) (models.Device, error)
	Status() models.SecurityStatus
	Alerts() []models.AlertLogEntry
	ToggleLock(ctx context.Context, id string, shouldLock bool) (models.Device, error)
}

// DeviceHandler serves the dashboard device list, lock toggles and alerts.
type DeviceHandler struct {
	Devices DeviceService
	Log     *zap.Logger
}

// DeviceList is the response of GET /api/devices.
type DeviceList struct {
	Devices []models.Device       `json:"devices"`
	Status  models.SecurityStatus `json:"status"`
}

// LockRequest is the body of POST /api/devices/{id}/lock.
type LockRequest struct {
	Locked bool `json:"locked"`
}

// List returns every device together with the security summary.
func (h *DeviceHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DeviceList{
		Devices: h.Devices.Devices(),
		Status:  h.Devices.Status(),
	})
}

// Lock sets the lock state of an online device.
func (h *DeviceHandler) Lock(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if !h.requireOnline(w, id) {
		return
	}

	d, err := h.Devices.ToggleLock(r.Context(), id, req.Locked)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Alerts returns the alert log, newest first.
func (h *DeviceHandler) Alerts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Devices.Alerts())
}

// requireOnline writes 404 or 409 and returns false when the device is
// unknown or offline.
func (h *DeviceHandler) requireOnline(w http.ResponseWriter, id string) bool {
	d, err := h.Devices.Device(id)
	if err != nil {
		writeError(w, h.Log, err)
		return false
	}
	if !d.Online {
		http.Error(w, "device offline", http.StatusConflict)
		return false
	}
	return true
}
