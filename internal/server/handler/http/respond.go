package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/authenticator"
	"github.com/aiguardian/guardian/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service and flow errors onto HTTP status codes. Validation
// messages are passed through; unexpected errors are logged and hidden.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case service.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrNoSession):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrDeviceNotFound), errors.Is(err, service.ErrAttemptNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, authenticator.ErrInvalidTransition),
		errors.Is(err, authenticator.ErrFlowBusy),
		errors.Is(err, authenticator.ErrFlowClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
