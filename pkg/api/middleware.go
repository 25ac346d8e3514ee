package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ssargent/fitfix/pkg/metrics"
	"github.com/ssargent/fitfix/pkg/repair"
)

// apiKeyMiddleware validates the X-API-Key header. An empty expected key
// lets every request through.
func apiKeyMiddleware(expectedKey string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				m.RecordAuthRequest(false)
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			m.RecordAuthRequest(true)
			next.ServeHTTP(w, r)
		})
	}
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// sendRepairError maps a repair failure to a status code
func sendRepairError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		status = http.StatusRequestEntityTooLarge
	case repair.KindOf(err) == repair.KindConfiguration, repair.KindOf(err) == repair.KindRead:
		status = http.StatusBadRequest
	case repair.KindOf(err) == repair.KindRecovery, repair.KindOf(err) == repair.KindValidation:
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := APIResponse{
		Success: false,
		Error:   err.Error(),
	}
	if kind := repair.KindOf(err); kind != 0 {
		response.Kind = kind.String()
	}
	_ = json.NewEncoder(w).Encode(response)
}
