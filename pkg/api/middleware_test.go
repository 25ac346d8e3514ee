package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ssargent/fitfix/pkg/metrics"
	"github.com/ssargent/fitfix/pkg/repair"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		requestHeader  string
		expectedStatus int
	}{
		{
			name:           "valid API key",
			apiKey:         "test-key",
			requestHeader:  "test-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing API key header",
			apiKey:         "test-key",
			requestHeader:  "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid API key",
			apiKey:         "test-key",
			requestHeader:  "wrong-key",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "authentication disabled",
			apiKey:         "",
			requestHeader:  "",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := apiKeyMiddleware(tt.apiKey, nil)(testHandler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.requestHeader != "" {
				req.Header.Set("X-API-Key", tt.requestHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestAPIKeyMiddleware_RecordsAuth(t *testing.T) {
	m := metrics.New()
	handler := apiKeyMiddleware("secret", m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, key := range []string{"secret", "nope", "secret"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", key)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	count, err := testutil.GatherAndCount(m.Registry(), "fitfix_auth_requests_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSendRepairError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"configuration", &repair.Error{Kind: repair.KindConfiguration, Err: errors.New("bad")}, http.StatusBadRequest, "configuration error"},
		{"read", &repair.Error{Kind: repair.KindRead, Err: errors.New("eof")}, http.StatusBadRequest, "read error"},
		{"recovery", &repair.Error{Kind: repair.KindRecovery, Err: errors.New("lost")}, http.StatusUnprocessableEntity, "recovery failure"},
		{"validation", fmt.Errorf("wrapped: %w", &repair.Error{Kind: repair.KindValidation, Err: errors.New("crc")}), http.StatusUnprocessableEntity, "validation failure"},
		{"too large", &repair.Error{Kind: repair.KindRead, Err: &http.MaxBytesError{Limit: 8}}, http.StatusRequestEntityTooLarge, "read error"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			sendRepairError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w, nil)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}
