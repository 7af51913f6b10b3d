package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/nucleon/pkg/errs"
	"github.com/stretchr/testify/assert"
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
			name:           "prefix of API key",
			apiKey:         "test-key",
			requestHeader:  "test",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			handler := apiKeyMiddleware(tt.apiKey)(testHandler)

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.requestHeader != "" {
				req.Header.Set("X-API-Key", tt.requestHeader)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errs.Newf(errs.ErrValidation, "x"), http.StatusBadRequest},
		{"crypto", errs.Newf(errs.ErrCrypto, "x"), http.StatusUnauthorized},
		{"decoding", errs.Newf(errs.ErrDecoding, "x"), http.StatusUnprocessableEntity},
		{"compression", errs.Newf(errs.ErrCompression, "x"), http.StatusUnprocessableEntity},
		{"not found", errs.Newf(errs.ErrNotFound, "x"), http.StatusNotFound},
		{"unmarked", errors.New("disk on fire"), http.StatusInternalServerError},
		{"too large", errs.Wrapf(errs.ErrValidation, &http.MaxBytesError{Limit: 1}, "read"), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestSendKindError(t *testing.T) {
	w := httptest.NewRecorder()
	sendKindError(w, errs.Newf(errs.ErrCrypto, "decryption failed"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `"kind":"crypto"`), body)
	assert.True(t, strings.Contains(body, `"success":false`), body)
}
