package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoclube/roleplanner/internal/middleware"
)

// decodingHandler decodes a JSON roteiro the way the API handlers do and
// reports 413 when the body limit trips mid-read.
func decodingHandler(reached *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		var v map[string]any
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
}

func roteiroJSON(descLen int) string {
	return `{"user_id":"u1","title":"Serra do Rio do Rastro","description":"` +
		strings.Repeat("x", descLen) + `"}`
}

// TestMaxBodySizeHandler covers a body under the limit, an oversized body
// with a declared length and an oversized body of unknown length.
func TestMaxBodySizeHandler(t *testing.T) {
	const limit = 256

	tests := []struct {
		name          string
		body          string
		unknownLength bool
		wantStatus    int
		wantReached   bool
	}{
		{"within limit", roteiroJSON(50), false, http.StatusCreated, true},
		{"declared length over limit", roteiroJSON(1000), false, http.StatusRequestEntityTooLarge, false},
		{"streamed body over limit", roteiroJSON(1000), true, http.StatusRequestEntityTooLarge, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reached := false
			h := middleware.NewMaxBodySizeHandler(limit)(decodingHandler(&reached))

			req := httptest.NewRequest(http.MethodPost, "/roteiros", strings.NewReader(tc.body))
			if tc.unknownLength {
				req.ContentLength = -1
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantReached, reached)
		})
	}
}

// TestMaxBodySizeHandler_EarlyRejectUsesErrorEnvelope verifies the early 413
// carries the same error body as every other API error.
func TestMaxBodySizeHandler_EarlyRejectUsesErrorEnvelope(t *testing.T) {
	reached := false
	h := middleware.NewMaxBodySizeHandler(64)(decodingHandler(&reached))

	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(roteiroJSON(200)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "payload_too_large", body.Error.Code)
	assert.Contains(t, body.Error.Message, "64 bytes")
}
