package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoclube/roleplanner/internal/middleware"
)

const webApp = "http://localhost:5173"

// exportHandler mimics an export endpoint that names its download.
var exportHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="roteiros.csv"`)
	w.WriteHeader(http.StatusOK)
})

// TestCORSHandler_SimpleRequest checks which origins get the allow header on
// a plain GET. A disallowed origin still reaches the handler; the browser is
// what blocks the response.
func TestCORSHandler_SimpleRequest(t *testing.T) {
	h := middleware.NewCORSHandler([]string{webApp})(exportHandler)

	tests := []struct {
		name      string
		origin    string
		wantAllow string
	}{
		{"club web app", webApp, webApp},
		{"unknown site", "http://evil.example.com", ""},
		{"no origin header", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/roteiros/export?user_id=u1", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

// TestCORSHandler_ExposesContentDisposition verifies the web app can read the
// export file name.
func TestCORSHandler_ExposesContentDisposition(t *testing.T) {
	h := middleware.NewCORSHandler([]string{webApp})(exportHandler)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/export", nil)
	req.Header.Set("Origin", webApp)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

// TestCORSHandler_PreflightPatch verifies a preflight for a merge-patch with a
// bearer token is answered without reaching the handler.
// Browsers send Access-Control-Request-Headers in lowercase.
func TestCORSHandler_PreflightPatch(t *testing.T) {
	reached := false
	h := middleware.NewCORSHandler([]string{webApp})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/roteiros/rot-1", nil)
	req.Header.Set("Origin", webApp)
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "content-type,authorization")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, reached)
	assert.Equal(t, webApp, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodPatch, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
}
