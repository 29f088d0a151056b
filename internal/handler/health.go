package handler

import (
	"net/http"

	"github.com/motoclube/roleplanner/internal/apidoc"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running. The
// storage field reports "degraded" while the data manager runs on its
// key-value fallback.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.sync != nil {
		resp.Storage = "structured"
		if s.sync.Status().Degraded {
			resp.Storage = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOpenAPI handles GET /openapi.yaml by serving the embedded API description.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(apidoc.OpenAPI)
}
