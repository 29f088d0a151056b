package handler

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/motoclube/roleplanner/internal/domain"
)

// TrackEventRequest is the body of POST /analytics/events.
type TrackEventRequest struct {
	UserID     string         `json:"user_id,omitempty"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// TrackEvent handles POST /analytics/events.
func (s *Server) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var req TrackEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := s.analytics.Track(r.Context(), req.UserID, req.Type, req.Properties)
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// GetAnalyticsSummary handles GET /analytics/summary?period=.
func (s *Server) GetAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	sum, err := s.analytics.Summary(r.Context(), period)
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ExportAnalytics handles GET /analytics/export?period=.
// period is one of 7d, 30d (default), 90d, 1y.
func (s *Server) ExportAnalytics(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	exp, err := s.analytics.Export(r.Context(), period)
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="analytics-`+string(period)+`.json"`)
	writeJSON(w, http.StatusOK, exp)
}

func periodParam(w http.ResponseWriter, r *http.Request) (domain.Period, bool) {
	var raw *string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		badRequest(w, err.Error())
		return "", false
	}
	p, err := domain.ParsePeriod(deref(raw))
	if err != nil {
		badRequest(w, unwrapMessage(err))
		return "", false
	}
	return p, true
}
