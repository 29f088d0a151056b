package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/motoclube/roleplanner/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"roteiro_id", "title", "created_date", "difficulty", "total_cost", "rating",
	"stop_name", "stop_distance_km", "stop_duration_hours", "tags",
}

// ExportRow is the JSON form of one export table row.
type ExportRow struct {
	RoteiroID         string   `json:"roteiro_id"`
	Title             string   `json:"title"`
	CreatedDate       string   `json:"created_date"`
	Difficulty        string   `json:"difficulty,omitempty"`
	TotalCost         float64  `json:"total_cost"`
	Rating            float64  `json:"rating"`
	StopName          *string  `json:"stop_name,omitempty"`
	StopDistanceKm    float64  `json:"stop_distance_km"`
	StopDurationHours float64  `json:"stop_duration_hours"`
	Tags              []string `json:"tags"`
}

// ExportRoteiros handles GET /roteiros/export?user_id=.
// It returns a flat table with one row per stop of every roteiro the user saved.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) ExportRoteiros(w http.ResponseWriter, r *http.Request) {
	var (
		userID string
		format *string
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "user_id", q, &userID); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "format", q, &format); err != nil {
		badRequest(w, err.Error())
		return
	}
	switch deref(format) {
	case "", "json", "csv":
	default:
		badRequest(w, "format must be json or csv")
		return
	}

	rows, err := s.export.Rows(r.Context(), userID)
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}

	if deref(format) == "csv" {
		writeCSV(w, rows)
		return
	}
	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, domainRowToExportRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// ExportUserData handles GET /users/{id}/export: the full downloadable bundle.
func (s *Server) ExportUserData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bundle, err := s.export.UserData(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="roleplanner-`+id+`.json"`)
	writeJSON(w, http.StatusOK, bundle)
}

// ImportUserData handles POST /import. Records in the bundle are upserted by id.
func (s *Server) ImportUserData(w http.ResponseWriter, r *http.Request) {
	var bundle domain.UserDataExport
	if !decodeJSON(w, r, &bundle) {
		return
	}
	report, err := s.export.Import(r.Context(), bundle)
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// writeCSV encodes rows as CSV.
// Tags within a row are pipe-separated ("|") to keep each stop on a single CSV line.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="roteiros.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write(buf.Bytes())
}

// domainRowToExportRow maps a domain.ExportRow to its JSON form.
// An empty stop name (a roteiro without stops) becomes a nil pointer.
func domainRowToExportRow(r domain.ExportRow) ExportRow {
	row := ExportRow{
		RoteiroID:         r.RoteiroID,
		Title:             r.Title,
		CreatedDate:       r.CreatedDate,
		Difficulty:        r.Difficulty,
		TotalCost:         r.TotalCost,
		Rating:            r.Rating,
		StopDistanceKm:    r.StopDistanceKm,
		StopDurationHours: r.StopDurationHours,
		Tags:              r.Tags,
	}
	if row.Tags == nil {
		row.Tags = []string{}
	}
	if r.StopName != "" {
		row.StopName = &r.StopName
	}
	return row
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// Tags are joined with "|".
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.RoteiroID,
		r.Title,
		r.CreatedDate,
		r.Difficulty,
		formatFloat(r.TotalCost),
		formatFloat(r.Rating),
		r.StopName,
		formatFloat(r.StopDistanceKm),
		formatFloat(r.StopDurationHours),
		strings.Join(r.Tags, "|"),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
