package handler

import (
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/motoclube/roleplanner/internal/domain"
)

var errWindowIncomplete = fmt.Errorf("%w: departure and return must be given together", domain.ErrValidation)

// ListResponse is the envelope for collection endpoints.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// CriteriaRequest is the wire form of domain.SearchCriteria shared by
// GET /destinations/search (query string) and POST /generate (JSON body).
// Departure and Return are "HH:MM" and must be given together.
type CriteriaRequest struct {
	Distance   float64  `json:"distance"`
	Category   *string  `json:"category,omitempty"`
	Difficulty *string  `json:"difficulty,omitempty"`
	Budget     *float64 `json:"budget,omitempty"`
	Departure  *string  `json:"departure,omitempty"`
	Return     *string  `json:"return,omitempty"`
}

// Criteria parses labels and validates the combination.
func (c CriteriaRequest) Criteria() (domain.SearchCriteria, error) {
	var opts []domain.CriteriaOption
	if c.Category != nil && *c.Category != "" {
		cat, err := domain.ParseCategory(*c.Category)
		if err != nil {
			return domain.SearchCriteria{}, err
		}
		opts = append(opts, domain.WithCategory(cat))
	}
	if c.Difficulty != nil && *c.Difficulty != "" {
		d, err := domain.ParseDifficulty(*c.Difficulty)
		if err != nil {
			return domain.SearchCriteria{}, err
		}
		opts = append(opts, domain.WithDifficulty(d))
	}
	if c.Budget != nil {
		opts = append(opts, domain.WithBudget(*c.Budget))
	}
	hasDep := c.Departure != nil && *c.Departure != ""
	hasRet := c.Return != nil && *c.Return != ""
	switch {
	case hasDep && hasRet:
		dep, err := domain.ParseTimeOfDay(*c.Departure)
		if err != nil {
			return domain.SearchCriteria{}, err
		}
		ret, err := domain.ParseTimeOfDay(*c.Return)
		if err != nil {
			return domain.SearchCriteria{}, err
		}
		opts = append(opts, domain.WithWindow(dep, ret))
	case hasDep || hasRet:
		return domain.SearchCriteria{}, errWindowIncomplete
	}
	return domain.NewSearchCriteria(c.Distance, opts...)
}

// ListDestinations handles GET /destinations.
// An optional ?category= restricts the catalog to one category.
func (s *Server) ListDestinations(w http.ResponseWriter, r *http.Request) {
	var category *string
	if err := runtime.BindQueryParameter("form", true, false, "category", r.URL.Query(), &category); err != nil {
		badRequest(w, err.Error())
		return
	}
	var cat domain.Category
	if category != nil && *category != "" {
		c, err := domain.ParseCategory(*category)
		if err != nil {
			badRequest(w, unwrapMessage(err))
			return
		}
		cat = c
	}
	data := s.catalog.Catalog(cat)
	writeJSON(w, http.StatusOK, ListResponse[domain.Destination]{Data: data, Total: len(data)})
}

// SearchDestinations handles GET /destinations/search.
// ?distance= is required; category, difficulty, budget, departure and return
// are optional filters.
func (s *Server) SearchDestinations(w http.ResponseWriter, r *http.Request) {
	var req CriteriaRequest
	q := r.URL.Query()
	for _, bind := range []struct {
		name     string
		required bool
		dest     any
	}{
		{"distance", true, &req.Distance},
		{"category", false, &req.Category},
		{"difficulty", false, &req.Difficulty},
		{"budget", false, &req.Budget},
		{"departure", false, &req.Departure},
		{"return", false, &req.Return},
	} {
		if err := runtime.BindQueryParameter("form", true, bind.required, bind.name, q, bind.dest); err != nil {
			badRequest(w, err.Error())
			return
		}
	}

	criteria, err := req.Criteria()
	if err != nil {
		badRequest(w, unwrapMessage(err))
		return
	}
	matches, err := s.catalog.Search(criteria)
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[domain.MatchResult]{Data: matches, Total: len(matches)})
}
