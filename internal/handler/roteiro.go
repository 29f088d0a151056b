package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/service"
)

// CreateRoteiroRequest is the body of POST /roteiros. A draft returned by
// POST /generate can be posted back as is.
type CreateRoteiroRequest struct {
	UserID      string                 `json:"user_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Stops       []domain.Stop          `json:"stops"`
	Costs       domain.Costs           `json:"costs"`
	Difficulty  domain.Difficulty      `json:"difficulty,omitempty"`
	Params      *domain.SearchCriteria `json:"params,omitempty"`
	Rating      float64                `json:"rating"`
	Shared      bool                   `json:"shared"`
	Public      bool                   `json:"public"`
	Tags        []string               `json:"tags"`
	ImageURL    string                 `json:"image_url,omitempty"`
}

// RatingRequest is the body of PUT /roteiros/{id}/rating.
type RatingRequest struct {
	Rating *float64 `json:"rating"`
}

// Pagination echoes the page window applied to a list.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PagedResponse is the envelope for paginated collections.
type PagedResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CreateRoteiro handles POST /roteiros.
func (s *Server) CreateRoteiro(w http.ResponseWriter, r *http.Request) {
	var req CreateRoteiroRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	saved, err := s.roteiros.Save(r.Context(), domain.Roteiro{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Stops:       req.Stops,
		Costs:       req.Costs,
		Difficulty:  req.Difficulty,
		Params:      req.Params,
		Rating:      req.Rating,
		Shared:      req.Shared,
		Public:      req.Public,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		s.serviceError(w, r, err, "roteiro not found")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// ListRoteiros handles GET /roteiros.
// Supports ?user_id=, ?q= (title/description search), ?tags=a,b (any of),
// ?difficulty=, ?min_rating=, ?sort= with ?order=asc|desc, and ?page= /
// ?limit= (defaults: page=1, limit=20, max=100).
func (s *Server) ListRoteiros(w http.ResponseWriter, r *http.Request) {
	var (
		userID, search, difficulty, sortBy, order *string
		tags                                      []string
		minRating                                 *float64
		page, limit                               *int
	)
	q := r.URL.Query()
	for _, bind := range []struct {
		name    string
		explode bool
		dest    any
	}{
		{"user_id", true, &userID},
		{"q", true, &search},
		{"tags", false, &tags},
		{"difficulty", true, &difficulty},
		{"min_rating", true, &minRating},
		{"sort", true, &sortBy},
		{"order", true, &order},
		{"page", true, &page},
		{"limit", true, &limit},
	} {
		if err := runtime.BindQueryParameter("form", bind.explode, false, bind.name, q, bind.dest); err != nil {
			badRequest(w, err.Error())
			return
		}
	}

	p := service.ListParams{
		UserID:     deref(userID),
		Search:     deref(search),
		Tags:       tags,
		Difficulty: domain.Difficulty(deref(difficulty)),
		SortBy:     deref(sortBy),
		Page:       domain.NewPaginationParams(page, limit),
	}
	if minRating != nil {
		p.MinRating = *minRating
	}
	switch deref(order) {
	case "", "asc":
	case "desc":
		p.Descending = true
	default:
		badRequest(w, "order must be asc or desc")
		return
	}

	roteiros, err := s.roteiros.List(r.Context(), p)
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, PagedResponse[domain.Roteiro]{
		Data:       roteiros,
		Pagination: Pagination{Page: p.Page.Page, Limit: p.Page.Limit},
	})
}

// GetRoteiro handles GET /roteiros/{id}.
func (s *Server) GetRoteiro(w http.ResponseWriter, r *http.Request) {
	rot, err := s.roteiros.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err, "roteiro not found")
		return
	}
	writeJSON(w, http.StatusOK, rot)
}

// UpdateRoteiro handles PATCH /roteiros/{id} with a JSON merge patch.
func (s *Server) UpdateRoteiro(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if !decodeJSON(w, r, &partial) {
		return
	}
	rot, err := s.roteiros.Update(r.Context(), chi.URLParam(r, "id"), partial)
	if err != nil {
		s.serviceError(w, r, err, "roteiro not found")
		return
	}
	writeJSON(w, http.StatusOK, rot)
}

// RateRoteiro handles PUT /roteiros/{id}/rating.
func (s *Server) RateRoteiro(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Rating == nil {
		badRequest(w, "rating is required")
		return
	}
	rot, err := s.roteiros.Rate(r.Context(), chi.URLParam(r, "id"), *req.Rating)
	if err != nil {
		s.serviceError(w, r, err, "roteiro not found")
		return
	}
	writeJSON(w, http.StatusOK, rot)
}

// DeleteRoteiro handles DELETE /roteiros/{id}.
func (s *Server) DeleteRoteiro(w http.ResponseWriter, r *http.Request) {
	if err := s.roteiros.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, r, err, "roteiro not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /roteiros/tags?user_id=&prefix=.
// Returns each tag slug with the number of the user's roteiros carrying it,
// most used first. The prefix is slugified before matching.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	var (
		userID string
		prefix *string
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "user_id", q, &userID); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "prefix", q, &prefix); err != nil {
		badRequest(w, err.Error())
		return
	}
	tags, err := s.roteiros.Tags(r.Context(), userID, deref(prefix))
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[domain.TagCount]{Data: tags, Total: len(tags)})
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
