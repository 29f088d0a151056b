package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
)

// RoteiroService implements business logic for saved itineraries.
// Tag identity is the slug: every write normalizes tags through Slugify.
type RoteiroService struct {
	roteiros Records[domain.Roteiro]
	tracker  Tracker
	logger   *zap.Logger
}

// NewRoteiroService constructs a RoteiroService. tracker may be nil.
func NewRoteiroService(roteiros Records[domain.Roteiro], tracker Tracker, logger *zap.Logger) *RoteiroService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoteiroService{roteiros: roteiros, tracker: tracker, logger: logger}
}

// ListParams filters a user's roteiros. Zero fields are not applied.
type ListParams struct {
	UserID     string
	Search     string
	Tags       []string
	Difficulty domain.Difficulty
	MinRating  float64
	SortBy     string
	Descending bool
	Page       domain.PaginationParams
}

// sortable are the fields ListParams.SortBy accepts.
var sortable = []string{"created_at", "updated_at", "title", "rating", "total_distance_km", "total_hours"}

// Save validates and stores a new roteiro and records a roteiro_saved event.
// Totals are derived from the stops when the caller left them at zero.
func (s *RoteiroService) Save(ctx context.Context, r domain.Roteiro) (domain.Roteiro, error) {
	r.Tags = NormalizeTags(r.Tags)
	if r.Stops == nil {
		r.Stops = []domain.Stop{}
	}
	fillTotals(&r)

	saved, err := s.roteiros.Create(ctx, r)
	if err != nil {
		return domain.Roteiro{}, fmt.Errorf("service.RoteiroService.Save: %w", err)
	}

	if s.tracker != nil {
		props := map[string]any{"roteiro_id": saved.ID, "title": saved.Title}
		if _, err := s.tracker.Track(ctx, saved.UserID, domain.EventRoteiroSaved, props); err != nil {
			s.logger.Warn("tracking roteiro_saved failed", zap.String("roteiro_id", saved.ID), zap.Error(err))
		}
	}
	return saved, nil
}

// Get returns a single roteiro by ID.
// Returns domain.ErrNotFound if no roteiro with that ID exists.
func (s *RoteiroService) Get(ctx context.Context, id string) (domain.Roteiro, error) {
	r, err := s.roteiros.Get(ctx, id)
	if err != nil {
		return domain.Roteiro{}, fmt.Errorf("service.RoteiroService.Get: %w", err)
	}
	return r, nil
}

// List returns the roteiros matching p.
// Returns domain.ErrValidation for an unknown sort field and
// domain.ErrQueryUnsupported when storage runs without indexed queries.
// Always returns a non-nil slice on success.
func (s *RoteiroService) List(ctx context.Context, p ListParams) ([]domain.Roteiro, error) {
	q, err := p.query()
	if err != nil {
		return nil, err
	}
	out, err := s.roteiros.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("service.RoteiroService.List: %w", err)
	}
	if out == nil {
		return []domain.Roteiro{}, nil
	}
	return out, nil
}

func (p ListParams) query() (domain.Query, error) {
	q := domain.Query{
		Equals:     map[string]any{},
		Tags:       NormalizeTags(p.Tags),
		SortBy:     p.SortBy,
		Descending: p.Descending,
		Page:       p.Page,
	}
	if p.UserID != "" {
		q.Equals["user_id"] = p.UserID
	}
	if p.Difficulty != "" {
		d, err := domain.ParseDifficulty(string(p.Difficulty))
		if err != nil {
			return domain.Query{}, err
		}
		q.Equals["difficulty"] = string(d)
	}
	if search := strings.TrimSpace(p.Search); search != "" {
		q.Search = search
		q.SearchFields = []string{"title", "description"}
	}
	if p.MinRating > 0 {
		q.Min = map[string]float64{"rating": p.MinRating}
	}
	if q.SortBy != "" && !slices.Contains(sortable, q.SortBy) {
		return domain.Query{}, fmt.Errorf("%w: cannot sort by %q", domain.ErrValidation, q.SortBy)
	}
	return q, nil
}

// Update merges partial into the stored roteiro. Tags in partial are
// normalized before the merge.
// Returns domain.ErrValidation if the merged roteiro is invalid and
// domain.ErrNotFound if it does not exist.
func (s *RoteiroService) Update(ctx context.Context, id string, partial map[string]any) (domain.Roteiro, error) {
	if raw, ok := partial["tags"]; ok && raw != nil {
		tags, err := stringSlice(raw)
		if err != nil {
			return domain.Roteiro{}, fmt.Errorf("service.RoteiroService.Update: %w", err)
		}
		partial["tags"] = NormalizeTags(tags)
	}
	delete(partial, "user_id")

	r, err := s.roteiros.Update(ctx, id, partial)
	if err != nil {
		return domain.Roteiro{}, fmt.Errorf("service.RoteiroService.Update: %w", err)
	}
	return r, nil
}

// Rate sets the rating of a roteiro.
// Returns domain.ErrValidation if rating is outside 0..domain.MaxRating.
func (s *RoteiroService) Rate(ctx context.Context, id string, rating float64) (domain.Roteiro, error) {
	if rating < 0 || rating > domain.MaxRating {
		return domain.Roteiro{}, fmt.Errorf("%w: rating must be between 0 and %d", domain.ErrValidation, domain.MaxRating)
	}
	r, err := s.roteiros.Modify(ctx, id, func(r *domain.Roteiro) error {
		r.Rating = rating
		return nil
	})
	if err != nil {
		return domain.Roteiro{}, fmt.Errorf("service.RoteiroService.Rate: %w", err)
	}
	return r, nil
}

// Delete removes a roteiro. Deleting a missing roteiro is not an error.
func (s *RoteiroService) Delete(ctx context.Context, id string) error {
	if err := s.roteiros.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.RoteiroService.Delete: %w", err)
	}
	return nil
}

// Tags counts how many of the user's roteiros carry each tag, most used first.
// If prefix is non-empty only slugs starting with it are returned.
func (s *RoteiroService) Tags(ctx context.Context, userID, prefix string) ([]domain.TagCount, error) {
	roteiros, err := s.roteiros.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.RoteiroService.Tags: %w", err)
	}
	prefix = Slugify(prefix)

	counts := map[string]int{}
	for _, r := range roteiros {
		for _, t := range r.Tags {
			if strings.HasPrefix(t, prefix) {
				counts[t]++
			}
		}
	}
	out := make([]domain.TagCount, 0, len(counts))
	for slug, n := range counts {
		out = append(out, domain.TagCount{Slug: slug, Count: n})
	}
	slices.SortFunc(out, func(a, b domain.TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	return out, nil
}

func fillTotals(r *domain.Roteiro) {
	if r.TotalDistanceKm == 0 {
		for _, st := range r.Stops {
			r.TotalDistanceKm += st.DistanceKm
		}
	}
	if r.TotalHours == 0 {
		for _, st := range r.Stops {
			r.TotalHours += st.DurationHours
		}
	}
}

func stringSlice(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: tags must be strings", domain.ErrValidation)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: tags must be a list", domain.ErrValidation)
}
