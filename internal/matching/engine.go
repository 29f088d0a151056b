// Package matching ranks catalog destinations against a rider's search
// criteria. It owns no state beyond the immutable catalog it is built with,
// so an Engine is safe for concurrent use.
package matching

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/motoclube/roleplanner/internal/domain"
)

// DistanceTolerance is the fraction of the desired distance a destination may
// deviate by and still be a candidate.
const DistanceTolerance = 0.2

// Engine searches a fixed destination catalog.
type Engine struct {
	catalog []domain.Destination
}

// NewEngine builds an Engine over catalog. The slice is copied; catalog order
// is the tie-break order for equal scores.
func NewEngine(catalog []domain.Destination) *Engine {
	return &Engine{catalog: slices.Clone(catalog)}
}

// Catalog returns the destinations, optionally restricted to one category.
func (e *Engine) Catalog(category domain.Category) []domain.Destination {
	out := make([]domain.Destination, 0, len(e.catalog))
	for _, d := range e.catalog {
		if category == "" || d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// ByName looks up a destination by its exact name (case-insensitive).
func (e *Engine) ByName(name string) (domain.Destination, error) {
	for _, d := range e.catalog {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return domain.Destination{}, fmt.Errorf("matching.Engine.ByName %q: %w", name, domain.ErrNotFound)
}

// Search returns the destinations matching criteria, best score first.
//
// Candidates must lie within DistanceTolerance of the desired distance
// (boundary included). Difficulty, budget and time window filters apply in that
// order when set. A window attaches the feasibility verdict to each survivor.
// Equal scores keep catalog order.
func (e *Engine) Search(criteria domain.SearchCriteria) ([]domain.MatchResult, error) {
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("matching.Engine.Search: %w", err)
	}

	desired := criteria.DesiredDistanceKm
	results := []domain.MatchResult{}
	for _, d := range e.catalog {
		if criteria.Category != "" && d.Category != criteria.Category {
			continue
		}
		if math.Abs(d.DistanceKm-desired) > DistanceTolerance*desired {
			continue
		}
		if criteria.Difficulty != "" && d.Difficulty != criteria.Difficulty {
			continue
		}
		if criteria.BudgetCeiling != nil && d.Costs.Total() > *criteria.BudgetCeiling {
			continue
		}

		res := domain.MatchResult{Destination: d}
		if criteria.Window != nil {
			f := Feasibility(d, *criteria.Window)
			if !f.Fits {
				continue
			}
			res.Feasibility = &f
		}
		res.Score = Score(d.DistanceKm, desired)
		results = append(results, res)
	}

	slices.SortStableFunc(results, func(a, b domain.MatchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return results, nil
}

// Score rates how closely distanceKm matches desiredKm on a 0..100 scale,
// rounded to one decimal. An exact match scores 100 and the tolerance
// boundary scores 0.
func Score(distanceKm, desiredKm float64) float64 {
	if desiredKm <= 0 {
		return 0
	}
	s := 100 * (1 - math.Abs(distanceKm-desiredKm)/(DistanceTolerance*desiredKm))
	if s < 0 {
		return 0
	}
	return math.Round(s*10) / 10
}
