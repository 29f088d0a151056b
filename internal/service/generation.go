package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/generator"
)

// Matcher ranks catalog destinations. matching.Engine implements it.
type Matcher interface {
	Search(criteria domain.SearchCriteria) ([]domain.MatchResult, error)
}

// UsageRecorder counts a generation against a user's plan.
// datasync.Manager implements it.
type UsageRecorder interface {
	RecordGeneration(ctx context.Context, userID string) (domain.User, error)
}

// Generation is the result of one generator run.
// Itinerary and Draft are nil when no destination matched.
type Generation struct {
	Matches              []domain.MatchResult `json:"matches"`
	Itinerary            *generator.Itinerary `json:"itinerary,omitempty"`
	Draft                *domain.Roteiro      `json:"draft,omitempty"`
	RemainingGenerations int                  `json:"remaining_generations"`
}

// GenerationService runs the generator flow: quota, matching, itinerary,
// cover image, usage accounting.
type GenerationService struct {
	users       Records[domain.User]
	matcher     Matcher
	itineraries generator.ItineraryGenerator
	images      generator.ImageProvider
	usage       UsageRecorder
	tracker     Tracker
	clock       Clock
	logger      *zap.Logger
}

// GenerationDeps groups the collaborators of GenerationService.
// Images, Tracker and Logger may be nil.
type GenerationDeps struct {
	Users       Records[domain.User]
	Matcher     Matcher
	Itineraries generator.ItineraryGenerator
	Images      generator.ImageProvider
	Usage       UsageRecorder
	Tracker     Tracker
	Clock       Clock
	Logger      *zap.Logger
}

// NewGenerationService constructs a GenerationService.
func NewGenerationService(d GenerationDeps) *GenerationService {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &GenerationService{
		users:       d.Users,
		matcher:     d.Matcher,
		itineraries: d.Itineraries,
		images:      d.Images,
		usage:       d.Usage,
		tracker:     d.Tracker,
		clock:       d.Clock,
		logger:      d.Logger,
	}
}

// Generate plans a ride for userID. The quota is checked before matching:
// a user with no generations left gets domain.ErrQuotaExceeded and the
// catalog is never searched. UsageRecorder checks it again atomically when
// counting, which is what holds under concurrent generations. Invalid criteria return domain.ErrValidation.
// A run counts against the quota only when a destination matched.
func (s *GenerationService) Generate(ctx context.Context, userID string, criteria domain.SearchCriteria) (Generation, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return Generation{}, fmt.Errorf("service.GenerationService.Generate: %w", err)
	}
	now := s.clock.now()
	if !u.CanGenerate(now) {
		return Generation{}, fmt.Errorf("service.GenerationService.Generate: %w: plan %s allows %d per month",
			domain.ErrQuotaExceeded, u.Plan, u.Plan.MonthlyQuota())
	}

	matches, err := s.matcher.Search(criteria)
	if err != nil {
		return Generation{}, fmt.Errorf("service.GenerationService.Generate: %w", err)
	}
	if len(matches) == 0 {
		return Generation{Matches: []domain.MatchResult{}, RemainingGenerations: u.RemainingGenerations(now)}, nil
	}

	best := matches[0]
	it, err := s.itineraries.Generate(ctx, generator.Request{
		Destination: best.Destination,
		Criteria:    criteria,
		Feasibility: best.Feasibility,
		RiderName:   u.Name,
	})
	if err != nil {
		return Generation{}, fmt.Errorf("service.GenerationService.Generate: %w", err)
	}

	var imageURL string
	if s.images != nil {
		img, err := s.images.Image(ctx, generator.ImagePrompt(best.Destination))
		if err != nil {
			s.logger.Warn("cover image failed", zap.String("destination", best.Destination.Name), zap.Error(err))
		} else {
			imageURL = img.DataURL()
		}
	}

	updated, err := s.usage.RecordGeneration(ctx, userID)
	if err != nil {
		return Generation{}, fmt.Errorf("service.GenerationService.Generate: %w", err)
	}

	if s.tracker != nil {
		props := map[string]any{
			"destination": best.Destination.Name,
			"source":      it.Source,
			"distance_km": criteria.DesiredDistanceKm,
		}
		if _, err := s.tracker.Track(ctx, userID, domain.EventGeneration, props); err != nil {
			s.logger.Warn("tracking generation failed", zap.Error(err))
		}
	}

	params := criteria
	draft := domain.Roteiro{
		UserID:          userID,
		Title:           it.Title,
		Description:     it.Description,
		Stops:           it.Stops,
		Costs:           best.Destination.Costs,
		TotalDistanceKm: it.TotalDistanceKm(),
		TotalHours:      it.TotalHours(),
		Difficulty:      best.Destination.Difficulty,
		Params:          &params,
		Tags:            NormalizeTags(best.Destination.Tags),
		ImageURL:        imageURL,
	}
	return Generation{
		Matches:              matches,
		Itinerary:            &it,
		Draft:                &draft,
		RemainingGenerations: updated.RemainingGenerations(now),
	}, nil
}
