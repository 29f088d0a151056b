package service

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/motoclube/roleplanner/internal/domain"
)

// topDestinationsLimit caps the destination ranking in metrics.
const topDestinationsLimit = 5

// AnalyticsService records events and turns them into dashboard metrics.
type AnalyticsService struct {
	events Records[domain.AnalyticsEvent]
	clock  Clock
}

// NewAnalyticsService constructs an AnalyticsService backed by events.
func NewAnalyticsService(events Records[domain.AnalyticsEvent], clock Clock) *AnalyticsService {
	return &AnalyticsService{events: events, clock: clock}
}

// Track stores one event stamped with the current time.
// Returns domain.ErrValidation if eventType is blank.
func (s *AnalyticsService) Track(ctx context.Context, userID, eventType string, props map[string]any) (domain.AnalyticsEvent, error) {
	ev, err := s.events.Create(ctx, domain.AnalyticsEvent{
		UserID:     userID,
		Type:       strings.TrimSpace(eventType),
		Properties: props,
		Timestamp:  s.clock.now(),
	})
	if err != nil {
		return domain.AnalyticsEvent{}, fmt.Errorf("service.AnalyticsService.Track: %w", err)
	}
	return ev, nil
}

// Metrics computes the dashboard series for events inside period.
func (s *AnalyticsService) Metrics(ctx context.Context, period domain.Period) (domain.AnalyticsMetrics, error) {
	events, err := s.inPeriod(ctx, period)
	if err != nil {
		return domain.AnalyticsMetrics{}, fmt.Errorf("service.AnalyticsService.Metrics: %w", err)
	}
	return metrics(events), nil
}

// Summary condenses the metrics for period into headline numbers.
func (s *AnalyticsService) Summary(ctx context.Context, period domain.Period) (domain.AnalyticsSummary, error) {
	events, err := s.inPeriod(ctx, period)
	if err != nil {
		return domain.AnalyticsSummary{}, fmt.Errorf("service.AnalyticsService.Summary: %w", err)
	}
	return s.summary(period, metrics(events), len(events)), nil
}

// Export bundles metrics and summary for period with the export time.
func (s *AnalyticsService) Export(ctx context.Context, period domain.Period) (domain.AnalyticsExport, error) {
	events, err := s.inPeriod(ctx, period)
	if err != nil {
		return domain.AnalyticsExport{}, fmt.Errorf("service.AnalyticsService.Export: %w", err)
	}
	m := metrics(events)
	return domain.AnalyticsExport{
		Period:     period,
		ExportDate: s.clock.now(),
		Metrics:    m,
		Summary:    s.summary(period, m, len(events)),
	}, nil
}

// inPeriod lists every event and keeps those no older than the period start.
// The unfiltered list works on both storage backends.
func (s *AnalyticsService) inPeriod(ctx context.Context, period domain.Period) ([]domain.AnalyticsEvent, error) {
	all, err := s.events.Query(ctx, domain.Query{})
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	since := period.Since(now)
	out := make([]domain.AnalyticsEvent, 0, len(all))
	for _, ev := range all {
		if !ev.Timestamp.Before(since) && !ev.Timestamp.After(now) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func metrics(events []domain.AnalyticsEvent) domain.AnalyticsMetrics {
	m := domain.AnalyticsMetrics{
		EventsByType:    map[string]int{},
		DailyEvents:     []domain.DailyCount{},
		TopDestinations: []domain.NamedCount{},
	}
	daily := map[string]int{}
	destinations := map[string]int{}
	users := map[string]struct{}{}

	for _, ev := range events {
		m.EventsByType[ev.Type]++
		daily[ev.Timestamp.Format("2006-01-02")]++
		if ev.UserID != "" {
			users[ev.UserID] = struct{}{}
		}
		switch ev.Type {
		case domain.EventGeneration:
			m.Generations++
		case domain.EventRoteiroSaved:
			m.RoteirosSaved++
		}
		if name, ok := ev.Properties["destination"].(string); ok && name != "" {
			destinations[name]++
		}
	}

	for day, n := range daily {
		m.DailyEvents = append(m.DailyEvents, domain.DailyCount{Date: day, Count: n})
	}
	slices.SortFunc(m.DailyEvents, func(a, b domain.DailyCount) int { return cmp.Compare(a.Date, b.Date) })

	m.TopDestinations = ranked(destinations, topDestinationsLimit)
	m.ActiveUsers = len(users)
	return m
}

func (s *AnalyticsService) summary(period domain.Period, m domain.AnalyticsMetrics, total int) domain.AnalyticsSummary {
	now := s.clock.now()
	days := now.Sub(period.Since(now)).Hours() / 24

	var top string
	if byType := ranked(m.EventsByType, 1); len(byType) > 0 {
		top = byType[0].Name
	}
	return domain.AnalyticsSummary{
		TotalEvents:   total,
		UniqueUsers:   m.ActiveUsers,
		TopEventType:  top,
		AveragePerDay: math.Round(float64(total)/days*100) / 100,
	}
}

// ranked orders counts descending, breaking ties by name, and keeps limit.
func ranked(counts map[string]int, limit int) []domain.NamedCount {
	out := make([]domain.NamedCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, domain.NamedCount{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b domain.NamedCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
