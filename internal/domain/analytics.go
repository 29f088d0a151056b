package domain

import (
	"fmt"
	"strings"
	"time"
)

// Analytics event types emitted by the backend itself. Clients may post any
// other non-empty type.
const (
	EventGeneration   = "generation"
	EventRoteiroSaved = "roteiro_saved"
	EventFavorite     = "favorite"
	EventLogin        = "login"
)

// AnalyticsEvent is a single tracked user action.
type AnalyticsEvent struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id,omitempty"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	SyncStatus SyncStatus     `json:"sync_status"`
}

// Validate enforces the event invariants.
func (e AnalyticsEvent) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("%w: event type is required", ErrValidation)
	}
	return nil
}

// Period is a reporting window ending now.
type Period string

const (
	Period7Days  Period = "7d"
	Period30Days Period = "30d"
	Period90Days Period = "90d"
	Period1Year  Period = "1y"
)

// ParsePeriod validates a reporting period. Empty input means Period30Days.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.TrimSpace(s)); p {
	case "":
		return Period30Days, nil
	case Period7Days, Period30Days, Period90Days, Period1Year:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrValidation, s)
}

// Since returns the first instant covered by the period when it ends at now.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case Period7Days:
		return now.AddDate(0, 0, -7)
	case Period90Days:
		return now.AddDate(0, 0, -90)
	case Period1Year:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -30)
	}
}

// DailyCount is one point of a per-day series.
type DailyCount struct {
	Date  string `json:"date"` // "2006-01-02"
	Count int    `json:"count"`
}

// AnalyticsMetrics are the precomputed series a dashboard charts.
type AnalyticsMetrics struct {
	EventsByType    map[string]int `json:"eventsByType"`
	DailyEvents     []DailyCount   `json:"dailyEvents"`
	Generations     int            `json:"generations"`
	RoteirosSaved   int            `json:"roteirosSaved"`
	TopDestinations []NamedCount   `json:"topDestinations"`
	ActiveUsers     int            `json:"activeUsers"`
}

// NamedCount pairs a label with how often it occurred.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AnalyticsSummary condenses the metrics into headline numbers.
type AnalyticsSummary struct {
	TotalEvents   int     `json:"totalEvents"`
	UniqueUsers   int     `json:"uniqueUsers"`
	TopEventType  string  `json:"topEventType,omitempty"`
	AveragePerDay float64 `json:"averagePerDay"`
}

// AnalyticsExport is the downloadable analytics bundle.
type AnalyticsExport struct {
	Period     Period           `json:"period"`
	ExportDate time.Time        `json:"exportDate"`
	Metrics    AnalyticsMetrics `json:"metrics"`
	Summary    AnalyticsSummary `json:"summary"`
}
