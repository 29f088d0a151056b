package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (24h clock) into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrValidation, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: time %q has an invalid hour", ErrValidation, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: time %q has an invalid minute", ErrValidation, s)
	}
	return TimeOfDay(h*60 + m), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals known to be valid.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Hours returns the time of day as fractional hours since midnight.
func (t TimeOfDay) Hours() float64 {
	return float64(t) / 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeWindow is a same-day departure/return pair. Overnight windows are not
// supported: a return before departure leaves zero hours available.
type TimeWindow struct {
	Departure TimeOfDay `json:"departure"`
	Return    TimeOfDay `json:"return"`
}

// AvailableHours is the time between departure and return, floored at zero.
func (w TimeWindow) AvailableHours() float64 {
	h := w.Return.Hours() - w.Departure.Hours()
	if h < 0 {
		return 0
	}
	return h
}

// SearchCriteria is what a rider asks the matching engine for.
// Only DesiredDistanceKm is required; nil/empty fields are not applied.
type SearchCriteria struct {
	DesiredDistanceKm float64     `json:"desired_distance_km"`
	Category          Category    `json:"category,omitempty"`
	Difficulty        Difficulty  `json:"difficulty,omitempty"`
	BudgetCeiling     *float64    `json:"budget_ceiling,omitempty"`
	Window            *TimeWindow `json:"window,omitempty"`
}

// CriteriaOption customises SearchCriteria built by NewSearchCriteria.
type CriteriaOption func(*SearchCriteria)

// WithCategory restricts the search to a single category.
func WithCategory(c Category) CriteriaOption {
	return func(sc *SearchCriteria) { sc.Category = c }
}

// WithDifficulty keeps only destinations with exactly this difficulty.
// Aliases accepted by ParseDifficulty are stored in canonical form.
func WithDifficulty(d Difficulty) CriteriaOption {
	return func(sc *SearchCriteria) {
		if canonical, err := ParseDifficulty(string(d)); err == nil {
			d = canonical
		}
		sc.Difficulty = d
	}
}

// WithBudget drops destinations whose total cost exceeds ceiling.
func WithBudget(ceiling float64) CriteriaOption {
	return func(sc *SearchCriteria) { sc.BudgetCeiling = &ceiling }
}

// WithWindow requires the round trip to fit between departure and return.
func WithWindow(departure, ret TimeOfDay) CriteriaOption {
	return func(sc *SearchCriteria) {
		sc.Window = &TimeWindow{Departure: departure, Return: ret}
	}
}

// NewSearchCriteria builds and validates SearchCriteria.
func NewSearchCriteria(desiredKm float64, opts ...CriteriaOption) (SearchCriteria, error) {
	sc := SearchCriteria{DesiredDistanceKm: desiredKm}
	for _, opt := range opts {
		opt(&sc)
	}
	if err := sc.Validate(); err != nil {
		return SearchCriteria{}, err
	}
	return sc, nil
}

// Validate checks the criteria invariants. Difficulty must already be
// canonical since the engine compares it verbatim against the catalog.
func (sc SearchCriteria) Validate() error {
	if !finite(sc.DesiredDistanceKm) || sc.DesiredDistanceKm <= 0 {
		return fmt.Errorf("%w: desired distance must be a positive number", ErrValidation)
	}
	if sc.Category != "" && !sc.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, sc.Category)
	}
	if sc.Difficulty != "" && !sc.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrValidation, sc.Difficulty)
	}
	if sc.BudgetCeiling != nil && (!finite(*sc.BudgetCeiling) || *sc.BudgetCeiling < 0) {
		return fmt.Errorf("%w: budget ceiling must be a non-negative number", ErrValidation)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// HoursBreakdown splits the hours a trip needs.
type HoursBreakdown struct {
	OutboundHours float64 `json:"outbound_hours"`
	DwellHours    float64 `json:"dwell_hours"`
	ReturnHours   float64 `json:"return_hours"`
}

// Feasibility is the verdict on whether a trip fits a time window.
// SlackHours is negative only when Fits is false.
type Feasibility struct {
	Fits           bool           `json:"fits"`
	AvailableHours float64        `json:"available_hours"`
	RequiredHours  float64        `json:"required_hours"`
	SlackHours     float64        `json:"slack_hours"`
	Breakdown      HoursBreakdown `json:"breakdown"`
}

// MatchResult is a catalog destination ranked against SearchCriteria.
type MatchResult struct {
	Destination Destination  `json:"destination"`
	Score       float64      `json:"score"`
	Feasibility *Feasibility `json:"feasibility,omitempty"`
}
