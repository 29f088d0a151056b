package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Category groups catalog destinations by the kind of ride they offer.
type Category string

const (
	CategoryUrban       Category = "urban"
	CategoryMountain    Category = "mountain"
	CategoryBeach       Category = "beach"
	CategoryGastronomic Category = "gastronomic"
	CategoryAdventure   Category = "adventure"
	CategoryHistoric    Category = "historic"
)

// Categories lists every category in catalog order.
var Categories = []Category{
	CategoryUrban,
	CategoryMountain,
	CategoryBeach,
	CategoryGastronomic,
	CategoryAdventure,
	CategoryHistoric,
}

// categoryAliases accepts the Portuguese labels used by the club site.
var categoryAliases = map[string]Category{
	"urbano":       CategoryUrban,
	"montanha":     CategoryMountain,
	"praia":        CategoryBeach,
	"gastronomia":  CategoryGastronomic,
	"gastronomico": CategoryGastronomic,
	"aventura":     CategoryAdventure,
	"historico":    CategoryHistoric,
}

// ParseCategory converts a user-supplied label into a Category.
// Unknown labels are rejected with ErrValidation rather than ignored.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == key {
			return c, nil
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Difficulty rates how demanding a ride is.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

var difficultyAliases = map[string]Difficulty{
	"facil":    DifficultyEasy,
	"fácil":    DifficultyEasy,
	"moderado": DifficultyModerate,
	"media":    DifficultyModerate,
	"dificil":  DifficultyHard,
	"difícil":  DifficultyHard,
}

// Valid reports whether d is one of the canonical difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty converts a user-supplied label into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch Difficulty(key) {
	case DifficultyEasy, DifficultyModerate, DifficultyHard:
		return Difficulty(key), nil
	}
	if d, ok := difficultyAliases[key]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrValidation, s)
}

// TravelTime is an estimated one-way travel time range in hours.
// In the catalog it is written as "2-3h" or "4h".
type TravelTime struct {
	MinHours float64
	MaxHours float64
}

// ParseTravelTime parses "6-8h", "6-8" or "5h" into a TravelTime.
func ParseTravelTime(s string) (TravelTime, error) {
	raw := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "h")
	parts := strings.SplitN(raw, "-", 2)

	minH, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return TravelTime{}, fmt.Errorf("%w: travel time %q", ErrValidation, s)
	}
	maxH := minH
	if len(parts) == 2 {
		maxH, err = strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(parts[1], "h")), 64)
		if err != nil {
			return TravelTime{}, fmt.Errorf("%w: travel time %q", ErrValidation, s)
		}
	}
	if minH <= 0 || maxH < minH {
		return TravelTime{}, fmt.Errorf("%w: travel time %q must be a positive range", ErrValidation, s)
	}
	return TravelTime{MinHours: minH, MaxHours: maxH}, nil
}

// String renders the range back in catalog form.
func (t TravelTime) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	if t.MinHours == t.MaxHours {
		return f(t.MinHours) + "h"
	}
	return f(t.MinHours) + "-" + f(t.MaxHours) + "h"
}

func (t TravelTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TravelTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTravelTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Costs is the per-rider cost breakdown of a trip, in BRL.
type Costs struct {
	Toll float64 `json:"toll"`
	Fuel float64 `json:"fuel"`
	Food float64 `json:"food"`
}

// Total sums every cost component.
func (c Costs) Total() float64 {
	return c.Toll + c.Fuel + c.Food
}

// Destination is an immutable catalog entry.
// DistanceKm is the round-trip-equivalent distance used for matching.
type Destination struct {
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	DistanceKm       float64    `json:"distance_km"`
	TravelTime       TravelTime `json:"travel_time"`
	Difficulty       Difficulty `json:"difficulty"`
	Category         Category   `json:"category"`
	PointsOfInterest []string   `json:"points_of_interest"`
	BestDeparture    TimeOfDay  `json:"best_departure"`
	Costs            Costs      `json:"costs"`
	Tags             []string   `json:"tags"`
}

// Validate enforces the catalog invariants.
func (d Destination) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: destination name is required", ErrValidation)
	}
	if d.DistanceKm <= 0 {
		return fmt.Errorf("%w: %s: distance must be positive", ErrValidation, d.Name)
	}
	if d.TravelTime.MinHours <= 0 || d.TravelTime.MaxHours < d.TravelTime.MinHours {
		return fmt.Errorf("%w: %s: travel time must be a positive range", ErrValidation, d.Name)
	}
	if !d.Category.Valid() {
		return fmt.Errorf("%w: %s: unknown category %q", ErrValidation, d.Name, d.Category)
	}
	if _, err := ParseDifficulty(string(d.Difficulty)); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	return nil
}

// HasTag reports whether the destination carries tag (case-insensitive).
func (d Destination) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
