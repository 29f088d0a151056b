// Package domain contains the core data types for the rolê planner.
// This package has zero external dependencies and is imported by every other
// internal package (store, datasync, matching, service, handler).
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Stop is one leg of a roteiro, in riding order.
type Stop struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
}

// Roteiro is a saved itinerary describing a rolê.
// It is the top-level aggregate owned by a user; stops belong to it.
type Roteiro struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Stops           []Stop          `json:"stops"`
	Costs           Costs           `json:"costs"`
	TotalDistanceKm float64         `json:"total_distance_km"`
	TotalHours      float64         `json:"total_hours"`
	Difficulty      Difficulty      `json:"difficulty,omitempty"`
	Params          *SearchCriteria `json:"params,omitempty"`
	Rating          float64         `json:"rating"`
	Shared          bool            `json:"shared"`
	Public          bool            `json:"public"`
	Tags            []string        `json:"tags"`
	ImageURL        string          `json:"image_url,omitempty"`
	MigratedFrom    string          `json:"migrated_from,omitempty"` // set on records imported from legacy storage
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	SyncStatus      SyncStatus      `json:"sync_status"`
}

// MaxRating is the top of the 0..5 rating scale.
const MaxRating = 5

// Validate enforces the business rules common to create and update.
//   - UserID and Title are required (whitespace-only titles are rejected).
//   - Rating must lie in 0..MaxRating.
//   - Difficulty, if set, must be a known value.
func (r Roteiro) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if r.Rating < 0 || r.Rating > MaxRating {
		return fmt.Errorf("%w: rating must be between 0 and %d", ErrValidation, MaxRating)
	}
	if r.Difficulty != "" {
		if _, err := ParseDifficulty(string(r.Difficulty)); err != nil {
			return err
		}
	}
	return nil
}
