package domain

import (
	"fmt"
	"strings"
	"time"
)

// Settings is the persisted state of a user's settings panel.
// ID is always the owning user's ID: there is one settings record per user.
type Settings struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	Theme             string         `json:"theme"`
	Language          string         `json:"language"`
	Units             string         `json:"units"`
	Notifications     bool           `json:"notifications"`
	AutoSave          bool           `json:"auto_save"`
	DefaultDistanceKm float64        `json:"default_distance_km"`
	Extra             map[string]any `json:"extra,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`
	SyncStatus        SyncStatus     `json:"sync_status"`
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings(userID string) Settings {
	return Settings{
		ID:                userID,
		UserID:            userID,
		Theme:             "dark",
		Language:          "pt-BR",
		Units:             "metric",
		Notifications:     true,
		AutoSave:          true,
		DefaultDistanceKm: 200,
	}
}

// Validate enforces the settings invariants.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	switch s.Units {
	case "", "metric", "imperial":
	default:
		return fmt.Errorf("%w: units must be metric or imperial", ErrValidation)
	}
	if s.DefaultDistanceKm < 0 {
		return fmt.Errorf("%w: default distance must not be negative", ErrValidation)
	}
	return nil
}

// Favorite marks a catalog destination a user wants to ride to.
type Favorite struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	DestinationName string     `json:"destination_name"`
	CreatedAt       time.Time  `json:"created_at"`
	SyncStatus      SyncStatus `json:"sync_status"`
}

// Validate enforces the favorite invariants.
func (f Favorite) Validate() error {
	if strings.TrimSpace(f.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if strings.TrimSpace(f.DestinationName) == "" {
		return fmt.Errorf("%w: destination_name is required", ErrValidation)
	}
	return nil
}
