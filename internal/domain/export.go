package domain

import "time"

// ExportVersion is written into every user data bundle.
const ExportVersion = "1.0"

// UserDataExport is the full downloadable bundle for one user. Importing it
// again upserts every record by id.
type UserDataExport struct {
	User       User             `json:"user"`
	Roteiros   []Roteiro        `json:"roteiros"`
	Settings   *Settings        `json:"settings"`
	Favorites  []Favorite       `json:"favorites,omitempty"`
	Analytics  []AnalyticsEvent `json:"analytics"`
	ExportedAt time.Time        `json:"exportedAt"`
	Version    string           `json:"version"`
}

// ExportRow is a single row in the roteiro CSV export.
// It is a flat, denormalized view: one row per stop, with roteiro fields
// repeated for every stop. Roteiros with no stops yield one row with zero
// values for all stop fields.
type ExportRow struct {
	RoteiroID   string
	Title       string
	CreatedDate string // "2006-01-02"
	Difficulty  string
	TotalCost   float64
	Rating      float64

	StopName          string
	StopDistanceKm    float64
	StopDurationHours float64

	// Tags are the roteiro's slugs, ordered alphabetically.
	Tags []string
}
