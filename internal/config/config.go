// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server (cmd/api).
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// LocalDBPath is the SQLite file backing the local store.
	// Defaults to "roleplanner.db".
	LocalDBPath string

	// SyncBaseURL is the remote sync receiver. Empty disables remote sync:
	// writes stay queued locally.
	SyncBaseURL string

	// SyncSecret signs the bearer tokens sent to the receiver.
	// Required when SyncBaseURL is set.
	SyncSecret string

	// SyncInterval is the periodic drain and cache sweep interval. Defaults to 5m.
	SyncInterval time.Duration

	// SyncTimeout bounds one batch push. Defaults to 30s.
	SyncTimeout time.Duration

	// GeminiAPIKey enables AI itineraries. Empty means local templates only.
	GeminiAPIKey string

	// GeminiModel is the text model name. Defaults to "gemini-2.0-flash".
	GeminiModel string

	// ImageAPIURL is the image predict endpoint. Empty means placeholder images.
	ImageAPIURL string

	// LegacyDataPath is a JSON file of legacy flat keys imported once at startup.
	// Empty skips the migration.
	LegacyDataPath string

	// OTLPEndpoint enables trace export when set (OTEL_EXPORTER_OTLP_ENDPOINT).
	OTLPEndpoint string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// SyncdConfig holds configuration for the remote sync receiver (cmd/syncd).
type SyncdConfig struct {
	// Port defaults to "8081".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// SyncSecret verifies bearer tokens. Required.
	SyncSecret string

	// LogLevel defaults to "info".
	LogLevel string

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string
}

// Load reads the API configuration from environment variables.
// Returns an error listing any required variables that are not set and any
// values that cannot be parsed.
func Load() (Config, error) {
	var p parser
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		LocalDBPath:    getEnv("LOCAL_DB_PATH", "roleplanner.db"),
		SyncBaseURL:    strings.TrimRight(os.Getenv("SYNC_BASE_URL"), "/"),
		SyncSecret:     os.Getenv("SYNC_SECRET"),
		SyncInterval:   p.duration("SYNC_INTERVAL", 5*time.Minute),
		SyncTimeout:    p.duration("SYNC_TIMEOUT", 30*time.Second),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ImageAPIURL:    os.Getenv("IMAGE_API_URL"),
		LegacyDataPath: os.Getenv("LEGACY_DATA_PATH"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		MaxBodyBytes:   p.int64("MAX_BODY_BYTES", 1<<20),
	}

	var missing []string
	if cfg.SyncBaseURL != "" && cfg.SyncSecret == "" {
		missing = append(missing, "SYNC_SECRET")
	}

	if err := p.err(missing); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadSyncd reads the sync receiver configuration from environment variables.
func LoadSyncd() (SyncdConfig, error) {
	cfg := SyncdConfig{
		Port:         getEnv("PORT", "8081"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SyncSecret:   os.Getenv("SYNC_SECRET"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.SyncSecret == "" {
		missing = append(missing, "SYNC_SECRET")
	}

	var p parser
	if err := p.err(missing); err != nil {
		return SyncdConfig{}, err
	}
	return cfg, nil
}

// parser collects the names of variables whose values do not parse, so Load
// reports them all at once.
type parser struct {
	invalid []string
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func (p *parser) int64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) err(missing []string) error {
	var msgs []string
	if len(missing) > 0 {
		msgs = append(msgs, "required environment variables not set: "+strings.Join(missing, ", "))
	}
	if len(p.invalid) > 0 {
		msgs = append(msgs, "invalid environment variables: "+strings.Join(p.invalid, ", "))
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "; "))
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
