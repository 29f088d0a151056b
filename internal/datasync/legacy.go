package datasync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
)

// Keys written by the previous flat key-value storage scheme.
const (
	LegacyKeyProfile   = "user_profile"
	LegacyKeyRoteiros  = "roteiros_salvos"
	LegacyKeySettings  = "user_settings"
	LegacyKeyFavorites = "favoritos"

	legacyMigrationFlag = "migration.legacy.v1"
	legacyMarker        = "legacy"
)

// LegacySource reads the old flat key-value entries. It is read-only: the
// migration never deletes or rewrites legacy data.
type LegacySource interface {
	Load(ctx context.Context) (map[string]json.RawMessage, error)
}

// LegacyFile is a LegacySource backed by a JSON object of key to value.
// A missing file means there is nothing to migrate.
type LegacyFile struct {
	Path string
}

func (f LegacyFile) Load(_ context.Context) (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("datasync.LegacyFile.Load: %w", err)
	}
	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("datasync.LegacyFile.Load: %w", err)
	}
	return entries, nil
}

// MigrationReport summarises a legacy import.
type MigrationReport struct {
	Skipped   bool `json:"skipped"` // already migrated earlier
	Users     int  `json:"users"`
	Roteiros  int  `json:"roteiros"`
	Settings  int  `json:"settings"`
	Favorites int  `json:"favorites"`
	Failed    int  `json:"failed"`
}

// MigrateLegacy imports legacy entries into the structured store, once.
// Records are upserted by id and imported roteiros carry MigratedFrom
// "legacy". Individual bad entries are logged and counted, not fatal; the
// migration is marked done once the source has been read, so it never runs
// twice. A source that cannot be read leaves the flag unset for a later retry.
func (m *Manager) MigrateLegacy(ctx context.Context, src LegacySource) (MigrationReport, error) {
	var rep MigrationReport
	if _, err := m.store.GetMeta(ctx, legacyMigrationFlag); err == nil {
		rep.Skipped = true
		return rep, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return rep, fmt.Errorf("datasync.Manager.MigrateLegacy: %w", err)
	}

	entries, err := src.Load(ctx)
	if err != nil {
		return rep, fmt.Errorf("datasync.Manager.MigrateLegacy: %w", err)
	}

	fail := func(key string, err error) {
		rep.Failed++
		m.logger.Warn("legacy entry not migrated", zap.String("key", key), zap.Error(err))
	}

	var userID string
	if raw, ok := entries[LegacyKeyProfile]; ok {
		var u domain.User
		if err := json.Unmarshal(raw, &u); err != nil {
			fail(LegacyKeyProfile, err)
		} else {
			if u.ID == "" {
				u.ID = uuid.NewString()
			}
			if u.Plan == "" {
				u.Plan = domain.PlanFree
			}
			if _, err := m.Users.Upsert(ctx, u); err != nil {
				fail(LegacyKeyProfile, err)
			} else {
				userID = u.ID
				rep.Users++
			}
		}
	}

	if raw, ok := entries[LegacyKeyRoteiros]; ok {
		var rs []domain.Roteiro
		if err := json.Unmarshal(raw, &rs); err != nil {
			fail(LegacyKeyRoteiros, err)
		}
		for _, r := range rs {
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			if r.UserID == "" {
				r.UserID = userID
			}
			r.MigratedFrom = legacyMarker
			if _, err := m.Roteiros.Upsert(ctx, r); err != nil {
				fail(LegacyKeyRoteiros, err)
				continue
			}
			rep.Roteiros++
		}
	}

	if raw, ok := entries[LegacyKeySettings]; ok && userID != "" {
		s := domain.DefaultSettings(userID)
		if err := json.Unmarshal(raw, &s); err != nil {
			fail(LegacyKeySettings, err)
		} else {
			s.ID, s.UserID = userID, userID
			if _, err := m.Settings.Upsert(ctx, s); err != nil {
				fail(LegacyKeySettings, err)
			} else {
				rep.Settings++
			}
		}
	}

	if raw, ok := entries[LegacyKeyFavorites]; ok && userID != "" {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			fail(LegacyKeyFavorites, err)
		}
		for _, name := range names {
			// Stable ids keep a re-run from duplicating favorites.
			f := domain.Favorite{
				ID:              uuid.NewSHA1(uuid.NameSpaceURL, []byte(userID+"/"+strings.ToLower(name))).String(),
				UserID:          userID,
				DestinationName: name,
			}
			if _, err := m.Favorites.Upsert(ctx, f); err != nil {
				fail(LegacyKeyFavorites, err)
				continue
			}
			rep.Favorites++
		}
	}

	if err := m.store.SetMeta(ctx, legacyMigrationFlag, m.now().Format(time.RFC3339)); err != nil {
		return rep, fmt.Errorf("datasync.Manager.MigrateLegacy: %w", err)
	}
	m.logger.Info("legacy data migrated",
		zap.Int("users", rep.Users),
		zap.Int("roteiros", rep.Roteiros),
		zap.Int("settings", rep.Settings),
		zap.Int("favorites", rep.Favorites),
		zap.Int("failed", rep.Failed))
	return rep, nil
}
