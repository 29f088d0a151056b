package datasync_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoclube/roleplanner/internal/datasync"
	"github.com/motoclube/roleplanner/internal/domain"
)

func seedUserData(t *testing.T, m *datasync.Manager) domain.User {
	t.Helper()
	ctx := context.Background()
	u := createUser(t, m)
	for _, title := range []string{"Serra", "Litoral"} {
		_, err := m.Roteiros.Create(ctx, domain.Roteiro{UserID: u.ID, Title: title, Tags: []string{"serra"}})
		require.NoError(t, err)
	}
	_, err := m.Settings.Create(ctx, domain.DefaultSettings(u.ID))
	require.NoError(t, err)
	_, err = m.Analytics.Create(ctx, domain.AnalyticsEvent{UserID: u.ID, Type: domain.EventGeneration})
	require.NoError(t, err)
	return u
}

func TestExportUserData(t *testing.T) {
	m := newManager(t, nil, nil)
	u := seedUserData(t, m)
	_, err := m.Roteiros.Create(context.Background(), domain.Roteiro{UserID: "someone-else", Title: "Other"})
	require.NoError(t, err)

	bundle, err := m.ExportUserData(context.Background(), u.ID)

	require.NoError(t, err)
	assert.Equal(t, u.ID, bundle.User.ID)
	assert.Len(t, bundle.Roteiros, 2)
	require.NotNil(t, bundle.Settings)
	assert.Equal(t, "pt-BR", bundle.Settings.Language)
	assert.Len(t, bundle.Analytics, 1)
	assert.Equal(t, domain.ExportVersion, bundle.Version)
}

func TestExportUserData_UnknownUser(t *testing.T) {
	m := newManager(t, nil, nil)

	_, err := m.ExportUserData(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestImportUserData_RoundTripIsIdempotent exports a user's data through JSON,
// imports it into a fresh store twice, and expects one copy of each record.
func TestImportUserData_RoundTripIsIdempotent(t *testing.T) {
	ctx := context.Background()
	src := newManager(t, nil, nil)
	u := seedUserData(t, src)
	bundle, err := src.ExportUserData(ctx, u.ID)
	require.NoError(t, err)

	blob, err := json.Marshal(bundle)
	require.NoError(t, err)
	var decoded domain.UserDataExport
	require.NoError(t, json.Unmarshal(blob, &decoded))

	dst := newManager(t, nil, nil)
	for range 2 {
		rep, err := dst.ImportUserData(ctx, decoded)
		require.NoError(t, err)
		assert.Equal(t, 2, rep.Roteiros)
		assert.True(t, rep.Settings)
	}

	again, err := dst.ExportUserData(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, bundle.User.Email, again.User.Email)
	assert.Len(t, again.Roteiros, 2)
	assert.Len(t, again.Analytics, 1)

	titles := []string{again.Roteiros[0].Title, again.Roteiros[1].Title}
	assert.ElementsMatch(t, []string{"Serra", "Litoral"}, titles)
	assert.Equal(t, bundle.Roteiros[0].CreatedAt, findRoteiro(again.Roteiros, bundle.Roteiros[0].ID).CreatedAt)
}

func findRoteiro(rs []domain.Roteiro, id string) domain.Roteiro {
	for _, r := range rs {
		if r.ID == id {
			return r
		}
	}
	return domain.Roteiro{}
}

func TestImportUserData_RejectsForeignRecords(t *testing.T) {
	m := newManager(t, nil, nil)
	bundle := domain.UserDataExport{
		User:     domain.User{ID: "u1", Name: "Ana", Email: "ana@moto.club", Plan: domain.PlanFree},
		Roteiros: []domain.Roteiro{{ID: "r1", UserID: "u2", Title: "Not yours"}},
		Version:  domain.ExportVersion,
	}

	_, err := m.ImportUserData(context.Background(), bundle)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- legacy migration ------------------------------------------------------

const legacyBlob = `{
	"user_profile": {"name": "Bruno", "email": "bruno@moto.club"},
	"roteiros_salvos": [
		{"id": "old-1", "title": "Serra do Mar", "rating": 4},
		{"title": "Sem id"},
		{"id": "old-bad", "title": ""}
	],
	"user_settings": {"theme": "light"},
	"favoritos": ["Paraty", "Cunha"]
}`

func TestMigrateLegacy_ImportsOnceAndKeepsSource(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyBlob), 0o600))
	m := newManager(t, nil, nil)

	rep, err := m.MigrateLegacy(ctx, datasync.LegacyFile{Path: path})

	require.NoError(t, err)
	assert.Equal(t, 1, rep.Users)
	assert.Equal(t, 2, rep.Roteiros)
	assert.Equal(t, 1, rep.Failed, "the untitled roteiro is skipped")
	assert.Equal(t, 1, rep.Settings)
	assert.Equal(t, 2, rep.Favorites)

	r, err := m.Roteiros.Get(ctx, "old-1")
	require.NoError(t, err)
	assert.Equal(t, "legacy", r.MigratedFrom)
	assert.NotEmpty(t, r.UserID, "legacy roteiros are attached to the migrated profile")

	again, err := m.MigrateLegacy(ctx, datasync.LegacyFile{Path: path})
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, legacyBlob, string(raw), "legacy data is never modified")
}

func TestMigrateLegacy_NoLegacyFile(t *testing.T) {
	m := newManager(t, nil, nil)

	rep, err := m.MigrateLegacy(context.Background(), datasync.LegacyFile{Path: filepath.Join(t.TempDir(), "none.json")})

	require.NoError(t, err)
	assert.Zero(t, rep.Users+rep.Roteiros)
}

func TestMigrateLegacy_UnreadableSourceRetriesLater(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	m := newManager(t, nil, nil)

	_, err := m.MigrateLegacy(ctx, datasync.LegacyFile{Path: path})
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	rep, err := m.MigrateLegacy(ctx, datasync.LegacyFile{Path: path})
	require.NoError(t, err)
	assert.False(t, rep.Skipped)
}
