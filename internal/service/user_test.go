package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/service"
)

// mockLookup implements service.DestinationLookup over a fixed name set.
type mockLookup struct{ names []string }

var _ service.DestinationLookup = (*mockLookup)(nil)

func (m *mockLookup) ByName(name string) (domain.Destination, error) {
	for _, n := range m.names {
		if n == name {
			return domain.Destination{Name: n}, nil
		}
	}
	return domain.Destination{}, domain.ErrNotFound
}

type userFixture struct {
	users     *mockRecords[domain.User]
	settings  *mockRecords[domain.Settings]
	favorites *mockRecords[domain.Favorite]
	roteiros  *mockRecords[domain.Roteiro]
	tracker   *mockTracker
}

func newUserFixture() *userFixture {
	return &userFixture{
		users:     &mockRecords[domain.User]{},
		settings:  &mockRecords[domain.Settings]{},
		favorites: &mockRecords[domain.Favorite]{},
		roteiros:  &mockRecords[domain.Roteiro]{},
		tracker:   &mockTracker{},
	}
}

func (f *userFixture) service() *service.UserService {
	return service.NewUserService(service.UserDeps{
		Users:        f.users,
		Settings:     f.settings,
		Favorites:    f.favorites,
		Roteiros:     f.roteiros,
		Destinations: &mockLookup{names: []string{"Ubatuba", "Estrada Real"}},
		Tracker:      f.tracker,
		Clock:        fixedClock(),
	})
}

func existingUser(context.Context, string) (domain.User, error) {
	return domain.User{ID: "u1", Name: "Ana", Email: "ana@club.br", Plan: domain.PlanFree}, nil
}

// ---- Register --------------------------------------------------------------

func TestUserService_Register(t *testing.T) {
	f := newUserFixture()
	var stored domain.User
	var settings domain.Settings
	f.users.create = func(_ context.Context, u domain.User) (domain.User, error) {
		u.ID = "u1"
		stored = u
		return u, nil
	}
	f.settings.upsert = func(_ context.Context, s domain.Settings) (domain.Settings, error) {
		settings = s
		return s, nil
	}

	got, err := f.service().Register(context.Background(), domain.User{Name: " Ana ", Email: " Ana@Club.BR "})

	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, domain.PlanFree, stored.Plan)
	assert.Equal(t, "ana@club.br", stored.Email)
	assert.Equal(t, "Ana", stored.Name)
	assert.Equal(t, domain.PeriodStartFor(fixedNow), stored.Usage.PeriodStart)
	assert.Equal(t, domain.DefaultSettings("u1"), settings)
}

func TestUserService_Register_UnknownPlan(t *testing.T) {
	_, err := newUserFixture().service().Register(context.Background(), domain.User{Name: "Ana", Email: "a@b", Plan: "GOLD"})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	f := newUserFixture()
	f.users.create = func(context.Context, domain.User) (domain.User, error) {
		return domain.User{}, domain.ErrDuplicateKey
	}

	_, err := f.service().Register(context.Background(), domain.User{Name: "Ana", Email: "a@b"})

	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
}

// ---- Update / Login / Delete -----------------------------------------------

// TestUserService_Update_StripsImmutable verifies usage counters cannot be
// reset through a profile update and plans are normalized.
func TestUserService_Update_StripsImmutable(t *testing.T) {
	f := newUserFixture()
	var captured map[string]any
	f.users.update = func(_ context.Context, _ string, partial map[string]any) (domain.User, error) {
		captured = partial
		return domain.User{}, nil
	}

	_, err := f.service().Update(context.Background(), "u1", map[string]any{
		"usage": map[string]any{"generations_used": 0},
		"id":    "other",
		"plan":  "pro",
		"phone": "+55 48 99999-0000",
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"plan": "PRO", "phone": "+55 48 99999-0000"}, captured)
}

func TestUserService_Login(t *testing.T) {
	f := newUserFixture()
	f.users.modify = func(ctx context.Context, id string, fn func(*domain.User) error) (domain.User, error) {
		u, _ := existingUser(ctx, id)
		return u, fn(&u)
	}

	got, err := f.service().Login(context.Background(), "u1")

	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.Equal(t, fixedNow, *got.LastLoginAt)
	require.Len(t, f.tracker.events, 1)
	assert.Equal(t, domain.EventLogin, f.tracker.events[0].Type)
}

// TestUserService_Delete_Cascades verifies owned records go before the user.
func TestUserService_Delete_Cascades(t *testing.T) {
	f := newUserFixture()
	var deleted []string
	record := func(prefix string) func(context.Context, string) error {
		return func(_ context.Context, id string) error {
			deleted = append(deleted, prefix+":"+id)
			return nil
		}
	}
	f.favorites.byUser = func(context.Context, string) ([]domain.Favorite, error) {
		return []domain.Favorite{{ID: "f1"}}, nil
	}
	f.roteiros.byUser = func(context.Context, string) ([]domain.Roteiro, error) {
		return []domain.Roteiro{{ID: "r1"}, {ID: "r2"}}, nil
	}
	f.favorites.delete = record("favorite")
	f.roteiros.delete = record("roteiro")
	f.settings.delete = record("settings")
	f.users.delete = record("user")

	require.NoError(t, f.service().Delete(context.Background(), "u1"))

	assert.Equal(t, []string{"favorite:f1", "roteiro:r1", "roteiro:r2", "settings:u1", "user:u1"}, deleted)
}

// ---- Settings --------------------------------------------------------------

func TestUserService_Settings_DefaultsWhenMissing(t *testing.T) {
	f := newUserFixture()
	f.settings.get = notFound[domain.Settings]
	f.users.get = existingUser

	got, err := f.service().Settings(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings("u1"), got)
}

func TestUserService_Settings_UnknownUser(t *testing.T) {
	f := newUserFixture()
	f.settings.get = notFound[domain.Settings]
	f.users.get = notFound[domain.User]

	_, err := f.service().Settings(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestUserService_SaveSettings_FillsDefaults verifies blank fields take the
// defaults and ownership cannot be redirected.
func TestUserService_SaveSettings_FillsDefaults(t *testing.T) {
	f := newUserFixture()
	f.users.get = existingUser
	f.settings.upsert = func(_ context.Context, s domain.Settings) (domain.Settings, error) { return s, s.Validate() }

	got, err := f.service().SaveSettings(context.Background(), "u1", domain.Settings{UserID: "u2", Theme: "light"})

	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "light", got.Theme)
	assert.Equal(t, "pt-BR", got.Language)
	assert.Equal(t, "metric", got.Units)
	assert.Equal(t, 200.0, got.DefaultDistanceKm)
}

func TestUserService_SaveSettings_InvalidUnits(t *testing.T) {
	f := newUserFixture()
	f.users.get = existingUser
	f.settings.upsert = func(_ context.Context, s domain.Settings) (domain.Settings, error) { return s, s.Validate() }

	_, err := f.service().SaveSettings(context.Background(), "u1", domain.Settings{Units: "furlongs"})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- Favorites -------------------------------------------------------------

func TestUserService_AddFavorite(t *testing.T) {
	f := newUserFixture()
	f.users.get = existingUser
	f.favorites.byUser = func(context.Context, string) ([]domain.Favorite, error) { return nil, nil }
	f.favorites.create = func(_ context.Context, fav domain.Favorite) (domain.Favorite, error) {
		fav.ID = "f1"
		return fav, nil
	}

	got, err := f.service().AddFavorite(context.Background(), "u1", "Ubatuba")

	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)
	assert.Equal(t, "Ubatuba", got.DestinationName)
	require.Len(t, f.tracker.events, 1)
	assert.Equal(t, "Ubatuba", f.tracker.events[0].Props["destination"])
}

func TestUserService_AddFavorite_Existing(t *testing.T) {
	f := newUserFixture()
	f.users.get = existingUser
	existing := domain.Favorite{ID: "f0", UserID: "u1", DestinationName: "Ubatuba"}
	f.favorites.byUser = func(context.Context, string) ([]domain.Favorite, error) {
		return []domain.Favorite{existing}, nil
	}

	got, err := f.service().AddFavorite(context.Background(), "u1", "Ubatuba")

	require.NoError(t, err)
	assert.Equal(t, existing, got)
	assert.Empty(t, f.tracker.events)
}

func TestUserService_AddFavorite_UnknownDestination(t *testing.T) {
	f := newUserFixture()
	f.users.get = existingUser

	_, err := f.service().AddFavorite(context.Background(), "u1", "Atlantis")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestUserService_RemoveFavorite_OtherUser verifies a favorite owned by
// someone else is reported as missing and left alone.
func TestUserService_RemoveFavorite_OtherUser(t *testing.T) {
	f := newUserFixture()
	f.favorites.get = func(context.Context, string) (domain.Favorite, error) {
		return domain.Favorite{ID: "f1", UserID: "u2"}, nil
	}

	err := f.service().RemoveFavorite(context.Background(), "u1", "f1")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_RemoveFavorite(t *testing.T) {
	f := newUserFixture()
	f.favorites.get = func(context.Context, string) (domain.Favorite, error) {
		return domain.Favorite{ID: "f1", UserID: "u1"}, nil
	}
	var deleted string
	f.favorites.delete = func(_ context.Context, id string) error {
		deleted = id
		return nil
	}

	require.NoError(t, f.service().RemoveFavorite(context.Background(), "u1", "f1"))
	assert.Equal(t, "f1", deleted)
}
