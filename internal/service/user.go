package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
)

// DestinationLookup resolves a catalog destination by name.
// matching.Engine implements it.
type DestinationLookup interface {
	ByName(name string) (domain.Destination, error)
}

// UserService implements the account, settings and favorites flows.
type UserService struct {
	users        Records[domain.User]
	settings     Records[domain.Settings]
	favorites    Records[domain.Favorite]
	roteiros     Records[domain.Roteiro]
	destinations DestinationLookup
	tracker      Tracker
	clock        Clock
	logger       *zap.Logger
}

// UserDeps groups the collaborators of UserService.
type UserDeps struct {
	Users        Records[domain.User]
	Settings     Records[domain.Settings]
	Favorites    Records[domain.Favorite]
	Roteiros     Records[domain.Roteiro]
	Destinations DestinationLookup
	Tracker      Tracker
	Clock        Clock
	Logger       *zap.Logger
}

// NewUserService constructs a UserService. Tracker and Logger may be nil.
func NewUserService(d UserDeps) *UserService {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &UserService{
		users:        d.Users,
		settings:     d.Settings,
		favorites:    d.Favorites,
		roteiros:     d.Roteiros,
		destinations: d.Destinations,
		tracker:      d.Tracker,
		clock:        d.Clock,
		logger:       d.Logger,
	}
}

// Register creates a user on the FREE plan unless another plan is given, with
// a fresh usage period and default settings.
// Returns domain.ErrValidation for a missing name or email and
// domain.ErrDuplicateKey when the email is already registered.
func (s *UserService) Register(ctx context.Context, u domain.User) (domain.User, error) {
	plan, err := domain.ParsePlan(string(u.Plan))
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Register: %w", err)
	}
	u.Plan = plan
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Usage = domain.Usage{PeriodStart: domain.PeriodStartFor(s.clock.now())}
	u.Settings = nil

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Register: %w", err)
	}
	if _, err := s.settings.Upsert(ctx, domain.DefaultSettings(created.ID)); err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Register: settings: %w", err)
	}
	return created, nil
}

// Get returns a user by ID.
// Returns domain.ErrNotFound if no user with that ID exists.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Get: %w", err)
	}
	return u, nil
}

// immutableUserFields cannot be changed through Update.
var immutableUserFields = []string{"id", "usage", "created_at", "settings", "sync_status"}

// Update merges partial into the stored profile. Usage counters and identity
// fields in partial are ignored.
func (s *UserService) Update(ctx context.Context, id string, partial map[string]any) (domain.User, error) {
	for _, k := range immutableUserFields {
		delete(partial, k)
	}
	if email, ok := partial["email"].(string); ok {
		partial["email"] = strings.ToLower(strings.TrimSpace(email))
	}
	if plan, ok := partial["plan"].(string); ok {
		p, err := domain.ParsePlan(plan)
		if err != nil {
			return domain.User{}, fmt.Errorf("service.UserService.Update: %w", err)
		}
		partial["plan"] = string(p)
	}

	u, err := s.users.Update(ctx, id, partial)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Update: %w", err)
	}
	return u, nil
}

// Login stamps the last login time and records a login event.
func (s *UserService) Login(ctx context.Context, id string) (domain.User, error) {
	now := s.clock.now()
	u, err := s.users.Modify(ctx, id, func(u *domain.User) error {
		u.LastLoginAt = &now
		return nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Login: %w", err)
	}
	s.track(ctx, id, domain.EventLogin, nil)
	return u, nil
}

// Delete removes the account together with its settings, favorites and
// roteiros. Analytics events are kept. Deleting a missing user is not an error.
func (s *UserService) Delete(ctx context.Context, id string) error {
	favorites, err := s.favorites.ByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("service.UserService.Delete: %w", err)
	}
	for _, f := range favorites {
		if err := s.favorites.Delete(ctx, f.ID); err != nil {
			return fmt.Errorf("service.UserService.Delete: %w", err)
		}
	}
	roteiros, err := s.roteiros.ByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("service.UserService.Delete: %w", err)
	}
	for _, r := range roteiros {
		if err := s.roteiros.Delete(ctx, r.ID); err != nil {
			return fmt.Errorf("service.UserService.Delete: %w", err)
		}
	}
	if err := s.settings.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.UserService.Delete: %w", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.UserService.Delete: %w", err)
	}
	return nil
}

// Settings returns the user's settings, or the defaults if none were saved.
// Returns domain.ErrNotFound if the user does not exist.
func (s *UserService) Settings(ctx context.Context, userID string) (domain.Settings, error) {
	st, err := s.settings.Get(ctx, userID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Settings{}, fmt.Errorf("service.UserService.Settings: %w", err)
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return domain.Settings{}, fmt.Errorf("service.UserService.Settings: %w", err)
	}
	return domain.DefaultSettings(userID), nil
}

// SaveSettings replaces the user's settings. Blank text fields and a zero
// default distance take the default values.
func (s *UserService) SaveSettings(ctx context.Context, userID string, st domain.Settings) (domain.Settings, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return domain.Settings{}, fmt.Errorf("service.UserService.SaveSettings: %w", err)
	}
	def := domain.DefaultSettings(userID)
	st.ID, st.UserID = userID, userID
	st.UpdatedAt = s.clock.now()
	if st.Theme == "" {
		st.Theme = def.Theme
	}
	if st.Language == "" {
		st.Language = def.Language
	}
	if st.Units == "" {
		st.Units = def.Units
	}
	if st.DefaultDistanceKm == 0 {
		st.DefaultDistanceKm = def.DefaultDistanceKm
	}

	saved, err := s.settings.Upsert(ctx, st)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("service.UserService.SaveSettings: %w", err)
	}
	return saved, nil
}

// Favorites lists the user's favorite destinations.
func (s *UserService) Favorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	favs, err := s.favorites.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.UserService.Favorites: %w", err)
	}
	if favs == nil {
		return []domain.Favorite{}, nil
	}
	return favs, nil
}

// AddFavorite marks a catalog destination as a favorite. Adding the same
// destination twice returns the existing favorite.
// Returns domain.ErrNotFound if the user or the destination does not exist.
func (s *UserService) AddFavorite(ctx context.Context, userID, destinationName string) (domain.Favorite, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return domain.Favorite{}, fmt.Errorf("service.UserService.AddFavorite: %w", err)
	}
	d, err := s.destinations.ByName(destinationName)
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("service.UserService.AddFavorite: %w", err)
	}

	existing, err := s.favorites.ByUser(ctx, userID)
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("service.UserService.AddFavorite: %w", err)
	}
	if i := slices.IndexFunc(existing, func(f domain.Favorite) bool { return f.DestinationName == d.Name }); i >= 0 {
		return existing[i], nil
	}

	fav, err := s.favorites.Create(ctx, domain.Favorite{UserID: userID, DestinationName: d.Name})
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("service.UserService.AddFavorite: %w", err)
	}
	s.track(ctx, userID, domain.EventFavorite, map[string]any{"destination": d.Name})
	return fav, nil
}

// RemoveFavorite deletes one of the user's favorites.
// Returns domain.ErrNotFound if the favorite does not belong to the user.
func (s *UserService) RemoveFavorite(ctx context.Context, userID, favoriteID string) error {
	fav, err := s.favorites.Get(ctx, favoriteID)
	if err != nil {
		return fmt.Errorf("service.UserService.RemoveFavorite: %w", err)
	}
	if fav.UserID != userID {
		return fmt.Errorf("service.UserService.RemoveFavorite: %w", domain.ErrNotFound)
	}
	if err := s.favorites.Delete(ctx, favoriteID); err != nil {
		return fmt.Errorf("service.UserService.RemoveFavorite: %w", err)
	}
	return nil
}

func (s *UserService) track(ctx context.Context, userID, eventType string, props map[string]any) {
	if s.tracker == nil {
		return
	}
	if _, err := s.tracker.Track(ctx, userID, eventType, props); err != nil {
		s.logger.Warn("tracking event failed", zap.String("type", eventType), zap.Error(err))
	}
}
