// Package handler implements the HTTP handlers for the rolê planner API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, roteiro.go, etc.) but share the same Server struct so they
// can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/datasync"
	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/service"
)

// Catalog is the read side of the destination matching engine.
type Catalog interface {
	Catalog(category domain.Category) []domain.Destination
	Search(criteria domain.SearchCriteria) ([]domain.MatchResult, error)
}

// Generator runs the generation flow for a rider.
type Generator interface {
	Generate(ctx context.Context, userID string, criteria domain.SearchCriteria) (service.Generation, error)
}

// UserServicer defines the account operations the user handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching storage.
type UserServicer interface {
	Register(ctx context.Context, u domain.User) (domain.User, error)
	Get(ctx context.Context, id string) (domain.User, error)
	Update(ctx context.Context, id string, partial map[string]any) (domain.User, error)
	Login(ctx context.Context, id string) (domain.User, error)
	Delete(ctx context.Context, id string) error
	Settings(ctx context.Context, userID string) (domain.Settings, error)
	SaveSettings(ctx context.Context, userID string, st domain.Settings) (domain.Settings, error)
	Favorites(ctx context.Context, userID string) ([]domain.Favorite, error)
	AddFavorite(ctx context.Context, userID, destinationName string) (domain.Favorite, error)
	RemoveFavorite(ctx context.Context, userID, favoriteID string) error
}

// RoteiroServicer defines the saved-itinerary operations.
type RoteiroServicer interface {
	Save(ctx context.Context, r domain.Roteiro) (domain.Roteiro, error)
	Get(ctx context.Context, id string) (domain.Roteiro, error)
	List(ctx context.Context, p service.ListParams) ([]domain.Roteiro, error)
	Update(ctx context.Context, id string, partial map[string]any) (domain.Roteiro, error)
	Rate(ctx context.Context, id string, rating float64) (domain.Roteiro, error)
	Delete(ctx context.Context, id string) error
	Tags(ctx context.Context, userID, prefix string) ([]domain.TagCount, error)
}

// AnalyticsServicer records events and builds reports.
type AnalyticsServicer interface {
	Track(ctx context.Context, userID, eventType string, props map[string]any) (domain.AnalyticsEvent, error)
	Summary(ctx context.Context, period domain.Period) (domain.AnalyticsSummary, error)
	Export(ctx context.Context, period domain.Period) (domain.AnalyticsExport, error)
}

// Exporter produces the roteiro table and the per-user data bundle.
type Exporter interface {
	Rows(ctx context.Context, userID string) ([]domain.ExportRow, error)
	UserData(ctx context.Context, userID string) (domain.UserDataExport, error)
	Import(ctx context.Context, bundle domain.UserDataExport) (datasync.ImportReport, error)
}

// Syncer exposes the replication controls of the data manager.
type Syncer interface {
	Status() datasync.Status
	Flush(ctx context.Context) (int, error)
	SetOnline(online bool)
	Resume()
}

// Deps groups the Server collaborators. A nil dependency leaves its routes
// unmounted.
type Deps struct {
	Catalog   Catalog
	Generator Generator
	Users     UserServicer
	Roteiros  RoteiroServicer
	Analytics AnalyticsServicer
	Export    Exporter
	Sync      Syncer
	Logger    *zap.Logger
}

// Server holds the dependencies shared by every handler.
type Server struct {
	catalog   Catalog
	generator Generator
	users     UserServicer
	roteiros  RoteiroServicer
	analytics AnalyticsServicer
	export    Exporter
	sync      Syncer
	logger    *zap.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Server{
		catalog:   d.Catalog,
		generator: d.Generator,
		users:     d.Users,
		roteiros:  d.Roteiros,
		analytics: d.Analytics,
		export:    d.Export,
		sync:      d.Sync,
		logger:    d.Logger,
	}
}

// Routes returns the API router. Cross-cutting middleware (CORS, logging,
// metrics) is applied by the caller.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	if s.catalog != nil {
		r.Get("/destinations", s.ListDestinations)
		r.Get("/destinations/search", s.SearchDestinations)
	}
	if s.generator != nil {
		r.Post("/generate", s.Generate)
	}
	if s.users != nil {
		r.Post("/users", s.CreateUser)
	}
	if s.users != nil || s.export != nil {
		r.Route("/users/{id}", func(r chi.Router) {
			if s.export != nil {
				r.Get("/export", s.ExportUserData)
			}
			if s.users == nil {
				return
			}
			r.Get("/", s.GetUser)
			r.Patch("/", s.UpdateUser)
			r.Delete("/", s.DeleteUser)
			r.Post("/login", s.LoginUser)
			r.Get("/settings", s.GetSettings)
			r.Put("/settings", s.PutSettings)
			r.Get("/favorites", s.ListFavorites)
			r.Post("/favorites", s.AddFavorite)
			r.Delete("/favorites/{favID}", s.RemoveFavorite)
		})
	}
	if s.export != nil {
		r.Post("/import", s.ImportUserData)
	}
	if s.roteiros != nil {
		r.Route("/roteiros", func(r chi.Router) {
			r.Post("/", s.CreateRoteiro)
			r.Get("/", s.ListRoteiros)
			r.Get("/tags", s.ListTags)
			if s.export != nil {
				r.Get("/export", s.ExportRoteiros)
			}
			r.Get("/{id}", s.GetRoteiro)
			r.Patch("/{id}", s.UpdateRoteiro)
			r.Delete("/{id}", s.DeleteRoteiro)
			r.Put("/{id}/rating", s.RateRoteiro)
		})
	}
	if s.analytics != nil {
		r.Post("/analytics/events", s.TrackEvent)
		r.Get("/analytics/summary", s.GetAnalyticsSummary)
		r.Get("/analytics/export", s.ExportAnalytics)
	}
	if s.sync != nil {
		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", s.GetSyncStatus)
			r.Post("/flush", s.FlushSync)
			r.Post("/online", s.SetOnline)
			r.Post("/offline", s.SetOffline)
			r.Post("/resume", s.ResumeSync)
		})
	}
	return r
}
