package datasync

import (
	"strings"
	"time"

	"github.com/motoclube/roleplanner/internal/domain"
)

var userSchema = schema[domain.User]{
	table:    domain.TableUsers,
	id:       func(u *domain.User) *string { return &u.ID },
	created:  func(u *domain.User) *time.Time { return &u.CreatedAt },
	updated:  func(u *domain.User) *time.Time { return &u.UpdatedAt },
	status:   func(u *domain.User) *domain.SyncStatus { return &u.SyncStatus },
	validate: domain.User.Validate,
	index: func(u domain.User) (string, string) {
		return u.ID, strings.ToLower(strings.TrimSpace(u.Email))
	},
}

var roteiroSchema = schema[domain.Roteiro]{
	table:    domain.TableRoteiros,
	id:       func(r *domain.Roteiro) *string { return &r.ID },
	created:  func(r *domain.Roteiro) *time.Time { return &r.CreatedAt },
	updated:  func(r *domain.Roteiro) *time.Time { return &r.UpdatedAt },
	status:   func(r *domain.Roteiro) *domain.SyncStatus { return &r.SyncStatus },
	validate: domain.Roteiro.Validate,
	index:    func(r domain.Roteiro) (string, string) { return r.UserID, "" },
}

var settingsSchema = schema[domain.Settings]{
	table:    domain.TableSettings,
	id:       func(s *domain.Settings) *string { return &s.ID },
	updated:  func(s *domain.Settings) *time.Time { return &s.UpdatedAt },
	status:   func(s *domain.Settings) *domain.SyncStatus { return &s.SyncStatus },
	validate: domain.Settings.Validate,
	index:    func(s domain.Settings) (string, string) { return s.UserID, "" },
}

var favoriteSchema = schema[domain.Favorite]{
	table:    domain.TableFavorites,
	id:       func(f *domain.Favorite) *string { return &f.ID },
	created:  func(f *domain.Favorite) *time.Time { return &f.CreatedAt },
	status:   func(f *domain.Favorite) *domain.SyncStatus { return &f.SyncStatus },
	validate: domain.Favorite.Validate,
	index:    func(f domain.Favorite) (string, string) { return f.UserID, "" },
}

var analyticsSchema = schema[domain.AnalyticsEvent]{
	table:    domain.TableAnalytics,
	id:       func(e *domain.AnalyticsEvent) *string { return &e.ID },
	created:  func(e *domain.AnalyticsEvent) *time.Time { return &e.Timestamp },
	status:   func(e *domain.AnalyticsEvent) *domain.SyncStatus { return &e.SyncStatus },
	validate: domain.AnalyticsEvent.Validate,
	index:    func(e domain.AnalyticsEvent) (string, string) { return e.UserID, "" },
}
