package datasync

import (
	"context"
	"errors"
	"fmt"

	"github.com/motoclube/roleplanner/internal/domain"
)

// ExportUserData collects everything stored for userID into one bundle.
func (m *Manager) ExportUserData(ctx context.Context, userID string) (domain.UserDataExport, error) {
	u, err := m.Users.Get(ctx, userID)
	if err != nil {
		return domain.UserDataExport{}, fmt.Errorf("datasync.Manager.ExportUserData: %w", err)
	}

	roteiros, err := m.Roteiros.ByUser(ctx, userID)
	if err != nil {
		return domain.UserDataExport{}, fmt.Errorf("datasync.Manager.ExportUserData: %w", err)
	}
	favorites, err := m.Favorites.ByUser(ctx, userID)
	if err != nil {
		return domain.UserDataExport{}, fmt.Errorf("datasync.Manager.ExportUserData: %w", err)
	}
	events, err := m.Analytics.ByUser(ctx, userID)
	if err != nil {
		return domain.UserDataExport{}, fmt.Errorf("datasync.Manager.ExportUserData: %w", err)
	}

	var settings *domain.Settings
	s, err := m.Settings.Get(ctx, userID)
	switch {
	case err == nil:
		settings = &s
	case !errors.Is(err, domain.ErrNotFound):
		return domain.UserDataExport{}, fmt.Errorf("datasync.Manager.ExportUserData: %w", err)
	}

	return domain.UserDataExport{
		User:       u,
		Roteiros:   roteiros,
		Settings:   settings,
		Favorites:  favorites,
		Analytics:  events,
		ExportedAt: m.now(),
		Version:    domain.ExportVersion,
	}, nil
}

// ImportReport counts what an import wrote.
type ImportReport struct {
	Roteiros  int  `json:"roteiros"`
	Favorites int  `json:"favorites"`
	Analytics int  `json:"analytics"`
	Settings  bool `json:"settings"`
}

// ImportUserData upserts every record in bundle by id, so importing the same
// bundle twice leaves one copy of each record. Records that belong to another
// user are rejected.
func (m *Manager) ImportUserData(ctx context.Context, bundle domain.UserDataExport) (ImportReport, error) {
	var rep ImportReport
	if bundle.Version == "" {
		return rep, fmt.Errorf("datasync.Manager.ImportUserData: %w: version is required", domain.ErrValidation)
	}
	userID := bundle.User.ID
	if _, err := m.Users.Upsert(ctx, bundle.User); err != nil {
		return rep, fmt.Errorf("datasync.Manager.ImportUserData: user: %w", err)
	}

	for _, r := range bundle.Roteiros {
		if r.UserID != userID {
			return rep, fmt.Errorf("datasync.Manager.ImportUserData: %w: roteiro %q belongs to another user", domain.ErrValidation, r.ID)
		}
		if _, err := m.Roteiros.Upsert(ctx, r); err != nil {
			return rep, fmt.Errorf("datasync.Manager.ImportUserData: roteiro %q: %w", r.ID, err)
		}
		rep.Roteiros++
	}

	for _, f := range bundle.Favorites {
		if f.UserID != userID {
			return rep, fmt.Errorf("datasync.Manager.ImportUserData: %w: favorite %q belongs to another user", domain.ErrValidation, f.ID)
		}
		if _, err := m.Favorites.Upsert(ctx, f); err != nil {
			return rep, fmt.Errorf("datasync.Manager.ImportUserData: favorite %q: %w", f.ID, err)
		}
		rep.Favorites++
	}

	for _, e := range bundle.Analytics {
		if e.UserID != userID {
			return rep, fmt.Errorf("datasync.Manager.ImportUserData: %w: event %q belongs to another user", domain.ErrValidation, e.ID)
		}
		if _, err := m.Analytics.Upsert(ctx, e); err != nil {
			return rep, fmt.Errorf("datasync.Manager.ImportUserData: event %q: %w", e.ID, err)
		}
		rep.Analytics++
	}

	if bundle.Settings != nil {
		s := *bundle.Settings
		s.ID, s.UserID = userID, userID
		if _, err := m.Settings.Upsert(ctx, s); err != nil {
			return rep, fmt.Errorf("datasync.Manager.ImportUserData: settings: %w", err)
		}
		rep.Settings = true
	}
	return rep, nil
}

// RecordGeneration counts one itinerary generation against the user's plan,
// starting a fresh period when the calendar month has changed. The quota is
// checked in the same update that increments the counter, so concurrent
// generations cannot exceed it; the loser gets domain.ErrQuotaExceeded.
func (m *Manager) RecordGeneration(ctx context.Context, userID string) (domain.User, error) {
	now := m.now()
	u, err := m.Users.Modify(ctx, userID, func(u *domain.User) error {
		if !u.CanGenerate(now) {
			return fmt.Errorf("%w: plan %s allows %d per month",
				domain.ErrQuotaExceeded, u.Plan, u.Plan.MonthlyQuota())
		}
		u.Usage = u.Usage.Current(now)
		u.Usage.GenerationsUsed++
		return nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("datasync.Manager.RecordGeneration: %w", err)
	}
	return u, nil
}
