// Package service contains the business logic for the rolê planner API.
// Services validate inputs, enforce business rules, and orchestrate calls into
// the local data manager. No storage code lives here: services depend on the
// Records interface, not on datasync or store implementations.
package service

import (
	"context"
	"time"

	"github.com/motoclube/roleplanner/internal/domain"
)

// Records is the per-entity contract of the local data manager.
// datasync.Collection satisfies it for every entity type.
type Records[T any] interface {
	Create(ctx context.Context, v T) (T, error)
	Get(ctx context.Context, id string) (T, error)
	Query(ctx context.Context, q domain.Query) ([]T, error)
	ByUser(ctx context.Context, userID string) ([]T, error)
	Update(ctx context.Context, id string, partial map[string]any) (T, error)
	Modify(ctx context.Context, id string, fn func(*T) error) (T, error)
	Upsert(ctx context.Context, v T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Tracker records analytics events. AnalyticsService implements it.
type Tracker interface {
	Track(ctx context.Context, userID, eventType string, props map[string]any) (domain.AnalyticsEvent, error)
}

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}
