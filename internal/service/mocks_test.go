package service_test

import (
	"context"
	"time"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/service"
)

// ---- mock Records ----------------------------------------------------------

// mockRecords is a hand-written test double for service.Records. Unset
// function fields panic, so each test only wires what it expects to be called.
type mockRecords[T any] struct {
	create func(ctx context.Context, v T) (T, error)
	get    func(ctx context.Context, id string) (T, error)
	query  func(ctx context.Context, q domain.Query) ([]T, error)
	byUser func(ctx context.Context, userID string) ([]T, error)
	update func(ctx context.Context, id string, partial map[string]any) (T, error)
	modify func(ctx context.Context, id string, fn func(*T) error) (T, error)
	upsert func(ctx context.Context, v T) (T, error)
	delete func(ctx context.Context, id string) error
}

func (m *mockRecords[T]) Create(ctx context.Context, v T) (T, error) { return m.create(ctx, v) }
func (m *mockRecords[T]) Get(ctx context.Context, id string) (T, error) {
	return m.get(ctx, id)
}
func (m *mockRecords[T]) Query(ctx context.Context, q domain.Query) ([]T, error) {
	return m.query(ctx, q)
}
func (m *mockRecords[T]) ByUser(ctx context.Context, userID string) ([]T, error) {
	return m.byUser(ctx, userID)
}
func (m *mockRecords[T]) Update(ctx context.Context, id string, partial map[string]any) (T, error) {
	return m.update(ctx, id, partial)
}
func (m *mockRecords[T]) Modify(ctx context.Context, id string, fn func(*T) error) (T, error) {
	return m.modify(ctx, id, fn)
}
func (m *mockRecords[T]) Upsert(ctx context.Context, v T) (T, error) { return m.upsert(ctx, v) }
func (m *mockRecords[T]) Delete(ctx context.Context, id string) error {
	return m.delete(ctx, id)
}

// compile-time checks
var (
	_ service.Records[domain.User]    = (*mockRecords[domain.User])(nil)
	_ service.Records[domain.Roteiro] = (*mockRecords[domain.Roteiro])(nil)
)

// ---- mock Tracker ----------------------------------------------------------

type trackedEvent struct {
	UserID string
	Type   string
	Props  map[string]any
}

// mockTracker records every Track call.
type mockTracker struct {
	events []trackedEvent
	err    error
}

var _ service.Tracker = (*mockTracker)(nil)

func (m *mockTracker) Track(_ context.Context, userID, eventType string, props map[string]any) (domain.AnalyticsEvent, error) {
	m.events = append(m.events, trackedEvent{UserID: userID, Type: eventType, Props: props})
	return domain.AnalyticsEvent{UserID: userID, Type: eventType, Properties: props}, m.err
}

// ---- helpers ---------------------------------------------------------------

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() service.Clock {
	return func() time.Time { return fixedNow }
}

func notFound[T any](context.Context, string) (T, error) {
	var zero T
	return zero, domain.ErrNotFound
}
