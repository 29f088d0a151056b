package datasync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/store"
)

// schema tells a Collection how to handle one record type.
type schema[T any] struct {
	table domain.Table
	id    func(*T) *string
	// created and updated point at the record's timestamps; either may be
	// nil when the type has no such field.
	created  func(*T) *time.Time
	updated  func(*T) *time.Time
	status   func(*T) *domain.SyncStatus
	validate func(T) error
	// index returns the indexed columns stored beside the document.
	index func(T) (userID, email string)
}

// Collection is durable CRUD over one table. Every successful create, update
// or upsert is mirrored into the sync queue. Deletes are not replicated.
type Collection[T any] struct {
	m *Manager
	s schema[T]
}

func newCollection[T any](m *Manager, s schema[T]) *Collection[T] {
	return &Collection[T]{m: m, s: s}
}

// Create stores v with a generated id (when empty), missing timestamps filled
// in and a pending sync status.
func (c *Collection[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	if id := c.s.id(&v); *id == "" {
		*id = uuid.NewString()
	}
	now := c.m.now()
	c.stamp(&v, now, false)
	*c.s.status(&v) = domain.SyncPending

	if err := c.s.validate(v); err != nil {
		return zero, fmt.Errorf("datasync.%s.Create: %w", c.s.table, err)
	}
	doc, err := c.toDoc(v, now)
	if err != nil {
		return zero, fmt.Errorf("datasync.%s.Create: %w", c.s.table, err)
	}
	if err := c.m.store.Insert(ctx, c.s.table, doc); err != nil {
		return zero, fmt.Errorf("datasync.%s.Create: %w", c.s.table, err)
	}

	c.m.enqueue(c.s.table, domain.OpCreate, doc.Data, now)
	return v, nil
}

// Get returns the record with id, or domain.ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := c.m.store.Get(ctx, c.s.table, id)
	if err != nil {
		return zero, fmt.Errorf("datasync.%s.Get: %w", c.s.table, err)
	}
	v, err := decode[T](doc.Data)
	if err != nil {
		return zero, fmt.Errorf("datasync.%s.Get: %w", c.s.table, err)
	}
	return v, nil
}

// Query returns the records matching q. In degraded storage mode only the
// zero Query is supported; anything else returns domain.ErrQueryUnsupported.
func (c *Collection[T]) Query(ctx context.Context, q domain.Query) ([]T, error) {
	docs, err := c.m.store.Query(ctx, c.s.table, q)
	if err != nil {
		return nil, fmt.Errorf("datasync.%s.Query: %w", c.s.table, err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := decode[T](d.Data)
		if err != nil {
			return nil, fmt.Errorf("datasync.%s.Query: %w", c.s.table, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ByUser lists the records owned by userID. Unlike Query it also works in
// degraded mode, by filtering the full table in memory.
func (c *Collection[T]) ByUser(ctx context.Context, userID string) ([]T, error) {
	out, err := c.Query(ctx, domain.ByUser(userID))
	if !errors.Is(err, domain.ErrQueryUnsupported) {
		return out, err
	}

	docs, err := c.m.store.Query(ctx, c.s.table, domain.Query{})
	if err != nil {
		return nil, fmt.Errorf("datasync.%s.ByUser: %w", c.s.table, err)
	}
	out = []T{}
	for _, d := range docs {
		if d.UserID != userID {
			continue
		}
		v, err := decode[T](d.Data)
		if err != nil {
			return nil, fmt.Errorf("datasync.%s.ByUser: %w", c.s.table, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Update merges partial over the stored record (JSON merge patch: nested
// objects merge, null removes a key), re-validates it and marks it pending.
// The id and creation time cannot be changed. Concurrent updates to the same
// record resolve as last write wins.
func (c *Collection[T]) Update(ctx context.Context, id string, partial map[string]any) (T, error) {
	var zero T
	patch, err := json.Marshal(partial)
	if err != nil {
		return zero, fmt.Errorf("datasync.%s.Update: %w: %v", c.s.table, domain.ErrValidation, err)
	}

	v, err := c.modify(ctx, id, func(current json.RawMessage) (T, error) {
		merged, err := runtime.JSONMerge(current, patch)
		if err != nil {
			return zero, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		next, err := decode[T](merged)
		if err != nil {
			return zero, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return next, nil
	})
	if err != nil {
		return zero, fmt.Errorf("datasync.%s.Update: %w", c.s.table, err)
	}
	return v, nil
}

// Modify applies fn to the stored record under the same rules as Update.
func (c *Collection[T]) Modify(ctx context.Context, id string, fn func(*T) error) (T, error) {
	var zero T
	v, err := c.modify(ctx, id, func(current json.RawMessage) (T, error) {
		next, err := decode[T](current)
		if err != nil {
			return zero, err
		}
		if err := fn(&next); err != nil {
			return zero, err
		}
		return next, nil
	})
	if err != nil {
		return zero, fmt.Errorf("datasync.%s.Modify: %w", c.s.table, err)
	}
	return v, nil
}

func (c *Collection[T]) modify(ctx context.Context, id string, apply func(json.RawMessage) (T, error)) (T, error) {
	var zero, result T
	now := c.m.now()

	doc, err := c.m.store.Update(ctx, c.s.table, id, func(current store.Document) (store.Document, error) {
		prev, err := decode[T](current.Data)
		if err != nil {
			return store.Document{}, err
		}
		next, err := apply(current.Data)
		if err != nil {
			return store.Document{}, err
		}
		*c.s.id(&next) = id
		if c.s.created != nil {
			*c.s.created(&next) = *c.s.created(&prev)
		}
		if c.s.updated != nil {
			*c.s.updated(&next) = now
		}
		*c.s.status(&next) = domain.SyncPending
		if err := c.s.validate(next); err != nil {
			return store.Document{}, err
		}
		result = next
		return c.toDoc(next, now)
	})
	if err != nil {
		return zero, err
	}

	c.m.enqueue(c.s.table, domain.OpUpdate, doc.Data, now)
	return result, nil
}

// Upsert inserts v or replaces the record with the same id. Used by import
// and legacy migration, so a repeated import never duplicates records.
// Timestamps already set on v are kept.
func (c *Collection[T]) Upsert(ctx context.Context, v T) (T, error) {
	var zero T
	if strings.TrimSpace(*c.s.id(&v)) == "" {
		return zero, fmt.Errorf("datasync.%s.Upsert: %w: id is required", c.s.table, domain.ErrValidation)
	}
	now := c.m.now()
	c.stamp(&v, now, true)
	*c.s.status(&v) = domain.SyncPending
	if err := c.s.validate(v); err != nil {
		return zero, fmt.Errorf("datasync.%s.Upsert: %w", c.s.table, err)
	}
	doc, err := c.toDoc(v, now)
	if err != nil {
		return zero, fmt.Errorf("datasync.%s.Upsert: %w", c.s.table, err)
	}
	if err := c.m.store.Upsert(ctx, c.s.table, doc); err != nil {
		return zero, fmt.Errorf("datasync.%s.Upsert: %w", c.s.table, err)
	}

	c.m.enqueue(c.s.table, domain.OpUpdate, doc.Data, now)
	return v, nil
}

// Delete removes the record. Deleting a missing id is not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.m.store.Delete(ctx, c.s.table, id); err != nil {
		return fmt.Errorf("datasync.%s.Delete: %w", c.s.table, err)
	}
	return nil
}

// stamp fills in timestamps for a write at now. Creation times already set
// are kept; update times are replaced unless keepUpdated is set and non-zero.
func (c *Collection[T]) stamp(v *T, now time.Time, keepUpdated bool) {
	if c.s.created != nil && c.s.created(v).IsZero() {
		*c.s.created(v) = now
	}
	if c.s.updated != nil && (!keepUpdated || c.s.updated(v).IsZero()) {
		*c.s.updated(v) = now
	}
}

func (c *Collection[T]) toDoc(v T, now time.Time) (store.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return store.Document{}, fmt.Errorf("marshal: %w", err)
	}
	created := now
	if c.s.created != nil {
		created = *c.s.created(&v)
	}
	userID, email := c.s.index(v)
	return store.Document{
		ID:        *c.s.id(&v),
		UserID:    userID,
		Email:     email,
		Data:      data,
		CreatedAt: created,
		UpdatedAt: now,
	}, nil
}

func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode: %w", err)
	}
	return v, nil
}
