package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/motoclube/roleplanner/internal/domain"
)

// MemoryKV is the degraded key-value Store. It keeps documents in process
// memory, supports only whole-table listing, and loses everything on restart.
type MemoryKV struct {
	mu sync.Mutex // serialises writes so Update and uniqueness checks are atomic
	c  *cache.Cache
}

// NewMemoryKV returns an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	// Entries never expire on their own: cache TTLs are enforced by
	// DeleteExpired like in the SQLite store.
	return &MemoryKV{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryKV) Capabilities() Capabilities {
	return Capabilities{IndexedQuery: false, Durable: false}
}

func (m *MemoryKV) Close() error {
	m.c.Flush()
	return nil
}

func docKey(table domain.Table, id string) string {
	return string(table) + "/" + id
}

func (m *MemoryKV) Insert(_ context.Context, table domain.Table, doc Document) error {
	if err := checkTable(table); err != nil {
		return fmt.Errorf("store.MemoryKV.Insert: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkEmail(table, doc); err != nil {
		return fmt.Errorf("store.MemoryKV.Insert: %w", err)
	}
	if err := m.c.Add(docKey(table, doc.ID), doc, cache.NoExpiration); err != nil {
		return fmt.Errorf("store.MemoryKV.Insert: %w: %s %q", domain.ErrDuplicateKey, table, doc.ID)
	}
	return nil
}

func (m *MemoryKV) Upsert(_ context.Context, table domain.Table, doc Document) error {
	if err := checkTable(table); err != nil {
		return fmt.Errorf("store.MemoryKV.Upsert: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkEmail(table, doc); err != nil {
		return fmt.Errorf("store.MemoryKV.Upsert: %w", err)
	}
	if existing, ok := m.get(table, doc.ID); ok {
		doc.CreatedAt = existing.CreatedAt
	}
	m.c.Set(docKey(table, doc.ID), doc, cache.NoExpiration)
	return nil
}

func (m *MemoryKV) Get(_ context.Context, table domain.Table, id string) (Document, error) {
	doc, ok := m.get(table, id)
	if !ok {
		return Document{}, fmt.Errorf("store.MemoryKV.Get: %s %q: %w", table, id, domain.ErrNotFound)
	}
	return doc, nil
}

func (m *MemoryKV) Update(_ context.Context, table domain.Table, id string, fn func(Document) (Document, error)) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.get(table, id)
	if !ok {
		return Document{}, fmt.Errorf("store.MemoryKV.Update: %s %q: %w", table, id, domain.ErrNotFound)
	}
	next, err := fn(current)
	if err != nil {
		return Document{}, fmt.Errorf("store.MemoryKV.Update: %w", err)
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	if err := m.checkEmail(table, next); err != nil {
		return Document{}, fmt.Errorf("store.MemoryKV.Update: %w", err)
	}
	m.c.Set(docKey(table, id), next, cache.NoExpiration)
	return next, nil
}

func (m *MemoryKV) Delete(_ context.Context, table domain.Table, id string) error {
	m.c.Delete(docKey(table, id))
	return nil
}

// Query only supports the zero Query (list the whole table in creation order).
func (m *MemoryKV) Query(_ context.Context, table domain.Table, q domain.Query) ([]Document, error) {
	if !q.IsZero() {
		return nil, fmt.Errorf("store.MemoryKV.Query: %w", domain.ErrQueryUnsupported)
	}
	return m.list(table), nil
}

func (m *MemoryKV) DeleteExpired(_ context.Context, table domain.Table, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, doc := range m.list(table) {
		if doc.ExpiresAt != nil && !now.Before(*doc.ExpiresAt) {
			m.c.Delete(docKey(table, doc.ID))
			n++
		}
	}
	return n, nil
}

func (m *MemoryKV) GetMeta(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get("meta/" + key)
	if !ok {
		return "", fmt.Errorf("store.MemoryKV.GetMeta %q: %w", key, domain.ErrNotFound)
	}
	return v.(string), nil
}

func (m *MemoryKV) SetMeta(_ context.Context, key, value string) error {
	m.c.Set("meta/"+key, value, cache.NoExpiration)
	return nil
}

func (m *MemoryKV) get(table domain.Table, id string) (Document, bool) {
	v, ok := m.c.Get(docKey(table, id))
	if !ok {
		return Document{}, false
	}
	return v.(Document), true
}

func (m *MemoryKV) list(table domain.Table) []Document {
	prefix := string(table) + "/"
	docs := []Document{}
	for k, item := range m.c.Items() {
		if strings.HasPrefix(k, prefix) {
			docs = append(docs, item.Object.(Document))
		}
	}
	slices.SortFunc(docs, func(a, b Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return docs
}

// checkEmail enforces one user per email without an index. Callers hold mu.
func (m *MemoryKV) checkEmail(table domain.Table, doc Document) error {
	if table != domain.TableUsers || doc.Email == "" {
		return nil
	}
	for _, other := range m.list(table) {
		if other.ID != doc.ID && other.Email == doc.Email {
			return fmt.Errorf("%w: email %q already registered", domain.ErrDuplicateKey, doc.Email)
		}
	}
	return nil
}
