package store_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/store"
)

// ---- helpers ---------------------------------------------------------------

func openSQLite(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "local.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns every Store implementation so contract tests run against both.
func backends(t *testing.T) map[string]store.Store {
	return map[string]store.Store{
		"sqlite": openSQLite(t),
		"memory": store.NewMemoryKV(),
	}
}

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func doc(id, userID string, created time.Time, data string) store.Document {
	return store.Document{
		ID:        id,
		UserID:    userID,
		Data:      json.RawMessage(data),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func ids(docs []store.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

// ---- contract tests (both backends) ----------------------------------------

func TestStore_InsertGet(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Insert(ctx, domain.TableRoteiros, doc("r1", "u1", base, `{"id":"r1","title":"Serra"}`)))

			got, err := s.Get(ctx, domain.TableRoteiros, "r1")

			require.NoError(t, err)
			assert.Equal(t, "u1", got.UserID)
			assert.JSONEq(t, `{"id":"r1","title":"Serra"}`, string(got.Data))
			assert.True(t, base.Equal(got.CreatedAt))
		})
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), domain.TableUsers, "missing")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStore_Insert_DuplicateID(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Insert(ctx, domain.TableRoteiros, doc("r1", "u1", base, `{}`)))

			err := s.Insert(ctx, domain.TableRoteiros, doc("r1", "u1", base, `{}`))

			assert.ErrorIs(t, err, domain.ErrDuplicateKey)
		})
	}
}

// TestStore_Insert_DuplicateEmail verifies one user per email in both modes.
func TestStore_Insert_DuplicateEmail(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := doc("u1", "", base, `{}`)
			a.Email = "ana@moto.club"
			b := doc("u2", "", base, `{}`)
			b.Email = "ana@moto.club"

			require.NoError(t, s.Insert(ctx, domain.TableUsers, a))
			err := s.Insert(ctx, domain.TableUsers, b)

			assert.ErrorIs(t, err, domain.ErrDuplicateKey)
		})
	}
}

func TestStore_Upsert_ReplacesAndKeepsCreatedAt(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Upsert(ctx, domain.TableRoteiros, doc("r1", "u1", base, `{"v":1}`)))

			later := doc("r1", "u1", base.Add(time.Hour), `{"v":2}`)
			require.NoError(t, s.Upsert(ctx, domain.TableRoteiros, later))

			got, err := s.Get(ctx, domain.TableRoteiros, "r1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":2}`, string(got.Data))
			assert.True(t, base.Equal(got.CreatedAt), "created_at survives upsert")

			all, err := s.Query(ctx, domain.TableRoteiros, domain.Query{})
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestStore_Update_AppliesFn(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Insert(ctx, domain.TableRoteiros, doc("r1", "u1", base, `{"rating":1}`)))

			got, err := s.Update(ctx, domain.TableRoteiros, "r1", func(d store.Document) (store.Document, error) {
				d.Data = json.RawMessage(`{"rating":5}`)
				d.UpdatedAt = base.Add(time.Minute)
				return d, nil
			})

			require.NoError(t, err)
			assert.JSONEq(t, `{"rating":5}`, string(got.Data))
			stored, err := s.Get(ctx, domain.TableRoteiros, "r1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"rating":5}`, string(stored.Data))
		})
	}
}

func TestStore_Update_NotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Update(context.Background(), domain.TableRoteiros, "nope", func(d store.Document) (store.Document, error) {
				t.Fatal("fn must not run for a missing document")
				return d, nil
			})
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Insert(ctx, domain.TableFavorites, doc("f1", "u1", base, `{}`)))

			require.NoError(t, s.Delete(ctx, domain.TableFavorites, "f1"))
			require.NoError(t, s.Delete(ctx, domain.TableFavorites, "f1"))

			_, err := s.Get(ctx, domain.TableFavorites, "f1")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStore_DeleteExpired(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			past, future := base.Add(-time.Minute), base.Add(time.Minute)
			stale := doc("old", "", base, `{}`)
			stale.ExpiresAt = &past
			fresh := doc("new", "", base, `{}`)
			fresh.ExpiresAt = &future
			require.NoError(t, s.Insert(ctx, domain.TableCache, stale))
			require.NoError(t, s.Insert(ctx, domain.TableCache, fresh))

			n, err := s.DeleteExpired(ctx, domain.TableCache, base)

			require.NoError(t, err)
			assert.Equal(t, 1, n)
			_, err = s.Get(ctx, domain.TableCache, "old")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			_, err = s.Get(ctx, domain.TableCache, "new")
			assert.NoError(t, err)
		})
	}
}

func TestStore_Meta(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.GetMeta(ctx, "migration.legacy.v1")
			require.ErrorIs(t, err, domain.ErrNotFound)

			require.NoError(t, s.SetMeta(ctx, "migration.legacy.v1", "done"))
			require.NoError(t, s.SetMeta(ctx, "migration.legacy.v1", "done-again"))

			v, err := s.GetMeta(ctx, "migration.legacy.v1")
			require.NoError(t, err)
			assert.Equal(t, "done-again", v)
		})
	}
}

func TestStore_UnknownTable(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Insert(context.Background(), domain.Table("trips"), doc("x", "", base, `{}`))
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

// ---- backend specifics -----------------------------------------------------

func TestMemoryKV_QueryUnsupported(t *testing.T) {
	s := store.NewMemoryKV()

	_, err := s.Query(context.Background(), domain.TableRoteiros, domain.ByUser("u1"))

	assert.ErrorIs(t, err, domain.ErrQueryUnsupported)
	assert.False(t, s.Capabilities().IndexedQuery)
}

func TestMemoryKV_ListsInCreationOrder(t *testing.T) {
	s := store.NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, domain.TableRoteiros, doc("b", "u1", base.Add(time.Second), `{}`)))
	require.NoError(t, s.Insert(ctx, domain.TableRoteiros, doc("a", "u1", base, `{}`)))

	got, err := s.Query(ctx, domain.TableRoteiros, domain.Query{})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestOpenSQLite_BadPath(t *testing.T) {
	_, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "local.db"), zap.NewNop())

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
