// Package store is the on-device persistence layer. Records are stored as JSON
// documents keyed by id, with a few indexed columns beside the document.
//
// Two implementations exist: SQLite (structured, indexed, durable) and
// MemoryKV, the degraded key-value mode used when the database cannot be
// opened. Only the data manager in internal/datasync talks to a Store.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/motoclube/roleplanner/internal/domain"
)

// Document is one stored record.
// UserID, Email and ExpiresAt mirror fields of Data so they can be indexed;
// empty values are stored as NULL.
type Document struct {
	ID        string
	UserID    string
	Email     string
	ExpiresAt *time.Time
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Capabilities describes what the active backend supports.
type Capabilities struct {
	// IndexedQuery is false in degraded mode, where only listing a whole
	// table is possible.
	IndexedQuery bool `json:"indexed_query"`
	// Durable is false when records are lost on restart.
	Durable bool `json:"durable"`
}

// Store defines the persistence operations for record tables.
// All methods accept a context so callers can enforce timeouts.
type Store interface {
	// Insert adds a new document. Returns domain.ErrDuplicateKey if the id, or
	// a user's email, is already taken.
	Insert(ctx context.Context, table domain.Table, doc Document) error
	// Upsert inserts doc or replaces the document with the same id.
	Upsert(ctx context.Context, table domain.Table, doc Document) error
	// Get returns the document with the given id, or domain.ErrNotFound.
	Get(ctx context.Context, table domain.Table, id string) (Document, error)
	// Update reads the document, applies fn and writes the result in one
	// transaction. Returns domain.ErrNotFound if the document does not exist.
	Update(ctx context.Context, table domain.Table, id string, fn func(Document) (Document, error)) (Document, error)
	// Delete removes a document. Deleting a missing id is not an error.
	Delete(ctx context.Context, table domain.Table, id string) error
	// Query returns the documents matching q.
	// Returns domain.ErrQueryUnsupported when the backend cannot evaluate q.
	Query(ctx context.Context, table domain.Table, q domain.Query) ([]Document, error)
	// DeleteExpired removes documents whose ExpiresAt is at or before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, table domain.Table, now time.Time) (int, error)
	// GetMeta returns a flag value, or domain.ErrNotFound.
	GetMeta(ctx context.Context, key string) (string, error)
	// SetMeta stores a flag value.
	SetMeta(ctx context.Context, key, value string) error
	Capabilities() Capabilities
	Close() error
}

var knownTables = map[domain.Table]struct{}{
	domain.TableUsers:         {},
	domain.TableRoteiros:      {},
	domain.TableFavorites:     {},
	domain.TableAnalytics:     {},
	domain.TableSettings:      {},
	domain.TableCache:         {},
	domain.TableNotifications: {},
	domain.TableBilling:       {},
}

func checkTable(table domain.Table) error {
	if _, ok := knownTables[table]; !ok {
		return fmt.Errorf("%w: unknown table %q", domain.ErrValidation, table)
	}
	return nil
}
