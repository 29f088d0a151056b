package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Table names a durable collection. The same names are used by the local
// schema and on the sync wire.
type Table string

const (
	TableUsers         Table = "users"
	TableRoteiros      Table = "roteiros"
	TableFavorites     Table = "favorites"
	TableAnalytics     Table = "analytics"
	TableSettings      Table = "settings"
	TableCache         Table = "cache"
	TableNotifications Table = "notifications"
	TableBilling       Table = "billing"
)

// SyncedTables are the tables whose writes are replicated to the remote system.
var SyncedTables = []Table{TableUsers, TableRoteiros, TableFavorites, TableAnalytics, TableSettings}

// Synced reports whether writes to t are replicated.
func (t Table) Synced() bool {
	for _, s := range SyncedTables {
		if s == t {
			return true
		}
	}
	return false
}

// Operation is the kind of write a SyncOperation replays.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// SyncOperation is one queued write awaiting delivery to the remote system.
// Data is a snapshot of the record taken at enqueue time.
type SyncOperation struct {
	Table     Table           `json:"table"`
	Operation Operation       `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// RecordID extracts the "id" field from the snapshot.
func (op SyncOperation) RecordID() (string, error) {
	var rec struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(op.Data, &rec); err != nil {
		return "", fmt.Errorf("%w: snapshot is not a JSON object: %v", ErrValidation, err)
	}
	if rec.ID == "" {
		return "", fmt.Errorf("%w: snapshot has no id", ErrValidation)
	}
	return rec.ID, nil
}

// Validate checks that the operation can be applied remotely.
func (op SyncOperation) Validate() error {
	if !op.Table.Synced() {
		return fmt.Errorf("%w: table %q is not synced", ErrValidation, op.Table)
	}
	if op.Operation != OpCreate && op.Operation != OpUpdate {
		return fmt.Errorf("%w: unknown operation %q", ErrValidation, op.Operation)
	}
	if op.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrValidation)
	}
	_, err := op.RecordID()
	return err
}

// CacheEntry is an opaque cached payload with an absolute expiry.
type CacheEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the entry is stale at now.
func (c CacheEntry) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
