// Package remote is the receiving side of replication: the Postgres store,
// service and HTTP handler behind cmd/syncd.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/motoclube/roleplanner/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test;
// Begin on a pgx.Tx opens a savepoint, so ApplyBatch still runs atomically.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Record is one replicated record as stored remotely.
type Record struct {
	Table      domain.Table     `json:"table"`
	ID         string           `json:"id"`
	Operation  domain.Operation `json:"operation"`
	Data       json.RawMessage  `json:"data"`
	ClientTS   time.Time        `json:"client_ts"`
	ReceivedAt time.Time        `json:"received_at"`
}

// BatchResult reports how a batch was applied.
// Stale counts operations ignored because a newer snapshot was already stored.
type BatchResult struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Accepted int       `json:"accepted"`
	Applied  int       `json:"applied"`
	Stale    int       `json:"stale"`
}

// Repo persists replicated records. The service layer depends on this
// interface so it can be unit-tested with a mock.
type Repo interface {
	// ApplyBatch stores every operation of a validated batch in one
	// transaction and records the batch in the audit table.
	ApplyBatch(ctx context.Context, subject string, ops []domain.SyncOperation) (BatchResult, error)

	// Get returns one stored record.
	// Returns domain.ErrNotFound if nothing was replicated for (table, id).
	Get(ctx context.Context, table domain.Table, id string) (Record, error)
}

type pgRepo struct {
	db db
}

// NewRepo constructs a Repo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewRepo(db db) Repo {
	return &pgRepo{db: db}
}

const insertBatch = `
	INSERT INTO sync_batches (id, subject, op_count)
	VALUES (@id, @subject, @op_count)`

// upsertRecord only replaces a stored row when the incoming client timestamp
// is newer, so replaying an old batch never rolls a record back.
const upsertRecord = `
	INSERT INTO synced_records (table_name, record_id, operation, data, client_ts)
	VALUES (@table_name, @record_id, @operation, @data, @client_ts)
	ON CONFLICT (table_name, record_id) DO UPDATE
	SET operation   = EXCLUDED.operation,
	    data        = EXCLUDED.data,
	    client_ts   = EXCLUDED.client_ts,
	    received_at = now()
	WHERE synced_records.client_ts < EXCLUDED.client_ts`

func (r *pgRepo) ApplyBatch(ctx context.Context, subject string, ops []domain.SyncOperation) (BatchResult, error) {
	res := BatchResult{BatchID: uuid.New(), Accepted: len(ops)}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("remote.Repo.ApplyBatch: begin: %w", err)
	}
	//nolint:errcheck // no-op once committed
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertBatch, pgx.NamedArgs{
		"id":       res.BatchID,
		"subject":  subject,
		"op_count": len(ops),
	}); err != nil {
		return BatchResult{}, fmt.Errorf("remote.Repo.ApplyBatch: insert batch: %w", err)
	}

	for i, op := range ops {
		id, err := op.RecordID()
		if err != nil {
			return BatchResult{}, fmt.Errorf("remote.Repo.ApplyBatch: operation %d: %w", i, err)
		}
		tag, err := tx.Exec(ctx, upsertRecord, pgx.NamedArgs{
			"table_name": string(op.Table),
			"record_id":  id,
			"operation":  string(op.Operation),
			"data":       string(op.Data),
			"client_ts":  op.Timestamp,
		})
		if err != nil {
			return BatchResult{}, fmt.Errorf("remote.Repo.ApplyBatch: upsert %s/%s: %w", op.Table, id, err)
		}
		if tag.RowsAffected() == 1 {
			res.Applied++
		} else {
			res.Stale++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return BatchResult{}, fmt.Errorf("remote.Repo.ApplyBatch: commit: %w", err)
	}
	return res, nil
}

func (r *pgRepo) Get(ctx context.Context, table domain.Table, id string) (Record, error) {
	const q = `
		SELECT table_name, record_id, operation, data, client_ts, received_at
		FROM synced_records
		WHERE table_name = @table_name AND record_id = @record_id`

	var (
		rec           Record
		tableName, op string
		data          []byte
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"table_name": string(table), "record_id": id}).
		Scan(&tableName, &rec.ID, &op, &data, &rec.ClientTS, &rec.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("remote.Repo.Get: %w", domain.ErrNotFound)
		}
		return Record{}, fmt.Errorf("remote.Repo.Get: %w", err)
	}
	rec.Table = domain.Table(tableName)
	rec.Operation = domain.Operation(op)
	rec.Data = data
	return rec, nil
}
