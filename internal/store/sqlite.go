package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/migrations"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so the same helpers run
// inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var columns = []string{"id", "user_id", "email", "expires_at", "data", "created_at", "updated_at"}

// SQLite is the structured Store backed by a local SQLite file.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path, enables WAL and
// applies pending migrations. Pass ":memory:" for a throwaway database.
// Any failure is reported wrapped in domain.ErrStorageUnavailable.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store.OpenSQLite: %w: %v", domain.ErrStorageUnavailable, err)
	}
	// A single connection serialises writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.OpenSQLite: ping: %w: %v", domain.ErrStorageUnavailable, err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Local)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store.OpenSQLite: goose provider: %w: %v", domain.ErrStorageUnavailable, err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store.OpenSQLite: migrate: %w: %v", domain.ErrStorageUnavailable, err)
	}
	for _, r := range results {
		logger.Info("applied local migration",
			zap.String("source", r.Source.Path),
			zap.Duration("duration", r.Duration))
	}

	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Capabilities() Capabilities {
	return Capabilities{IndexedQuery: true, Durable: true}
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Insert(ctx context.Context, table domain.Table, doc Document) error {
	if err := checkTable(table); err != nil {
		return fmt.Errorf("store.SQLite.Insert: %w", err)
	}
	query, args, err := sq.Insert(string(table)).
		Columns(columns...).
		Values(docValues(doc)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("store.SQLite.Insert: build: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store.SQLite.Insert: %w", mapError(err))
	}
	return nil
}

// Upsert keeps the original created_at of an existing row.
func (s *SQLite) Upsert(ctx context.Context, table domain.Table, doc Document) error {
	if err := checkTable(table); err != nil {
		return fmt.Errorf("store.SQLite.Upsert: %w", err)
	}
	query, args, err := sq.Insert(string(table)).
		Columns(columns...).
		Values(docValues(doc)...).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			user_id    = excluded.user_id,
			email      = excluded.email,
			expires_at = excluded.expires_at,
			data       = excluded.data,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("store.SQLite.Upsert: build: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store.SQLite.Upsert: %w", mapError(err))
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, table domain.Table, id string) (Document, error) {
	if err := checkTable(table); err != nil {
		return Document{}, fmt.Errorf("store.SQLite.Get: %w", err)
	}
	doc, err := getDoc(ctx, s.db, table, id)
	if err != nil {
		return Document{}, fmt.Errorf("store.SQLite.Get: %w", err)
	}
	return doc, nil
}

func (s *SQLite) Update(ctx context.Context, table domain.Table, id string, fn func(Document) (Document, error)) (Document, error) {
	if err := checkTable(table); err != nil {
		return Document{}, fmt.Errorf("store.SQLite.Update: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, fmt.Errorf("store.SQLite.Update: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	current, err := getDoc(ctx, tx, table, id)
	if err != nil {
		return Document{}, fmt.Errorf("store.SQLite.Update: %w", err)
	}
	next, err := fn(current)
	if err != nil {
		return Document{}, fmt.Errorf("store.SQLite.Update: %w", err)
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt

	query, args, err := sq.Update(string(table)).
		SetMap(map[string]any{
			"user_id":    nullString(next.UserID),
			"email":      nullString(next.Email),
			"expires_at": nullTime(next.ExpiresAt),
			"data":       string(next.Data),
			"updated_at": next.UpdatedAt.UnixNano(),
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Document{}, fmt.Errorf("store.SQLite.Update: build: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return Document{}, fmt.Errorf("store.SQLite.Update: %w", mapError(err))
	}
	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("store.SQLite.Update: commit: %w", err)
	}
	return next, nil
}

func (s *SQLite) Delete(ctx context.Context, table domain.Table, id string) error {
	if err := checkTable(table); err != nil {
		return fmt.Errorf("store.SQLite.Delete: %w", err)
	}
	query, args, err := sq.Delete(string(table)).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("store.SQLite.Delete: build: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store.SQLite.Delete: %w", err)
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, table domain.Table, q domain.Query) ([]Document, error) {
	if err := checkTable(table); err != nil {
		return nil, fmt.Errorf("store.SQLite.Query: %w", err)
	}
	builder, err := buildQuery(table, q)
	if err != nil {
		return nil, fmt.Errorf("store.SQLite.Query: %w", err)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store.SQLite.Query: build: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store.SQLite.Query: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, fmt.Errorf("store.SQLite.Query: scan: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.SQLite.Query: rows: %w", err)
	}
	return docs, nil
}

func (s *SQLite) DeleteExpired(ctx context.Context, table domain.Table, now time.Time) (int, error) {
	if err := checkTable(table); err != nil {
		return 0, fmt.Errorf("store.SQLite.DeleteExpired: %w", err)
	}
	query, args, err := sq.Delete(string(table)).
		Where(sq.NotEq{"expires_at": nil}).
		Where(sq.LtOrEq{"expires_at": now.UnixNano()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("store.SQLite.DeleteExpired: build: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store.SQLite.DeleteExpired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store.SQLite.DeleteExpired: rows affected: %w", err)
	}
	return int(n), nil
}

func (s *SQLite) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("store.SQLite.GetMeta %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("store.SQLite.GetMeta: %w", err)
	}
	return value, nil
}

func (s *SQLite) SetMeta(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("store.SQLite.SetMeta: %w", err)
	}
	return nil
}

// ---- helpers ---------------------------------------------------------------

func getDoc(ctx context.Context, q querier, table domain.Table, id string) (Document, error) {
	query, args, err := sq.Select(columns...).
		From(string(table)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Document{}, fmt.Errorf("build: %w", err)
	}
	doc, err := scanDoc(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%s %q: %w", table, id, domain.ErrNotFound)
	}
	return doc, err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDoc(row scanner) (Document, error) {
	var (
		doc              Document
		userID, email    sql.NullString
		expiresAt        sql.NullInt64
		data             string
		created, updated int64
	)
	if err := row.Scan(&doc.ID, &userID, &email, &expiresAt, &data, &created, &updated); err != nil {
		return Document{}, err
	}
	doc.UserID = userID.String
	doc.Email = email.String
	if expiresAt.Valid {
		t := time.Unix(0, expiresAt.Int64).UTC()
		doc.ExpiresAt = &t
	}
	doc.Data = []byte(data)
	doc.CreatedAt = time.Unix(0, created).UTC()
	doc.UpdatedAt = time.Unix(0, updated).UTC()
	return doc, nil
}

func docValues(doc Document) []any {
	return []any{
		doc.ID,
		nullString(doc.UserID),
		nullString(doc.Email),
		nullTime(doc.ExpiresAt),
		string(doc.Data),
		doc.CreatedAt.UnixNano(),
		doc.UpdatedAt.UnixNano(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

// mapError converts SQLite constraint violations into domain sentinels.
func mapError(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, err)
		}
	}
	return err
}
