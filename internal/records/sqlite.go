package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DefaultFileName is the database file created inside Config.DataDir.
const DefaultFileName = "specwright.db"

// Config configures a SQLiteStore.
type Config struct {
	DataDir  string
	FileName string
}

// SQLiteStore implements Store on a single SQLite table.
type SQLiteStore struct {
	db    *sql.DB
	hooks storeHooks
}

var _ Store = (*SQLiteStore)(nil)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// storeHooks lets tests inject failures below the Store API.
type storeHooks struct {
	exec  func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	query func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) execHook(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, s.db, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *SQLiteStore) queryHook(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.hooks.query != nil {
		return s.hooks.query(ctx, s.db, query, args...)
	}
	return s.db.QueryContext(ctx, query, args...)
}

// NewSQLite opens (creating if needed) the database under cfg.DataDir.
func NewSQLite(cfg Config) (*SQLiteStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("records: create data dir: %w", err)
	}
	name := cfg.FileName
	if name == "" {
		name = DefaultFileName
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, name))
	if err != nil {
		return nil, fmt.Errorf("records: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("records: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("records: migration: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.execHook(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			pk         TEXT NOT NULL,
			sk         TEXT NOT NULL,
			kind       TEXT NOT NULL DEFAULT '',
			body       BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (pk, sk)
		) WITHOUT ROWID;

		CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
	`)
	return err
}

// Get returns the record stored at (pk, sk).
func (s *SQLiteStore) Get(ctx context.Context, pk, sk string) (*Record, error) {
	rows, err := s.queryHook(ctx,
		`SELECT pk, sk, kind, body, created_at, updated_at FROM records WHERE pk = ? AND sk = ?`,
		pk, sk,
	)
	if err != nil {
		return nil, fmt.Errorf("records: get %s/%s: %w", pk, sk, err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("records: get %s/%s: %w", pk, sk, err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}

// Put upserts rec. CreatedAt is kept from the first write.
func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	now := timeNow().UTC().Format(time.RFC3339Nano)
	_, err := s.execHook(ctx, `
		INSERT INTO records (pk, sk, kind, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pk, sk) DO UPDATE SET
			kind = excluded.kind,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		rec.PK, rec.SK, rec.Kind, rec.Body, now, now,
	)
	if err != nil {
		return fmt.Errorf("records: put %s/%s: %w", rec.PK, rec.SK, err)
	}
	return nil
}

// Create inserts rec only if (pk, sk) is free.
func (s *SQLiteStore) Create(ctx context.Context, rec Record) error {
	now := timeNow().UTC().Format(time.RFC3339Nano)
	res, err := s.execHook(ctx, `
		INSERT INTO records (pk, sk, kind, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pk, sk) DO NOTHING`,
		rec.PK, rec.SK, rec.Kind, rec.Body, now, now,
	)
	if err != nil {
		return fmt.Errorf("records: create %s/%s: %w", rec.PK, rec.SK, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("records: create %s/%s: %w", rec.PK, rec.SK, err)
	}
	if n == 0 {
		return fmt.Errorf("records: create %s/%s: %w", rec.PK, rec.SK, ErrConflict)
	}
	return nil
}

// Query scans a partition in sort-key order.
func (s *SQLiteStore) Query(ctx context.Context, pk, prefix string, opts QueryOptions) ([]Record, error) {
	q := `SELECT pk, sk, kind, body, created_at, updated_at FROM records
		WHERE pk = ? AND substr(sk, 1, length(?)) = ?`
	if opts.Reverse {
		q += ` ORDER BY sk DESC`
	} else {
		q += ` ORDER BY sk ASC`
	}
	args := []any{pk, prefix, prefix}
	if opts.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.queryHook(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("records: query %s/%s*: %w", pk, prefix, err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("records: query %s/%s*: %w", pk, prefix, err)
	}
	return recs, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var (
			rec              Record
			created, updated string
		)
		if err := rows.Scan(&rec.PK, &rec.SK, &rec.Kind, &rec.Body, &created, &updated); err != nil {
			return nil, err
		}
		rec.CreatedAt = parseTime(created)
		rec.UpdatedAt = parseTime(updated)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
