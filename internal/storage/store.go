// Package storage persists records in SQLite, with an optional FTS5 index
// and a ledger of downloaded sources.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is the record store. It is not safe for use by several processes at
// once; callers serialize through session.Open.
type Store struct {
	db      *sql.DB
	path    string
	indexed bool
	logger  *slog.Logger
}

type options struct {
	busyTimeout int
	noIndex     bool
	mkdirAll    bool
	logger      *slog.Logger
}

// Option customises Open.
type Option func(*options)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 5000.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeout = ms } }

// WithoutIndex skips the full-text index even when SQLite supports it.
func WithoutIndex() Option { return func(o *options) { o.noIndex = true } }

// WithMkdirAll creates the parent directory of the database before opening.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// WithLogger sets the logger for warnings. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

const schema = `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		original_key TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		fields_json TEXT NOT NULL,
		source_url TEXT,
		added_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_original_key ON records(original_key);

	CREATE TABLE IF NOT EXISTS downloaded_files (
		file TEXT PRIMARY KEY,
		downloaded_at INTEGER NOT NULL
	);
`

// The index is standalone (not external content); its rowid is records.id.
const indexSchema = `
	CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
		key, author, title, venue, year, other,
		tokenize = 'trigram'
	);
`

// Open opens or creates the store at path. Whether the full-text index is
// available is decided here, once: if the SQLite build lacks FTS5 or the
// trigram tokenizer, the store works without it and Indexed reports false.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{busyTimeout: 5000, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.mkdirAll {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &Store{db: db, path: path, logger: o.logger}
	if o.noIndex {
		// A stale index left behind would be trusted by a later indexed open.
		if _, err := db.Exec("DROP TABLE IF EXISTS records_fts"); err != nil {
			db.Close()
			return nil, fmt.Errorf("dropping full-text index: %w", err)
		}
	} else {
		s.indexed = s.probeIndex()
	}
	if s.indexed {
		if err := s.syncIndex(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// probeIndex creates the FTS5 table if the driver supports it.
func (s *Store) probeIndex() bool {
	if _, err := s.db.Exec(indexSchema); err != nil {
		s.logger.Warn("full-text index unavailable, falling back to filter search", "error", err)
		return false
	}
	return true
}

// syncIndex rebuilds the index when it has drifted from the records table,
// which happens when the store was last written without the index.
func (s *Store) syncIndex(ctx context.Context) error {
	var records, indexed int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&records); err != nil {
		return fmt.Errorf("counting records: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records_fts").Scan(&indexed); err != nil {
		return fmt.Errorf("counting index rows: %w", err)
	}
	if records == indexed {
		return nil
	}
	s.logger.Info("rebuilding full-text index", "records", records, "indexed", indexed)
	return s.Reindex(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Indexed reports whether the full-text index is maintained for this store.
func (s *Store) Indexed() bool {
	return s.indexed
}
