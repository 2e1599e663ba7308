package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matsen/bibsearch/internal/keygen"
	"github.com/matsen/bibsearch/internal/record"
)

const selectRecordFields = `records.key, records.original_key, records.entry_type,
	records.fields_json, records.source_url`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Insert adds r to the store. The key must be non-empty and unused.
func (s *Store) Insert(ctx context.Context, r record.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.insert(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) insert(ctx context.Context, tx execer, r record.Record) error {
	if r.Key == "" {
		return fmt.Errorf("inserting record %q: empty key", r.OriginalKey)
	}
	taken, err := keyTaken(ctx, tx, r.Key)
	if err != nil {
		return err
	}
	if taken {
		return &DuplicateKeyError{Key: r.Key}
	}

	fieldsJSON, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields for %s: %w", r.Key, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO records (key, original_key, entry_type, fields_json, source_url, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Key, r.OriginalKey, r.EntryType, string(fieldsJSON), nullableString(r.SourceURL), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", r.Key, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading id of %s: %w", r.Key, err)
	}
	return s.indexRecord(ctx, tx, id, r)
}

func keyTaken(ctx context.Context, tx execer, key string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE key = ?", key).Scan(&n); err != nil {
		return false, fmt.Errorf("checking key %s: %w", key, err)
	}
	return n > 0, nil
}

// All returns every record in insertion order.
func (s *Store) All(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectRecordFields+` FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}

// Keys returns the set of keys in use, for collision checks.
func (s *Store) Keys(ctx context.Context) (keygen.KeySet, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM records")
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	keys := keygen.NewKeySet()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys.Add(k)
	}
	return keys, rows.Err()
}

// GetByKey returns the record with the given key. If no key matches, the
// first record (by insertion) with that original key is returned.
func (s *Store) GetByKey(ctx context.Context, key string) (*record.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectRecordFields+` FROM records WHERE key = ?`, key)
	r, err := scanRecord(row)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return r, err
	}
	row = s.db.QueryRowContext(ctx, `SELECT `+selectRecordFields+` FROM records
		WHERE original_key = ? ORDER BY id LIMIT 1`, key)
	return scanRecord(row)
}

// LookupByOriginalSource returns a stored record that is the same work as r
// (see record.SameWork), or nil if there is none.
func (s *Store) LookupByOriginalSource(ctx context.Context, r record.Record) (*record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectRecordFields+` FROM records
		WHERE original_key = ? ORDER BY id`, r.OriginalKey)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", r.OriginalKey, err)
	}
	defer rows.Close()

	candidates, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if record.SameWork(candidates[i], r) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// Remove deletes the record with the given key.
func (s *Store) Remove(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM records WHERE key = ?", key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("removing %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("finding %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	if err := s.unindexRecord(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Update replaces the record stored under oldKey with r, keeping its place
// in insertion order. The stored original key is preserved whatever r says.
// If r.Key differs from oldKey it must not be in use.
func (s *Store) Update(ctx context.Context, oldKey string, r record.Record) error {
	if r.Key == "" {
		return fmt.Errorf("updating %s: empty key", oldKey)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var originalKey string
	err = tx.QueryRowContext(ctx, "SELECT id, original_key FROM records WHERE key = ?", oldKey).Scan(&id, &originalKey)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("updating %s: %w", oldKey, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("finding %s: %w", oldKey, err)
	}

	if r.Key != oldKey {
		taken, err := keyTaken(ctx, tx, r.Key)
		if err != nil {
			return err
		}
		if taken {
			return &DuplicateKeyError{Key: r.Key}
		}
	}
	r.OriginalKey = originalKey

	fieldsJSON, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields for %s: %w", r.Key, err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE records SET key = ?, entry_type = ?, fields_json = ?, source_url = ?
		WHERE id = ?
	`, r.Key, r.EntryType, string(fieldsJSON), nullableString(r.SourceURL), id)
	if err != nil {
		return fmt.Errorf("updating %s: %w", oldKey, err)
	}

	if err := s.unindexRecord(ctx, tx, id); err != nil {
		return err
	}
	if err := s.indexRecord(ctx, tx, id, r); err != nil {
		return err
	}
	return tx.Commit()
}

// Stats summarizes the store.
type Stats struct {
	Records     int
	ByType      map[string]int
	Downloads   int
	Indexed     bool
	OldestAdded time.Time
	NewestAdded time.Time
}

// Stats returns record counts per entry type and ledger size.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByType: make(map[string]int), Indexed: s.indexed}

	rows, err := s.db.QueryContext(ctx, "SELECT entry_type, COUNT(*) FROM records GROUP BY entry_type")
	if err != nil {
		return nil, fmt.Errorf("counting entry types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		st.ByType[typ] = n
		st.Records += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if st.Records > 0 {
		var oldest, newest int64
		err := s.db.QueryRowContext(ctx, "SELECT MIN(added_at), MAX(added_at) FROM records").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("reading insertion times: %w", err)
		}
		st.OldestAdded = time.Unix(oldest, 0)
		st.NewestAdded = time.Unix(newest, 0)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM downloaded_files").Scan(&st.Downloads); err != nil {
		return nil, fmt.Errorf("counting downloads: %w", err)
	}
	return st, nil
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*record.Record, error) {
	var r record.Record
	var fieldsJSON string
	var sourceURL sql.NullString

	err := s.Scan(&r.Key, &r.OriginalKey, &r.EntryType, &fieldsJSON, &sourceURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.SourceURL = sourceURL.String

	if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
		return nil, fmt.Errorf("parsing fields JSON for %s: %w", r.Key, err)
	}
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]record.Record, error) {
	var records []record.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// nullableString converts a string to sql.NullString, treating empty as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
