package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/bibsearch/internal/record"
)

// ErrIndexUnavailable is returned by MatchIndex on a store without the
// full-text index.
var ErrIndexUnavailable = errors.New("full-text index unavailable")

// IndexQuery is a query against the full-text index. Match is an FTS5 MATCH
// expression over the index columns (empty for none); every condition must
// hold as well.
type IndexQuery struct {
	Match      string
	Conditions []Condition
}

// Condition tests folded column text for a needle that the trigram index
// cannot look up: text shorter than three characters, or an exact value.
type Condition struct {
	// Columns to test; any one matching satisfies the condition. Empty means all.
	Columns []record.Column
	// Needle is compared against record.Fold'ed values.
	Needle string
	// Exact requires a whole value to equal Needle instead of containing it.
	Exact bool
}

// indexRecord writes the search columns of r under rowid id.
func (s *Store) indexRecord(ctx context.Context, tx execer, id int64, r record.Record) error {
	if !s.indexed {
		return nil
	}
	cols := r.SearchColumns()
	args := []any{id}
	for _, c := range record.AllColumns {
		args = append(args, record.Fold(cols.Joined(c)))
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO records_fts (rowid, key, author, title, venue, year, other)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", r.Key, err)
	}
	return nil
}

func (s *Store) unindexRecord(ctx context.Context, tx execer, id int64) error {
	if !s.indexed {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM records_fts WHERE rowid = ?", id); err != nil {
		return fmt.Errorf("unindexing record %d: %w", id, err)
	}
	return nil
}

// Reindex clears the full-text index and rebuilds it from the records table.
func (s *Store) Reindex(ctx context.Context) error {
	if !s.indexed {
		return ErrIndexUnavailable
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records_fts"); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, `+selectRecordFields+` FROM records ORDER BY id`)
	if err != nil {
		return fmt.Errorf("reading records: %w", err)
	}
	type row struct {
		id int64
		r  record.Record
	}
	var all []row
	for rows.Next() {
		var id int64
		r, err := scanRecord(prefixScanner{rows, &id})
		if err != nil {
			rows.Close()
			return err
		}
		all = append(all, row{id, *r})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, x := range all {
		if err := s.indexRecord(ctx, tx, x.id, x.r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// prefixScanner scans a leading id column before the record columns.
type prefixScanner struct {
	s  scanner
	id *int64
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.s.Scan(append([]any{p.id}, dest...)...)
}

// MatchIndex runs q against the index. Results are ordered by FTS rank when
// q has a MATCH expression, otherwise by insertion.
func (s *Store) MatchIndex(ctx context.Context, q IndexQuery) ([]record.Record, error) {
	if !s.indexed {
		return nil, ErrIndexUnavailable
	}

	query := `SELECT ` + selectRecordFields + `
		FROM records_fts JOIN records ON records.id = records_fts.rowid
		WHERE 1=1`
	var args []any

	if q.Match != "" {
		query += " AND records_fts MATCH ?"
		args = append(args, q.Match)
	}
	for _, c := range q.Conditions {
		clause, cargs, err := conditionSQL(c)
		if err != nil {
			return nil, err
		}
		query += " AND " + clause
		args = append(args, cargs...)
	}
	if q.Match != "" {
		query += " ORDER BY rank, records.id"
	} else {
		query += " ORDER BY records.id"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// conditionSQL renders a condition with instr() so that LIKE wildcards in
// the needle need no escaping. Values inside a column are separated by
// ValueSeparator; an exact match is a separator-delimited occurrence.
func conditionSQL(c Condition) (string, []any, error) {
	cols := c.Columns
	if len(cols) == 0 {
		cols = record.AllColumns
	}

	needle := c.Needle
	if c.Exact {
		needle = record.ValueSeparator + needle + record.ValueSeparator
	}

	var parts []string
	var args []any
	for _, col := range cols {
		if !validColumn(col) {
			return "", nil, fmt.Errorf("unknown index column %q", col)
		}
		name := "records_fts." + string(col)
		if c.Exact {
			name = "char(10) || " + name + " || char(10)"
		}
		parts = append(parts, "instr("+name+", ?) > 0")
		args = append(args, needle)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args, nil
}

func validColumn(col record.Column) bool {
	for _, c := range record.AllColumns {
		if c == col {
			return true
		}
	}
	return false
}
