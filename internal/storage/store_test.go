package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/bibsearch/internal/record"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bibsearch.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(key, originalKey, authors, title, year string) record.Record {
	r := record.New("inproceedings", originalKey, map[string]string{
		"author":    authors,
		"title":     title,
		"year":      year,
		"booktitle": "Proceedings of the Conference on Machine Translation",
	})
	r.Key = key
	return r
}

func TestOpenProbesIndex(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.Indexed(), "modernc sqlite ships FTS5 with the trigram tokenizer")

	s2 := newTestStore(t, WithoutIndex())
	assert.False(t, s2.Indexed())
}

func TestInsertAndAll(t *testing.T) {
	ctx := context.Background()
	for _, opts := range [][]Option{nil, {WithoutIndex()}} {
		s := newTestStore(t, opts...)

		require.NoError(t, s.Insert(ctx, testRecord("post2018:call", "post-2018-call", "Post, Matt", "A Call for Clarity", "2018")))
		require.NoError(t, s.Insert(ctx, testRecord("vilar2006:error", "vilar-etal-2006", "Vilar, David and Xu, Jia", "Error Analysis", "2006")))

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "post2018:call", all[0].Key)
		assert.Equal(t, "vilar2006:error", all[1].Key)
		assert.Equal(t, "Vilar, David and Xu, Jia", all[1].Field("author"))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}
}

func TestInsertDuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Insert(ctx, testRecord("k", "a", "Post, Matt", "One", "2018")))
	err := s.Insert(ctx, testRecord("k", "b", "Post, Matt", "Two", "2019"))

	var dke *DuplicateKeyError
	require.True(t, errors.As(err, &dke))
	assert.Equal(t, "k", dke.Key)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsertEmptyKey(t *testing.T) {
	s := newTestStore(t)
	err := s.Insert(context.Background(), testRecord("", "a", "Post, Matt", "One", "2018"))
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Insert(ctx, testRecord("a1", "x", "Post, Matt", "One", "2018")))
	require.NoError(t, s.Insert(ctx, testRecord("b2", "y", "Post, Matt", "Two", "2018")))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.True(t, keys.Has("a1"))
	assert.True(t, keys.Has("b2"))
	assert.False(t, keys.Has("x"))
}

func TestGetByKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Insert(ctx, testRecord("post2018:call", "post-2018-call", "Post, Matt", "A Call for Clarity", "2018")))

	r, err := s.GetByKey(ctx, "post2018:call")
	require.NoError(t, err)
	assert.Equal(t, "post-2018-call", r.OriginalKey)

	r, err = s.GetByKey(ctx, "post-2018-call")
	require.NoError(t, err)
	assert.Equal(t, "post2018:call", r.Key)

	_, err = s.GetByKey(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupByOriginalSource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	stored := testRecord("post2018:call", "post-2018-call", "Post, Matt", "A Call for Clarity", "2018")
	require.NoError(t, s.Insert(ctx, stored))

	tests := []struct {
		name  string
		probe record.Record
		found bool
	}{
		{"same work", testRecord("", "post-2018-call", "Matt Post", "A Call for Clarity in Reporting BLEU Scores", "2018"), true},
		{"different original key", testRecord("", "post-2018-other", "Post, Matt", "A Call for Clarity", "2018"), false},
		{"key reused by another collection", testRecord("", "post-2018-call", "Smith, Jane", "Elsewhere", "2018"), false},
		{"different year", testRecord("", "post-2018-call", "Post, Matt", "A Call for Clarity", "2019"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.LookupByOriginalSource(ctx, tt.probe)
			require.NoError(t, err)
			if tt.found {
				require.NotNil(t, got)
				assert.Equal(t, "post2018:call", got.Key)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Insert(ctx, testRecord("a", "a", "Post, Matt", "Clarity", "2018")))

	require.NoError(t, s.Remove(ctx, "a"))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := s.MatchIndex(ctx, IndexQuery{Match: `title: "clarity"`})
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.ErrorIs(t, s.Remove(ctx, "a"), ErrNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Insert(ctx, testRecord("a", "orig-a", "Post, Matt", "Clarity", "2018")))
	require.NoError(t, s.Insert(ctx, testRecord("b", "orig-b", "Vilar, David", "Errors", "2006")))

	edited := testRecord("a2", "tampered", "Post, Matt", "Reporting Scores", "2018")
	require.NoError(t, s.Update(ctx, "a", edited))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a2", all[0].Key, "keeps insertion position")
	assert.Equal(t, "orig-a", all[0].OriginalKey, "original key is immutable")
	assert.Equal(t, "Reporting Scores", all[0].Title())

	got, err := s.MatchIndex(ctx, IndexQuery{Match: `title: "reporting"`})
	require.NoError(t, err)
	require.Len(t, got, 1)
	got, err = s.MatchIndex(ctx, IndexQuery{Match: `title: "clarity"`})
	require.NoError(t, err)
	assert.Empty(t, got)

	var dke *DuplicateKeyError
	assert.True(t, errors.As(s.Update(ctx, "a2", testRecord("b", "", "Post, Matt", "x", "2018")), &dke))
	assert.ErrorIs(t, s.Update(ctx, "zzz", edited), ErrNotFound)
}

func TestMatchIndexConditions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Insert(ctx, testRecord("post2018:call", "W18-6319", "Post, Matt", "A Call for Clarity", "2018")))
	require.NoError(t, s.Insert(ctx, testRecord("xu2007:go", "xu-2007", "Xu, Jia", "Go Figure", "2007")))

	tests := []struct {
		name string
		q    IndexQuery
		want []string
	}{
		{"phrase in column", IndexQuery{Match: `author: "post"`}, []string{"post2018:call"}},
		{"short needle", IndexQuery{Conditions: []Condition{{Columns: []record.Column{record.ColumnAuthor}, Needle: "xu"}}}, []string{"xu2007:go"}},
		{"short needle any column", IndexQuery{Conditions: []Condition{{Needle: "go"}}}, []string{"xu2007:go"}},
		{"exact key", IndexQuery{Conditions: []Condition{{Columns: []record.Column{record.ColumnKey}, Needle: "post2018:call", Exact: true}}}, []string{"post2018:call"}},
		{"exact original key", IndexQuery{Conditions: []Condition{{Columns: []record.Column{record.ColumnKey}, Needle: "w18-6319", Exact: true}}}, []string{"post2018:call"}},
		{"exact rejects prefix", IndexQuery{Conditions: []Condition{{Columns: []record.Column{record.ColumnKey}, Needle: "post2018", Exact: true}}}, nil},
		{"needle with LIKE wildcard", IndexQuery{Conditions: []Condition{{Needle: "%"}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.MatchIndex(ctx, tt.q)
			require.NoError(t, err)
			var keys []string
			for _, r := range got {
				keys = append(keys, r.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestMatchIndexUnavailable(t *testing.T) {
	s := newTestStore(t, WithoutIndex())
	_, err := s.MatchIndex(context.Background(), IndexQuery{Match: `"x"`})
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestIndexRebuiltAfterUnindexedWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bibsearch.db")

	s, err := Open(path, WithoutIndex())
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, testRecord("a", "a", "Post, Matt", "Clarity", "2018")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.MatchIndex(ctx, IndexQuery{Match: `title: "clarity"`})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpenWithoutIndexDropsIndex(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bibsearch.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// While another connection holds the write lock the index cannot be
	// dropped, and the open fails rather than leaving it behind.
	other, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer other.Close()
	tx, err := other.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, "INSERT INTO downloaded_files (file, downloaded_at) VALUES ('x', 0)")
	require.NoError(t, err)

	_, err = Open(path, WithoutIndex(), WithBusyTimeout(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dropping full-text index")
	require.NoError(t, tx.Rollback())

	s, err = Open(path, WithoutIndex())
	require.NoError(t, err)
	defer s.Close()
	var n int
	require.NoError(t, s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE name = 'records_fts'").Scan(&n))
	assert.Zero(t, n)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Insert(ctx, testRecord("a", "a", "Post, Matt", "Clarity", "2018")))
	require.NoError(t, s.RegisterDownloaded(ctx, "https://example.org/W18.bib"))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Records)
	assert.Equal(t, map[string]int{"inproceedings": 1}, st.ByType)
	assert.Equal(t, 1, st.Downloads)
	assert.True(t, st.Indexed)
	assert.False(t, st.NewestAdded.IsZero())
}
