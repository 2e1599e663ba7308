package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/matsen/bibsearch/internal/query"
	"github.com/matsen/bibsearch/internal/record"
	"github.com/matsen/bibsearch/internal/storage"
)

// minIndexedRunes is the shortest text the trigram tokenizer can look up.
const minIndexedRunes = 3

// IndexBackend evaluates queries with the store's full-text index.
type IndexBackend struct {
	store Store
}

func (b *IndexBackend) Name() string { return "index" }

// Match translates q and runs it on the index. Results come in FTS rank order.
func (b *IndexBackend) Match(ctx context.Context, q query.Query) ([]record.Record, error) {
	if q.IsEmpty() {
		return b.store.All(ctx)
	}
	return b.store.MatchIndex(ctx, Translate(q))
}

// Translate turns terms into an index query: a phrase MATCH for each term
// the trigram index can look up, and a column condition for the rest.
func Translate(q query.Query) storage.IndexQuery {
	var iq storage.IndexQuery
	var matches []string

	for _, t := range q.Terms {
		text := record.Fold(t.Text)
		switch {
		case t.Field == query.FieldKey:
			iq.Conditions = append(iq.Conditions, storage.Condition{
				Columns: t.Field.Columns(),
				Needle:  text,
				Exact:   true,
			})
		case utf8.RuneCountInString(text) < minIndexedRunes:
			iq.Conditions = append(iq.Conditions, storage.Condition{
				Columns: t.Field.Columns(),
				Needle:  text,
			})
		default:
			matches = append(matches, ftsPhrase(t.Field, text))
		}
	}

	iq.Match = strings.Join(matches, " AND ")
	return iq
}

// ftsPhrase renders text as a column-filtered FTS5 phrase. With the trigram
// tokenizer a phrase matches any substring.
func ftsPhrase(f query.Field, text string) string {
	phrase := `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
	if f == query.FieldNone {
		return phrase
	}
	cols := f.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	return "{" + strings.Join(names, " ") + "} : " + phrase
}
