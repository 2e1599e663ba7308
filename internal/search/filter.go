package search

import (
	"context"
	"strings"

	"github.com/matsen/bibsearch/internal/query"
	"github.com/matsen/bibsearch/internal/record"
)

// FilterBackend evaluates queries by scanning every record. It needs no
// index; results come in insertion order.
type FilterBackend struct {
	store Store
}

func (b *FilterBackend) Name() string { return "filter" }

// Match returns the records that match every term of q.
func (b *FilterBackend) Match(ctx context.Context, q query.Query) ([]record.Record, error) {
	all, err := b.store.All(ctx)
	if err != nil {
		return nil, err
	}
	if q.IsEmpty() {
		return all, nil
	}

	var out []record.Record
	for _, r := range all {
		if Matches(r, q) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Matches reports whether r satisfies every term of q.
func Matches(r record.Record, q query.Query) bool {
	cols := r.SearchColumns()
	for _, t := range q.Terms {
		if !termMatches(cols, t) {
			return false
		}
	}
	return true
}

func termMatches(cols record.Columns, t query.Term) bool {
	needle := record.Fold(t.Text)
	for _, c := range t.Field.Columns() {
		for _, v := range cols[c] {
			v = record.Fold(v)
			if t.Field == query.FieldKey {
				if v == needle {
					return true
				}
			} else if strings.Contains(v, needle) {
				return true
			}
		}
	}
	return false
}
