// Package query parses search strings into structured queries.
//
// A query is a sequence of terms that are ANDed together. Terms are free
// text, double-quoted phrases, or field-qualified (author:, title:, venue:,
// year:, key:). Macros expand to query fragments before terms are built.
package query

import (
	"strings"

	"github.com/matsen/bibsearch/internal/record"
)

// Field is a recognized query field qualifier.
type Field string

const (
	FieldNone   Field = ""
	FieldAuthor Field = "author"
	FieldTitle  Field = "title"
	FieldVenue  Field = "venue"
	FieldYear   Field = "year"
	FieldKey    Field = "key"
)

// Fields lists the recognized qualifiers. The set is closed: any other
// prefix is ordinary text.
var Fields = []Field{FieldAuthor, FieldTitle, FieldVenue, FieldYear, FieldKey}

// ParseField returns the field named by s, if it is recognized.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return FieldNone, false
}

// Columns returns the record columns a term with this field is matched against.
func (f Field) Columns() []record.Column {
	switch f {
	case FieldAuthor:
		return []record.Column{record.ColumnAuthor}
	case FieldTitle:
		return []record.Column{record.ColumnTitle}
	case FieldVenue:
		return []record.Column{record.ColumnVenue}
	case FieldYear:
		return []record.Column{record.ColumnYear}
	case FieldKey:
		return []record.Column{record.ColumnKey}
	default:
		return record.AllColumns
	}
}

// Term is one conjunct of a query.
type Term struct {
	Field  Field  `yaml:"field,omitempty" json:"field,omitempty"`
	Phrase bool   `yaml:"phrase,omitempty" json:"phrase,omitempty"`
	Text   string `yaml:"text" json:"text"`
}

// String renders the term back into query syntax.
func (t Term) String() string {
	text := t.Text
	if t.Phrase || strings.ContainsAny(text, " \t") {
		text = `"` + text + `"`
	}
	if t.Field != FieldNone {
		return string(t.Field) + ":" + text
	}
	return text
}

// Query is a parsed query: the raw text it came from and its terms.
type Query struct {
	Raw   string `yaml:"raw" json:"raw"`
	Terms []Term `yaml:"terms" json:"terms"`
}

// Empty is the query with no terms. Evaluating it means "reuse the last query".
var Empty = Query{}

// IsEmpty reports whether the query has no terms.
func (q Query) IsEmpty() bool {
	return len(q.Terms) == 0
}

// String renders the query in normalized query syntax.
func (q Query) String() string {
	parts := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
