package record

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/matsen/bibsearch/internal/tex"
)

// Column names a group of searchable values.
type Column string

const (
	ColumnKey    Column = "key"
	ColumnAuthor Column = "author"
	ColumnTitle  Column = "title"
	ColumnVenue  Column = "venue"
	ColumnYear   Column = "year"
	ColumnOther  Column = "other"
)

// AllColumns lists every searchable column in index order.
var AllColumns = []Column{ColumnKey, ColumnAuthor, ColumnTitle, ColumnVenue, ColumnYear, ColumnOther}

// ValueSeparator joins multiple values of one column when they are stored as
// a single string. Values never contain it (see NormalizeSpace), so a match
// can never straddle two values.
const ValueSeparator = "\n"

// Columns holds the searchable values of a record, grouped by column.
type Columns map[Column][]string

// Joined returns the values of a column joined with ValueSeparator.
func (c Columns) Joined(col Column) string {
	return strings.Join(c[col], ValueSeparator)
}

// columnFields are fields represented by a dedicated column; every other
// field value lands in ColumnOther. The field the venue is taken from is
// excluded as well.
var columnFields = map[string]bool{"author": true, "title": true, "year": true}

// verbatimFields hold identifiers and locations rather than TeX text.
var verbatimFields = map[string]bool{"url": true, "doi": true, "file": true, "eprint": true, "isbn": true, "issn": true}

// SearchColumns returns the values each query field is matched against.
// It is the single definition shared by every search backend.
//
// The author column holds one "Surname, Given" value per author so that an
// author term matches when any one author matches. Values are decoded from
// TeX, so a query for "müller" finds M{\"u}ller.
func (r Record) SearchColumns() Columns {
	cols := Columns{}

	cols[ColumnKey] = nonEmpty(r.Key, r.OriginalKey)
	var authors []string
	for _, a := range r.Authors() {
		authors = append(authors, tex.ToUnicode(a.String()))
	}
	cols[ColumnAuthor] = nonEmpty(authors...)
	cols[ColumnTitle] = nonEmpty(tex.ToUnicode(r.Title()))
	cols[ColumnVenue] = nonEmpty(tex.ToUnicode(r.Venue()))
	cols[ColumnYear] = nonEmpty(tex.ToUnicode(r.Year()))

	venue := r.venueField()
	var other []string
	for _, name := range r.FieldNames() {
		if columnFields[name] || name == venue {
			continue
		}
		v := r.Fields[name]
		if !verbatimFields[name] {
			v = tex.ToUnicode(v)
		}
		other = append(other, v)
	}
	cols[ColumnOther] = nonEmpty(other...)
	return cols
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v = NormalizeSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Fold is the case folding applied to both stored column values and query
// text before substring comparison. Lowering first keeps İ a plain i; the
// Unicode fold then maps forms like ſ and ß that lowering leaves alone.
func Fold(s string) string {
	return cases.Fold().String(strings.ToLower(s))
}
