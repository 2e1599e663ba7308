// Package export renders records for output: BibTeX, plain text, markdown
// and JSON. It also reads the citations out of LaTeX .aux files.
package export

import (
	"fmt"
	"strings"

	"github.com/matsen/bibsearch/internal/record"
)

// OriginalKeyField carries the original key through an edit round trip.
const OriginalKeyField = "original_key"

// BibTeXOptions controls ToBibTeX.
type BibTeXOptions struct {
	// UseOriginalKey cites the entry under the key it had in its source.
	UseOriginalKey bool
	// WithOriginalKey adds an original_key field.
	WithOriginalKey bool
}

// leadingFields are written first, in this order; the rest follow sorted.
var leadingFields = []string{"author", "editor", "title", "journal", "booktitle", "venue", "year"}

// ToBibTeX converts a record to BibTeX. Values are written as stored, so
// TeX markup survives unchanged.
func ToBibTeX(r record.Record, opts BibTeXOptions) string {
	entryType := r.EntryType
	if entryType == "" {
		entryType = "misc"
	}
	key := r.Key
	if opts.UseOriginalKey || key == "" {
		key = r.OriginalKey
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, key))

	written := map[string]bool{}
	field := func(name, value string) {
		if value == "" || written[name] {
			return
		}
		written[name] = true
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", name, value))
	}
	for _, name := range leadingFields {
		field(name, r.Field(name))
	}
	for _, name := range r.FieldNames() {
		if name == OriginalKeyField {
			continue
		}
		field(name, r.Field(name))
	}
	if opts.WithOriginalKey {
		field(OriginalKeyField, r.OriginalKey)
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts multiple records to BibTeX, separated by blank lines.
func ToBibTeXList(recs []record.Record, opts BibTeXOptions) string {
	var entries []string
	for _, r := range recs {
		entries = append(entries, ToBibTeX(r, opts))
	}
	return strings.Join(entries, "\n")
}
