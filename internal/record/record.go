// Package record defines the bibliographic record stored in a collection.
package record

import (
	"regexp"
	"sort"
	"strings"

	"github.com/matsen/bibsearch/internal/author"
)

// Record is a single bibliographic entry.
type Record struct {
	// Identity
	Key         string `json:"key" yaml:"key"`                   // Citation key, unique within the store
	OriginalKey string `json:"original_key" yaml:"original_key"` // Key as it appeared in the source (immutable)

	// Content
	EntryType string            `json:"entry_type" yaml:"entry_type"` // article, inproceedings, ...
	Fields    map[string]string `json:"fields" yaml:"fields"`         // Field name (lower-case) to value

	// Provenance
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"` // URL or file the record came from
}

// New builds a record, lower-casing field names and normalizing whitespace in values.
// Empty values are dropped.
func New(entryType, originalKey string, fields map[string]string) Record {
	r := Record{
		EntryType:   strings.ToLower(strings.TrimSpace(entryType)),
		OriginalKey: strings.TrimSpace(originalKey),
		Fields:      make(map[string]string, len(fields)),
	}
	for name, value := range fields {
		r.SetField(name, value)
	}
	return r
}

// SetField sets a field value, normalizing name and whitespace. An empty
// value removes the field.
func (r *Record) SetField(name, value string) {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	value = NormalizeSpace(value)
	if value == "" {
		delete(r.Fields, name)
		return
	}
	r.Fields[name] = value
}

// Field returns the value of a field, or "" if absent.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// FieldNames returns the record's field names in sorted order.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Title returns the title field.
func (r Record) Title() string { return r.Fields["title"] }

// Year returns the year field as written.
func (r Record) Year() string { return r.Fields["year"] }

// URL returns the url field.
func (r Record) URL() string { return r.Fields["url"] }

// Venue returns where the work appeared: the venue field if present,
// otherwise the journal, otherwise the booktitle.
func (r Record) Venue() string {
	return r.Fields[r.venueField()]
}

func (r Record) venueField() string {
	for _, name := range venueFields {
		if r.Fields[name] != "" {
			return name
		}
	}
	return ""
}

var venueFields = []string{"venue", "journal", "booktitle"}

// Authors parses the author field.
func (r Record) Authors() []author.Name {
	return author.ParseList(r.Fields["author"])
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	c.Fields = make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return c
}

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeSpace collapses every run of whitespace (including newlines) to a
// single space and trims the ends.
func NormalizeSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// SameWork reports whether two records describe the same work: they share the
// original key and the normalized first-author surname and year. The second
// condition guards against unrelated collections reusing the same keys.
func SameWork(a, b Record) bool {
	if a.OriginalKey != b.OriginalKey {
		return false
	}
	return author.FirstSurname(a.Authors()) == author.FirstSurname(b.Authors()) &&
		strings.TrimSpace(a.Year()) == strings.TrimSpace(b.Year())
}
