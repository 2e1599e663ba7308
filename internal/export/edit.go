package export

import (
	"sort"

	"github.com/matsen/bibsearch/internal/record"
)

// Change is one record modified in an edit session.
type Change struct {
	OldKey  string
	Record  record.Record // the edited record; OriginalKey is preserved
	Added   []string      // field names
	Deleted []string
	Edited  []string // "key" is listed when the citation key changed
}

// EditResult compares records before and after an edit session.
type EditResult struct {
	Changed []Change
	Removed []record.Record
	// Unmatched are edited entries whose original_key field is missing or
	// names no record of the session. They are not applied.
	Unmatched []record.Record
}

// Empty reports whether the session changed nothing.
func (e EditResult) Empty() bool {
	return len(e.Changed) == 0 && len(e.Removed) == 0
}

// CompareEdited matches edited entries (parsed back from BibTeX written
// with WithOriginalKey) to the records they came from. The citation key
// in the edited file becomes the record's new key.
func CompareEdited(original, edited []record.Record) EditResult {
	var res EditResult
	used := make([]bool, len(original))

	for _, e := range edited {
		origKey := e.Field(OriginalKeyField)
		i := match(original, used, origKey, e.OriginalKey)
		if i < 0 {
			res.Unmatched = append(res.Unmatched, e)
			continue
		}
		used[i] = true
		old := original[i]

		updated := old.Clone()
		updated.Key = e.OriginalKey
		updated.EntryType = e.EntryType
		updated.Fields = make(map[string]string, len(e.Fields))
		for name, value := range e.Fields {
			if name != OriginalKeyField {
				updated.Fields[name] = value
			}
		}

		c := diff(old, updated)
		if len(c.Added)+len(c.Deleted)+len(c.Edited) > 0 {
			res.Changed = append(res.Changed, c)
		}
	}

	for i, old := range original {
		if !used[i] {
			res.Removed = append(res.Removed, old)
		}
	}
	return res
}

// match finds an unused record with the original key, preferring one whose
// current key is key.
func match(original []record.Record, used []bool, origKey, key string) int {
	if origKey == "" {
		return -1
	}
	found := -1
	for i, r := range original {
		if used[i] || r.OriginalKey != origKey {
			continue
		}
		if r.Key == key {
			return i
		}
		if found < 0 {
			found = i
		}
	}
	return found
}

func diff(old, updated record.Record) Change {
	c := Change{OldKey: old.Key, Record: updated}
	if old.Key != updated.Key {
		c.Edited = append(c.Edited, "key")
	}
	if old.EntryType != updated.EntryType {
		c.Edited = append(c.Edited, "type")
	}
	for _, name := range old.FieldNames() {
		v, ok := updated.Fields[name]
		switch {
		case !ok:
			c.Deleted = append(c.Deleted, name)
		case v != old.Fields[name]:
			c.Edited = append(c.Edited, name)
		}
	}
	for _, name := range updated.FieldNames() {
		if _, ok := old.Fields[name]; !ok {
			c.Added = append(c.Added, name)
		}
	}
	sort.Strings(c.Edited)
	return c
}
