package keygen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/bibsearch/internal/author"
	"github.com/matsen/bibsearch/internal/record"
	"github.com/matsen/bibsearch/internal/tex"
)

var yearDigits = regexp.MustCompile(`\d+`)

// Generate derives a citation key for r from template t. The key is not in
// existing: collisions are resolved by substituting {suffix} with "", then
// "a", "b", ... "z", "aa", ... until the key is free. A template without
// {suffix} gets the suffix appended.
//
// Generate is a pure function of its inputs. existing must reflect every key
// in the store at the time of the call; callers inserting a batch add each
// new key to the set before generating the next one.
func Generate(r record.Record, existing KeySet, t *Template) (string, error) {
	values, err := resolve(r, t)
	if err != nil {
		return "", err
	}

	for level := 0; ; level++ {
		suffix := Suffix(level)
		values[PlaceholderSuffix] = suffix
		candidate := t.expand(values)
		if !t.Uses(PlaceholderSuffix) {
			candidate += suffix
		}
		if candidate == "" {
			continue
		}
		if !existing.Has(candidate) {
			return candidate, nil
		}
	}
}

// Suffix returns the collision suffix for a level: "" for 0, then "a".."z",
// "aa", "ab", ...
func Suffix(level int) string {
	var b []byte
	for n := level; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('a' + (n-1)%26)}, b...)
	}
	return string(b)
}

// resolve computes every placeholder except the suffix.
func resolve(r record.Record, t *Template) (map[string]string, error) {
	values := make(map[string]string, len(placeholders))

	if t.usesAuthor() {
		names := r.Authors()
		surname := author.FirstSurname(names)
		if surname == "" {
			return nil, &MissingFieldError{Field: "author", Key: r.OriginalKey}
		}
		values[PlaceholderSurname] = surname
		if len(names) > 1 {
			values[PlaceholderEtAl] = EtAlMarker
		}
	}

	if t.usesYear() {
		year, err := parseYear(r)
		if err != nil {
			return nil, err
		}
		values[PlaceholderYear] = strconv.Itoa(year)
		values[PlaceholderShortYear] = fmt.Sprintf("%02d", year%100)
	}

	if t.Uses(PlaceholderTitle) {
		word := TitleWord(r.Title())
		if word == "" {
			return nil, &MissingFieldError{Field: "title", Key: r.OriginalKey}
		}
		values[PlaceholderTitle] = word
	}

	return values, nil
}

func parseYear(r record.Record) (int, error) {
	raw := strings.TrimSpace(r.Year())
	if raw == "" {
		return 0, &MissingFieldError{Field: "year", Key: r.OriginalKey}
	}
	digits := yearDigits.FindString(raw)
	if digits == "" {
		return 0, &MissingFieldError{Field: "year", Key: r.OriginalKey, Reason: fmt.Sprintf("%q is not a year", raw)}
	}
	year, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &MissingFieldError{Field: "year", Key: r.OriginalKey, Reason: err.Error()}
	}
	return year, nil
}

// TitleWord returns the first title word that is not a stop word, normalized
// for use in a key. If every word is a stop word, the first word is used.
func TitleWord(title string) string {
	var words []string
	for _, w := range strings.Fields(tex.ToUnicode(title)) {
		if n := author.Normalize(w); n != "" {
			words = append(words, n)
		}
	}
	if len(words) == 0 {
		return ""
	}
	for _, w := range words {
		if !stopWords[w] {
			return w
		}
	}
	return words[0]
}
