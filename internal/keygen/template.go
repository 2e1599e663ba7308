// Package keygen derives citation keys from record metadata.
package keygen

import (
	"strings"
)

// Placeholder names recognized in key templates.
const (
	PlaceholderSurname   = "surname"
	PlaceholderEtAl      = "et_al"
	PlaceholderYear      = "year"
	PlaceholderShortYear = "short_year"
	PlaceholderSuffix    = "suffix"
	PlaceholderTitle     = "title"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = "{surname}{year}{suffix}:{title}"

// EtAlMarker is what {et_al} expands to for records with several authors.
const EtAlMarker = "_etAl"

var placeholders = map[string]bool{
	PlaceholderSurname:   true,
	PlaceholderEtAl:      true,
	PlaceholderYear:      true,
	PlaceholderShortYear: true,
	PlaceholderSuffix:    true,
	PlaceholderTitle:     true,
}

// segment is either literal text or a placeholder.
type segment struct {
	literal     string
	placeholder string
}

// Template is a compiled key template.
type Template struct {
	source   string
	segments []segment
	uses     map[string]bool
}

// Compile parses a key template such as "{surname}{year}{suffix}:{title}".
// Unknown placeholders and unbalanced braces are reported as
// *UnknownPlaceholderError, so a bad template fails at configuration time
// rather than per record.
func Compile(tmpl string) (*Template, error) {
	if strings.TrimSpace(tmpl) == "" {
		return nil, &UnknownPlaceholderError{Template: tmpl}
	}
	t := &Template{source: tmpl, uses: make(map[string]bool)}

	rest := tmpl
	for rest != "" {
		open := strings.IndexAny(rest, "{}")
		if open < 0 {
			t.segments = append(t.segments, segment{literal: rest})
			break
		}
		if rest[open] == '}' {
			return nil, &UnknownPlaceholderError{Placeholder: "}", Template: tmpl}
		}
		if open > 0 {
			t.segments = append(t.segments, segment{literal: rest[:open]})
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, &UnknownPlaceholderError{Placeholder: rest[open:], Template: tmpl}
		}
		name := rest[open+1 : open+end]
		if !placeholders[name] {
			return nil, &UnknownPlaceholderError{Placeholder: name, Template: tmpl}
		}
		t.segments = append(t.segments, segment{placeholder: name})
		t.uses[name] = true
		rest = rest[open+end+1:]
	}

	return t, nil
}

// MustCompile is like Compile but panics on error. For package-level templates.
func MustCompile(tmpl string) *Template {
	t, err := Compile(tmpl)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template source.
func (t *Template) String() string {
	return t.source
}

// Uses reports whether the template references the placeholder.
func (t *Template) Uses(placeholder string) bool {
	return t.uses[placeholder]
}

// usesAuthor reports whether the template needs author data.
func (t *Template) usesAuthor() bool {
	return t.uses[PlaceholderSurname] || t.uses[PlaceholderEtAl]
}

// usesYear reports whether the template needs the year.
func (t *Template) usesYear() bool {
	return t.uses[PlaceholderYear] || t.uses[PlaceholderShortYear]
}

// expand substitutes values into the template.
func (t *Template) expand(values map[string]string) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.placeholder != "" {
			b.WriteString(values[seg.placeholder])
		} else {
			b.WriteString(seg.literal)
		}
	}
	return b.String()
}
