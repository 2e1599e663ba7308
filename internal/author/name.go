// Package author parses BibTeX author lists into structured names.
package author

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matsen/bibsearch/internal/tex"
)

// Name is a single author, split into surname and given name(s).
type Name struct {
	Surname string `json:"surname" yaml:"surname"`
	Given   string `json:"given,omitempty" yaml:"given,omitempty"`
}

// String formats the name in the normalized "Surname, Given" convention.
// A name without given names formats as the bare surname.
func (n Name) String() string {
	if n.Given == "" {
		return n.Surname
	}
	return n.Surname + ", " + n.Given
}

// andSeparator matches the BibTeX "and" that separates names.
var andSeparator = regexp.MustCompile(`(?i)^[ \t]and[ \t]`)

// ParseList parses an author field into names.
//
// Supported separators (outside of braces):
//   - " and " (case-insensitive), the BibTeX convention
//   - ";"
//
// Each name may be written "von Last, First" or "First von Last".
// The literal "others" (as in "and others") is dropped.
func ParseList(field string) []Name {
	var names []Name
	for _, part := range splitNames(field) {
		part = strings.Trim(part, " \t~-,")
		if part == "" || strings.EqualFold(part, "others") {
			continue
		}
		n := Parse(part)
		if n.Surname == "" {
			continue
		}
		names = append(names, n)
	}
	return names
}

// splitNames splits on depth-0 "and" and ";" separators.
func splitNames(field string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				parts = append(parts, field[last:i])
				last = i + 1
			}
		case ' ', '\t':
			if depth == 0 && andSeparator.MatchString(field[i:]) {
				parts = append(parts, field[last:i])
				i += 4
				last = i
			}
		}
	}
	return append(parts, field[last:])
}

// Parse parses a single name.
//
//   - "Post, Matt"          → Surname "Post", Given "Matt"
//   - "Matt Post"           → Surname "Post", Given "Matt"
//   - "Ludwig van Beethoven" → Surname "van Beethoven", Given "Ludwig"
//   - "Post"                → Surname "Post"
//
// TeX markup is kept, so the name can be written back to BibTeX. Braces
// that only protect case are dropped.
func Parse(s string) Name {
	s = strings.TrimSpace(s)
	// A fully braced name is a single (corporate) surname.
	if inner, ok := singleGroup(s); ok {
		return Name{Surname: clean(inner)}
	}

	if parts := splitDepth0(s, isComma); len(parts) > 1 {
		// "Last, Jr, First": the lineage part belongs to neither.
		return Name{Surname: clean(parts[0]), Given: clean(parts[len(parts)-1])}
	}

	toks := splitDepth0(s, unicode.IsSpace)
	switch len(toks) {
	case 0:
		return Name{}
	case 1:
		return Name{Surname: clean(toks[0])}
	}

	// The surname starts at the first lower-case (von) token, but never
	// later than the last token.
	start := len(toks) - 1
	for i := 1; i < len(toks)-1; i++ {
		if startsLower(tex.ToUnicode(toks[i])) {
			start = i
			break
		}
	}
	return Name{
		Surname: clean(strings.Join(toks[start:], " ")),
		Given:   clean(strings.Join(toks[:start], " ")),
	}
}

func isComma(r rune) bool { return r == ',' }

// splitDepth0 splits s at runes outside braces for which sep is true,
// dropping empty pieces.
func splitDepth0(s string, sep func(rune) bool) []string {
	var parts []string
	depth, last := 0, 0
	for i, r := range s {
		switch {
		case r == '{':
			depth++
		case r == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0 && sep(r):
			if p := strings.TrimSpace(s[last:i]); p != "" || !unicode.IsSpace(r) {
				parts = append(parts, p)
			}
			last = i + utf8.RuneLen(r)
		}
	}
	if p := strings.TrimSpace(s[last:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}

// clean collapses whitespace and drops braces that carry no TeX commands.
func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if !strings.Contains(s, `\`) {
		s = stripBraces(s)
	}
	return s
}

func startsLower(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) {
			return unicode.IsLower(r)
		}
	}
	return false
}

// singleGroup reports whether s is exactly one {...} group and returns its content.
func singleGroup(s string) (string, bool) {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return "", false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && i != len(s)-1 {
				return "", false
			}
		}
	}
	return s[1 : len(s)-1], depth == 0
}

func stripBraces(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(s)
}

// FormatList joins names with the BibTeX "and" separator.
func FormatList(names []Name) string {
	formatted := make([]string, len(names))
	for i, n := range names {
		formatted[i] = n.String()
	}
	return strings.Join(formatted, " and ")
}

// FormatShort formats up to max names as "Given Surname", adding "et al." if truncated.
func FormatShort(names []Name, max int) string {
	var parts []string
	for i, n := range names {
		if i >= max {
			parts = append(parts, "et al.")
			break
		}
		if n.Given != "" {
			parts = append(parts, n.Given+" "+n.Surname)
		} else {
			parts = append(parts, n.Surname)
		}
	}
	return strings.Join(parts, ", ")
}
