package query

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/matsen/bibsearch/internal/record"
)

// token is a whitespace-delimited unit of raw query text. Double-quoted spans
// are kept inside a single token.
type token struct {
	raw    string // text as written, quotes included
	quoted bool   // the token contains a double-quoted span
}

// fieldPrefix matches "name:value" where value may be quoted.
var fieldPrefix = regexp.MustCompile(`^([a-z]+):(.+)$`)

// tokenize splits text on whitespace outside of double quotes.
// An unterminated quote extends to the end of the text.
func tokenize(text string) []token {
	var tokens []token
	var cur strings.Builder
	inQuote, quoted := false, false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, token{raw: cur.String(), quoted: quoted})
		}
		cur.Reset()
		quoted = false
	}

	for _, r := range text {
		switch {
		case r == '"':
			inQuote = !inQuote
			quoted = true
			cur.WriteRune(r)
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// expand replaces macro references with their re-tokenized expansions.
// Expansion is a single pass: tokens produced by an expansion are never
// expanded again, so expansion always terminates.
func expand(tokens []token, macros *MacroTable) ([]token, bool, error) {
	out := make([]token, 0, len(tokens))
	expanded := false
	for _, tok := range tokens {
		if tok.quoted {
			out = append(out, tok)
			continue
		}
		if strings.HasPrefix(tok.raw, MacroPrefix) {
			exp, ok := Builtin(tok.raw)
			if !ok {
				return nil, false, &UnknownMacroError{Name: tok.raw}
			}
			out = append(out, tokenize(exp)...)
			expanded = true
			continue
		}
		if exp, ok := macros.User(tok.raw); ok {
			out = append(out, tokenize(exp)...)
			expanded = true
			continue
		}
		out = append(out, tok)
	}
	return out, expanded, nil
}

// ExpandMacros returns raw with every macro reference replaced by its
// expansion. Text without macro references is returned unchanged.
func ExpandMacros(raw string, macros *MacroTable) (string, error) {
	tokens, expanded, err := expand(tokenize(raw), macros)
	if err != nil {
		return "", err
	}
	if !expanded {
		return raw, nil
	}
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.raw
	}
	return strings.Join(parts, " "), nil
}

// Parse parses raw query text. Macros are expanded first; the resulting
// tokens become terms. Text with no tokens yields Empty.
//
// Field qualification is only recognized for the closed set in Fields;
// "foo:bar" with any other prefix is plain text since colons are common in
// titles. Multi-word field values must be quoted: author:"post, matt".
func Parse(raw string, macros *MacroTable) (Query, error) {
	tokens, _, err := expand(tokenize(raw), macros)
	if err != nil {
		return Empty, err
	}

	var terms []Term
	for _, tok := range tokens {
		if term, ok := toTerm(tok); ok {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return Empty, nil
	}
	return Query{Raw: strings.TrimSpace(raw), Terms: terms}, nil
}

// Words parses command-line arguments as a query. Arguments containing
// whitespace were quoted on the shell and are re-quoted here so that they
// stay a single phrase.
func Words(args []string, macros *MacroTable) (Query, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		if strings.ContainsAny(arg, " \t") && !strings.Contains(arg, `"`) {
			if m := fieldPrefix.FindStringSubmatch(arg); m != nil {
				if _, ok := ParseField(m[1]); ok {
					arg = m[1] + `:"` + m[2] + `"`
					parts[i] = arg
					continue
				}
			}
			arg = `"` + arg + `"`
		}
		parts[i] = arg
	}
	return Parse(strings.Join(parts, " "), macros)
}

func toTerm(tok token) (Term, bool) {
	term := Term{Phrase: tok.quoted}
	text := tok.raw

	if m := fieldPrefix.FindStringSubmatch(text); m != nil {
		if f, ok := ParseField(m[1]); ok {
			term.Field = f
			text = m[2]
		}
	}

	term.Text = record.NormalizeSpace(strings.ReplaceAll(text, `"`, ""))
	if term.Text == "" {
		return Term{}, false
	}
	return term, true
}
