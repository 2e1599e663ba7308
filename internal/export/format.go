package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/bibsearch/internal/author"
	"github.com/matsen/bibsearch/internal/record"
	"github.com/matsen/bibsearch/internal/tex"
)

// Output formats.
const (
	FormatText     = "txt"
	FormatBibTeX   = "bib"
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

const (
	wrapWidth  = 70
	wrapIndent = "   "
)

// Write renders recs in format to w.
func Write(w io.Writer, format string, recs []record.Record, useOriginalKey bool) error {
	var out string
	switch format {
	case FormatText:
		out = Text(recs, useOriginalKey)
	case FormatBibTeX:
		out = ToBibTeXList(recs, BibTeXOptions{UseOriginalKey: useOriginalKey})
	case FormatMarkdown:
		out = Markdown(recs)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if recs == nil {
			recs = []record.Record{}
		}
		return enc.Encode(recs)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	_, err := io.WriteString(w, out)
	return err
}

// Text renders numbered one-paragraph summaries:
//
//	1. [post2018:fast] Matt Post and David Vilar. 2018. "Fast Lexically
//	   Constrained Decoding". Proceedings of NAACL. https://...
func Text(recs []record.Record, useOriginalKey bool) string {
	var b strings.Builder
	for i, r := range recs {
		key := r.Key
		if useOriginalKey {
			key = r.OriginalKey
		}
		line := fmt.Sprintf("%d. [%s] %s. %s. \"%s\". %s. %s",
			i+1, key, AuthorLine(r.Authors()), r.Year(),
			tex.ToUnicode(r.Title()), tex.ToUnicode(r.Venue()), r.URL())
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(Wrap(line, wrapWidth, wrapIndent), "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// Markdown renders each record as a linked title between author and venue.
func Markdown(recs []record.Record) string {
	var b strings.Builder
	for i, r := range recs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s. %s.\n[%s](%s)\n%s.\n",
			AuthorLine(r.Authors()), r.Year(),
			tex.ToUnicode(r.Title()), r.URL(), tex.ToUnicode(r.Venue()))
	}
	return b.String()
}

// AuthorLine formats names for display, "A, B and C", decoded from TeX.
func AuthorLine(names []author.Name) string {
	if len(names) == 0 {
		return "Unknown"
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = strings.TrimSpace(n.Given + " " + n.Surname)
	}
	line := parts[len(parts)-1]
	if len(parts) > 1 {
		line = strings.Join(parts[:len(parts)-1], ", ") + " and " + line
	}
	return tex.ToUnicode(line)
}

// Wrap breaks text into lines of at most width runes, indenting every line
// after the first. Words longer than a line are kept whole.
func Wrap(text string, width int, indent string) []string {
	var lines []string
	var cur strings.Builder
	curLen := 0
	prefix, prefixLen := "", 0
	for _, word := range strings.Fields(text) {
		n := len([]rune(word))
		if curLen > prefixLen && curLen+1+n > width {
			lines = append(lines, cur.String())
			cur.Reset()
			prefix, prefixLen = indent, len([]rune(indent))
			curLen = 0
		}
		if curLen == 0 {
			cur.WriteString(prefix)
			curLen = prefixLen
		} else {
			cur.WriteString(" ")
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
