// Package importer converts external bibliography formats into records.
package importer

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/nickng/bibtex"

	"github.com/matsen/bibsearch/internal/record"
)

// monthStrings defines the month abbreviations BibTeX styles predefine, so
// "month = jan" parses without a matching @string in the file.
const monthStrings = `@string{jan = "January"}
@string{feb = "February"}
@string{mar = "March"}
@string{apr = "April"}
@string{may = "May"}
@string{jun = "June"}
@string{jul = "July"}
@string{aug = "August"}
@string{sep = "September"}
@string{oct = "October"}
@string{nov = "November"}
@string{dec = "December"}
`

// entryStart matches the first line of an entry: @type{key,
var entryStart = regexp.MustCompile(`(?m)^[ \t]*@\w+[ \t]*\{`)

var stringEntry = regexp.MustCompile(`(?i)^[ \t]*@string[ \t]*\{`)

// bareValue matches an unquoted string variable used as (part of) a value.
var bareValue = regexp.MustCompile(`[=#]\s*([A-Za-z][A-Za-z0-9_]*)\s*`)

var months = map[string]bool{
	"jan": true, "feb": true, "mar": true, "apr": true, "may": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "oct": true, "nov": true, "dec": true,
}

// placeholders defines every bare variable in data as its own name. Real
// @string definitions in data come later and replace them; the rest keep
// their name as value instead of failing the parse.
func placeholders(data []byte) string {
	var b strings.Builder
	seen := map[string]bool{}
	for _, m := range bareValue.FindAllSubmatchIndex(data, -1) {
		if m[1] < len(data) && !strings.ContainsRune(",}#", rune(data[m[1]])) {
			continue
		}
		name := string(data[m[2]:m[3]])
		if months[strings.ToLower(name)] || seen[name] {
			continue
		}
		seen[name] = true
		fmt.Fprintf(&b, "@string{%s = \"%s\"}\n", name, name)
	}
	return b.String()
}

// Parse parses data read from name, choosing the format by extension:
// ".json" is a Paperpile export, anything else is BibTeX.
func Parse(name string, data []byte) ([]record.Record, []error) {
	if strings.EqualFold(path.Ext(name), ".json") {
		return ParsePaperpile(data)
	}
	return ParseBibTeX(data)
}

// ParseBibTeX parses BibTeX data into records.
//
// The whole input is parsed first. If that fails, the input is split into
// entries and each is parsed on its own, so one malformed entry costs only
// itself; its error is returned alongside the records that did parse.
func ParseBibTeX(data []byte) ([]record.Record, []error) {
	prelude := monthStrings + placeholders(data)
	bib, err := parse(prelude, data)
	if err == nil {
		return toRecords(bib)
	}

	var recs []record.Record
	var errs []error
	for i, chunk := range splitEntries(data) {
		if stringEntry.Match(chunk) {
			if _, err := parse(prelude, chunk); err != nil {
				errs = append(errs, fmt.Errorf("string definition %d: %w", i+1, err))
				continue
			}
			prelude += string(chunk) + "\n"
			continue
		}
		bib, err := parse(prelude, chunk)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, chunkKey(chunk), err))
			continue
		}
		r, e := toRecords(bib)
		recs = append(recs, r...)
		errs = append(errs, e...)
	}
	return recs, errs
}

func parse(prelude string, data []byte) (bib *bibtex.BibTex, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("parsing BibTeX: %v", p)
		}
	}()
	in := bytes.NewBufferString(prelude)
	in.Write(data)
	bib, err = bibtex.Parse(in)
	if err != nil {
		return nil, fmt.Errorf("parsing BibTeX: %w", err)
	}
	return bib, nil
}

// splitEntries cuts data at every line that starts an entry. Text before
// the first entry is dropped, as BibTeX treats it as a comment.
func splitEntries(data []byte) [][]byte {
	locs := entryStart.FindAllIndex(data, -1)
	chunks := make([][]byte, 0, len(locs))
	for i, loc := range locs {
		end := len(data)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunks = append(chunks, data[loc[0]:end])
	}
	return chunks
}

var chunkKeyPattern = regexp.MustCompile(`@\w+\s*\{\s*([^,\s]+)`)

func chunkKey(chunk []byte) string {
	if m := chunkKeyPattern.FindSubmatch(chunk); m != nil {
		return string(m[1])
	}
	return "?"
}

func toRecords(bib *bibtex.BibTex) ([]record.Record, []error) {
	var recs []record.Record
	var errs []error
	for i, entry := range bib.Entries {
		r, err := entryToRecord(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, entry.CiteName, err))
			continue
		}
		recs = append(recs, r)
	}
	return recs, errs
}

// entryToRecord converts a parsed entry, keeping field values as TeX.
func entryToRecord(entry *bibtex.BibEntry) (r record.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reading fields: %v", p)
		}
	}()
	key := strings.TrimSpace(entry.CiteName)
	if key == "" {
		return record.Record{}, fmt.Errorf("missing citation key")
	}
	fields := make(map[string]string, len(entry.Fields))
	for name, value := range entry.Fields {
		if value == nil {
			continue
		}
		fields[name] = value.String()
	}
	return record.New(entry.Type, key, fields), nil
}
