package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/bibsearch/internal/author"
	"github.com/matsen/bibsearch/internal/record"
)

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	// Try int directly
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexibleString(strconv.Itoa(i))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// PaperpileEntry represents a single entry from a Paperpile JSON export.
type PaperpileEntry struct {
	ID        string `json:"_id"`
	Citekey   string `json:"citekey"`
	DOI       string `json:"doi"`
	Title     string `json:"title"`
	Abstract  string `json:"abstract"`
	Journal   string `json:"journal"`
	Published struct {
		Year  FlexibleString `json:"year"`
		Month FlexibleString `json:"month"`
		Day   FlexibleString `json:"day"`
	} `json:"published"`
	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
		ORCID string `json:"orcid"`
	} `json:"author"`
	Pubtype     string `json:"pubtype"`
	URL         string `json:"url"`
	Attachments []struct {
		ID         string `json:"_id"`
		ArticlePDF int    `json:"article_pdf"` // 1 = main PDF, 0 = supplement
		Filename   string `json:"filename"`
	} `json:"attachments"`
}

// ParsePaperpile parses a Paperpile JSON export into records.
func ParsePaperpile(data []byte) ([]record.Record, []error) {
	var entries []PaperpileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, []error{fmt.Errorf("parsing Paperpile JSON: %w", err)}
	}

	var recs []record.Record
	var errs []error

	for i, entry := range entries {
		r, err := paperpileEntryToRecord(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, entry.Citekey, err))
			continue
		}
		recs = append(recs, r)
	}

	return recs, errs
}

// paperpileTypes maps Paperpile publication types to BibTeX entry types.
var paperpileTypes = map[string]string{
	"JOUR": "article",
	"CONF": "inproceedings",
	"BOOK": "book",
	"CHAP": "incollection",
	"THES": "phdthesis",
	"RPRT": "techreport",
}

func paperpileEntryToRecord(entry PaperpileEntry) (record.Record, error) {
	if entry.Title == "" {
		return record.Record{}, fmt.Errorf("missing required field 'title'")
	}
	if len(entry.Author) == 0 {
		return record.Record{}, fmt.Errorf("missing required field 'author'")
	}
	year := entry.Published.Year.String()
	if year == "" {
		return record.Record{}, fmt.Errorf("missing required field 'published.year'")
	}
	if _, err := strconv.Atoi(year); err != nil {
		return record.Record{}, fmt.Errorf("invalid year: %s", year)
	}

	names := make([]author.Name, len(entry.Author))
	for i, a := range entry.Author {
		names[i] = author.Name{Surname: a.Last, Given: a.First}
	}

	fields := map[string]string{
		"author":   author.FormatList(names),
		"title":    entry.Title,
		"journal":  entry.Journal,
		"year":     year,
		"doi":      entry.DOI,
		"abstract": entry.Abstract,
		"url":      entry.URL,
	}
	if month, err := strconv.Atoi(entry.Published.Month.String()); err == nil && month >= 1 && month <= 12 {
		fields["month"] = strconv.Itoa(month)
	}

	var files []string
	for _, att := range entry.Attachments {
		if att.ArticlePDF == 1 {
			files = append([]string{att.Filename}, files...)
		} else {
			files = append(files, att.Filename)
		}
	}
	fields["file"] = strings.Join(files, ";")

	entryType := paperpileTypes[strings.ToUpper(entry.Pubtype)]
	if entryType == "" {
		entryType = "article"
	}

	// Use citekey as key, falling back to Paperpile ID if no citekey
	key := entry.Citekey
	if key == "" {
		key = entry.ID
	}

	return record.New(entryType, key, fields), nil
}
