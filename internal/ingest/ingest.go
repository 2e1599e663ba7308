// Package ingest adds bibliography files to the record store.
//
// A source is a local file, an http(s) URL, a DOI, a PDF or a bibspec
// (bib://name/...).
// Each file is parsed, every record is checked against the store for an
// existing copy of the same work, given a citation key and inserted.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/matsen/bibsearch/internal/importer"
	"github.com/matsen/bibsearch/internal/keygen"
	"github.com/matsen/bibsearch/internal/pdf"
	"github.com/matsen/bibsearch/internal/record"
	"github.com/matsen/bibsearch/internal/storage"
)

// Store is the part of the record store ingestion needs.
type Store interface {
	Keys(ctx context.Context) (keygen.KeySet, error)
	LookupByOriginalSource(ctx context.Context, r record.Record) (*record.Record, error)
	Insert(ctx context.Context, r record.Record) error
	HasDownloaded(ctx context.Context, file string) (bool, error)
	RegisterDownloaded(ctx context.Context, file string) error
}

// Fetcher downloads remote files.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	// DOI returns the BibTeX registered for a DOI.
	DOI(ctx context.Context, doi string) ([]byte, error)
}

// Ingester runs the add pipeline.
type Ingester struct {
	store       Store
	fetcher     Fetcher
	template    *keygen.Template
	databaseURL string
	logger      *slog.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithDatabaseURL sets the base URL bibspecs are resolved against.
func WithDatabaseURL(url string) Option {
	return func(in *Ingester) {
		if url != "" && !strings.HasSuffix(url, "/") {
			url += "/"
		}
		in.databaseURL = url
	}
}

// WithLogger sets the logger for per-entry warnings.
func WithLogger(l *slog.Logger) Option {
	return func(in *Ingester) {
		in.logger = l
	}
}

// New creates an Ingester.
func New(store Store, fetcher Fetcher, template *keygen.Template, opts ...Option) *Ingester {
	in := &Ingester{
		store:    store,
		fetcher:  fetcher,
		template: template,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// FileResult is the outcome of adding one file.
type FileResult struct {
	File    string
	Added   int
	Skipped int // duplicates
	// Cached is set when a remote file was skipped because it had been
	// downloaded before.
	Cached   bool
	Warnings []string
}

// Result sums the outcome of an Add call.
type Result struct {
	Files        []FileResult
	Added        int
	Skipped      int
	FilesSkipped int
	Warnings     []string
	// Errors holds files that could not be read or parsed at all. They do
	// not stop the remaining files.
	Errors []error
}

func (r *Result) add(fr FileResult) {
	r.Files = append(r.Files, fr)
	r.Added += fr.Added
	r.Skipped += fr.Skipped
	if fr.Cached {
		r.FilesSkipped++
	}
	r.Warnings = append(r.Warnings, fr.Warnings...)
}

// Add ingests every source. A bibspec that cannot be resolved is fatal;
// a file that cannot be read is recorded in Result.Errors.
func (in *Ingester) Add(ctx context.Context, sources []string, redownload bool) (*Result, error) {
	res := &Result{}
	for _, src := range sources {
		files := []string{src}
		if IsBibspec(src) {
			var err error
			if files, err = in.ResolveBibspec(ctx, src); err != nil {
				return res, err
			}
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			fr, err := in.AddFile(ctx, f, redownload)
			if err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			res.add(fr)
		}
	}
	return res, nil
}

// IsRemote reports whether source is fetched over HTTP.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

var doiPrefixes = []string{"doi:", "https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/"}

// IsDOI reports whether source names a DOI, as "doi:10..." or a resolver URL.
func IsDOI(source string) bool {
	lower := strings.ToLower(source)
	for _, p := range doiPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func isPDF(source string) bool {
	return strings.EqualFold(filepath.Ext(source), ".pdf")
}

// AddFile ingests a single source: a local BibTeX or Paperpile file, a
// remote file, a DOI, or a local PDF whose DOI is looked up. A remote file
// already in the download ledger is skipped unless redownload is set.
func (in *Ingester) AddFile(ctx context.Context, file string, redownload bool) (FileResult, error) {
	fr := FileResult{File: file}
	isDOI := IsDOI(file)
	remote := IsRemote(file) && !isDOI
	localPDF := !IsRemote(file) && isPDF(file)

	name := file
	var data []byte
	switch {
	case isDOI || localPDF:
		doi := pdf.NormalizeDOI(file)
		if localPDF {
			found, err := pdf.ExtractDOI(file)
			if err != nil {
				return fr, fmt.Errorf("reading %s: %w", file, err)
			}
			if found == "" {
				return fr, fmt.Errorf("no DOI found in %s", file)
			}
			doi = pdf.NormalizeDOI(found)
		}
		body, err := in.fetcher.DOI(ctx, doi)
		if err != nil {
			return fr, fmt.Errorf("resolving DOI %s: %w", doi, err)
		}
		name, data = doi+".bib", body
	case remote:
		if !redownload {
			seen, err := in.store.HasDownloaded(ctx, file)
			if err != nil {
				return fr, err
			}
			if seen {
				fr.Cached = true
				return fr, nil
			}
		}
		body, err := in.fetcher.Get(ctx, file)
		if err != nil {
			return fr, fmt.Errorf("downloading %s: %w", file, err)
		}
		data = body
	default:
		body, err := os.ReadFile(file)
		if err != nil {
			return fr, fmt.Errorf("reading %s: %w", file, err)
		}
		data = body
	}

	recs, parseErrs := importer.Parse(name, data)
	if len(recs) == 0 && len(parseErrs) > 0 {
		return fr, fmt.Errorf("parsing %s: %w", file, errors.Join(parseErrs...))
	}
	for _, err := range parseErrs {
		fr.Warnings = append(fr.Warnings, fmt.Sprintf("%s: skipped %v", file, err))
	}

	keys, err := in.store.Keys(ctx)
	if err != nil {
		return fr, err
	}
	for _, r := range recs {
		r.SourceURL = file
		added, warning, err := in.addRecord(ctx, r, keys)
		if err != nil {
			return fr, fmt.Errorf("adding %s from %s: %w", r.OriginalKey, file, err)
		}
		if warning != "" {
			fr.Warnings = append(fr.Warnings, warning)
		}
		if added {
			fr.Added++
		} else {
			fr.Skipped++
		}
	}

	if remote {
		if err := in.store.RegisterDownloaded(ctx, file); err != nil {
			return fr, err
		}
	}
	in.logger.Debug("added file", "file", file, "added", fr.Added, "skipped", fr.Skipped)
	return fr, nil
}

// addRecord inserts r unless the store already holds the same work. keys
// is updated with the key it receives.
func (in *Ingester) addRecord(ctx context.Context, r record.Record, keys keygen.KeySet) (bool, string, error) {
	dup, err := in.store.LookupByOriginalSource(ctx, r)
	if err != nil {
		return false, "", err
	}
	if dup != nil {
		return false, "", nil
	}

	var warning string
	key, err := keygen.Generate(r, keys, in.template)
	var missing *keygen.MissingFieldError
	switch {
	case errors.As(err, &missing):
		if r.OriginalKey == "" {
			return false, fmt.Sprintf("%v; no original key to fall back on, skipped", err), nil
		}
		if keys.Has(r.OriginalKey) {
			return false, fmt.Sprintf("%v; original key %q is taken, skipped", err, r.OriginalKey), nil
		}
		key = r.OriginalKey
		warning = fmt.Sprintf("%v; keeping the original key", err)
	case err != nil:
		return false, "", err
	}

	r.Key = key
	if err := in.store.Insert(ctx, r); err != nil {
		var dupKey *storage.DuplicateKeyError
		if errors.As(err, &dupKey) {
			return false, warning, nil
		}
		return false, warning, err
	}
	keys.Add(key)
	return true, warning, nil
}
