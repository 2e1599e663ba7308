package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matsen/bibsearch/internal/keygen"
	"github.com/matsen/bibsearch/internal/query"
	"github.com/matsen/bibsearch/internal/search"
)

// isolate points HOME and XDG_CONFIG_HOME at empty directories so that the
// developer's own config never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, EnvPrefix+"_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return home
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want none", cfg.File)
	}
	if want := filepath.Join(home, ".bibsearch"); cfg.BibsearchDir != want {
		t.Errorf("BibsearchDir = %q, want %q", cfg.BibsearchDir, want)
	}
	if cfg.CustomKeyFormat != keygen.DefaultTemplate {
		t.Errorf("CustomKeyFormat = %q", cfg.CustomKeyFormat)
	}
	if cfg.KeyTemplate().String() != keygen.DefaultTemplate {
		t.Errorf("KeyTemplate() = %q", cfg.KeyTemplate())
	}
	if cfg.BackendMode() != search.ModeAuto {
		t.Errorf("BackendMode() = %q, want auto", cfg.BackendMode())
	}
	if cfg.DefaultOutputFormat != "txt" {
		t.Errorf("DefaultOutputFormat = %q, want txt", cfg.DefaultOutputFormat)
	}
	if got := cfg.DBPath(); got != filepath.Join(home, ".bibsearch", DBFile) {
		t.Errorf("DBPath() = %q", got)
	}
}

func TestLoadDefaultLocation(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", ConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte("editor: vi\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Editor != "vi" {
		t.Errorf("Editor = %q, want vi", cfg.Editor)
	}
	if cfg.File != filepath.Join(dir, ConfigFile) {
		t.Errorf("File = %q", cfg.File)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
bibsearch_dir: ~/bib
custom_key_format: "{surname}{short_year}{suffix}_{title}"
search_backend: filter
default_output_format: bib
fetch_rate: 0.5
colour: blue
macros:
  mt: venue:"Machine Translation"
  me: author:"post, matt"
`)
	t.Setenv("BIBSEARCH_EDITOR", "emacs")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	home, _ := os.UserHomeDir()
	if cfg.BibsearchDir != filepath.Join(home, "bib") {
		t.Errorf("BibsearchDir = %q, tilde not expanded", cfg.BibsearchDir)
	}
	if cfg.Editor != "emacs" {
		t.Errorf("Editor = %q, want emacs from environment", cfg.Editor)
	}
	if cfg.BackendMode() != search.ModeFilter {
		t.Errorf("BackendMode() = %q, want filter", cfg.BackendMode())
	}
	if cfg.FetchRate != 0.5 {
		t.Errorf("FetchRate = %v", cfg.FetchRate)
	}
	if !reflect.DeepEqual(cfg.Unknown, []string{"colour"}) {
		t.Errorf("Unknown = %v, want [colour]", cfg.Unknown)
	}

	if exp, ok := cfg.MacroTable().User("me"); !ok || exp != `author:"post, matt"` {
		t.Errorf("User(me) = %q, %v", exp, ok)
	}
	q, err := query.Parse("mt", cfg.MacroTable())
	if err != nil {
		t.Fatalf("Parse(mt) error = %v", err)
	}
	if q.String() != `venue:"Machine Translation"` {
		t.Errorf("Parse(mt) = %q", q.String())
	}
}

func TestLoadMacroNamesKeepCase(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "macros:\n  WMT19: venue:\"Fourth Conference\" year:2019\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := cfg.MacroTable().User("wmt19"); ok {
		t.Error("User(wmt19) found, macro names should keep their case")
	}
	q, err := query.Parse("WMT19", cfg.MacroTable())
	if err != nil {
		t.Fatalf("Parse(WMT19) error = %v", err)
	}
	if q.String() != `venue:"Fourth Conference" year:2019` {
		t.Errorf("Parse(WMT19) = %q, want the expansion", q.String())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		key     string
		wraps   func(error) bool
	}{
		{"macro collides with builtin", "macros:\n  acl: title:foo\n", KeyMacros, func(err error) bool {
			var e *query.MacroCollisionError
			return errors.As(err, &e)
		}},
		{"macro with @", "macros:\n  \"@mine\": title:foo\n", KeyMacros, func(err error) bool {
			var e *query.InvalidMacroNameError
			return errors.As(err, &e)
		}},
		{"unknown placeholder", "custom_key_format: \"{surname}{month}\"\n", KeyCustomKeyFormat, func(err error) bool {
			var e *keygen.UnknownPlaceholderError
			return errors.As(err, &e)
		}},
		{"bad backend", "search_backend: elastic\n", KeySearchBackend, nil},
		{"bad format", "default_output_format: pdf\n", KeyDefaultOutputFormat, nil},
		{"bad rate", "fetch_rate: 0\n", KeyFetchRate, nil},
		{"bad yaml", "macros: [\n", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load(writeConfig(t, tt.content))
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("Load() error = %v, want *Error", err)
			}
			if cerr.Key != tt.key {
				t.Errorf("Key = %q, want %q", cerr.Key, tt.key)
			}
			if tt.wraps != nil && !tt.wraps(err) {
				t.Errorf("error %v does not wrap the expected type", err)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Load() error = %v, want *Error", err)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "sub", ConfigFile)

	cfg := Default()
	cfg.Editor = "vim"
	if err := cfg.WriteFile(path, false); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := cfg.WriteFile(path, false); err == nil {
		t.Error("WriteFile() should refuse to overwrite")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Editor != "vim" {
		t.Errorf("Editor = %q, want vim", loaded.Editor)
	}
	if len(loaded.Unknown) != 0 {
		t.Errorf("Unknown = %v, want none", loaded.Unknown)
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/x/y", filepath.Join(home, "x/y")},
		{"/abs", "/abs"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		if got := ExpandTilde(tt.in); got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetSet(t *testing.T) {
	isolate(t)
	cfg := Default()

	if err := cfg.Set("default-output-format", "bib"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, ok := cfg.Get(KeyDefaultOutputFormat); !ok || got != "bib" {
		t.Errorf("Get() = %q, %v, want bib", got, ok)
	}

	if err := cfg.Set(KeyFetchRate, "0.5"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := cfg.Get(KeyFetchRate); got != "0.5" {
		t.Errorf("Get(fetch_rate) = %q, want 0.5", got)
	}

	tests := []struct {
		key, value string
	}{
		{KeyFetchRate, "fast"},
		{KeyFetchRate, "-1"},
		{KeyDefaultOutputFormat, "html"},
		{KeyCustomKeyFormat, "{surname}{nope}"},
		{KeySearchBackend, "bm25"},
		{KeyMacros, "x"},
		{"pdf_root", "/tmp"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := cfg.Set(tt.key, tt.value)
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Set() error = %v, want *Error", err)
			}
		})
	}
	if cfg.DefaultOutputFormat != "bib" || cfg.FetchRate != 0.5 {
		t.Errorf("failed Set() changed the config: %+v", cfg)
	}
	if cfg.KeyTemplate().String() != keygen.DefaultTemplate {
		t.Errorf("failed Set() changed the key template: %q", cfg.KeyTemplate())
	}

	if _, ok := cfg.Get("pdf_root"); ok {
		t.Error("Get() should not know pdf_root")
	}
}
