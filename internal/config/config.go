// Package config loads bibsearch configuration.
//
// Settings are layered: built-in defaults, then the YAML config file, then
// BIBSEARCH_* environment variables. The macro table and the key template
// are validated here, so configuration errors surface before any command
// touches the store.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/matsen/bibsearch/internal/keygen"
	"github.com/matsen/bibsearch/internal/query"
	"github.com/matsen/bibsearch/internal/search"
)

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "bibsearch"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// DBFile is the record store file name inside bibsearch_dir.
	DBFile = "bibsearch.db"
	// EnvPrefix prefixes environment overrides, e.g. BIBSEARCH_EDITOR.
	EnvPrefix = "BIBSEARCH"
)

// Config keys.
const (
	KeyBibsearchDir        = "bibsearch_dir"
	KeyDownloadDir         = "download_dir"
	KeyOpenCommand         = "open_command"
	KeyDatabaseURL         = "database_url"
	KeyCustomKeyFormat     = "custom_key_format"
	KeyEditor              = "editor"
	KeyDefaultOutputFormat = "default_output_format"
	KeySearchBackend       = "search_backend"
	KeyFetchRate           = "fetch_rate"
	KeyMacros              = "macros"
)

// OutputFormats lists the result formats.
var OutputFormats = []string{"txt", "bib", "md", "json"}

// Config is the effective configuration.
type Config struct {
	BibsearchDir        string            `yaml:"bibsearch_dir" json:"bibsearch_dir"`
	DownloadDir         string            `yaml:"download_dir" json:"download_dir"`
	OpenCommand         string            `yaml:"open_command" json:"open_command"`
	DatabaseURL         string            `yaml:"database_url" json:"database_url"`
	CustomKeyFormat     string            `yaml:"custom_key_format" json:"custom_key_format"`
	Editor              string            `yaml:"editor" json:"editor"`
	DefaultOutputFormat string            `yaml:"default_output_format" json:"default_output_format"`
	SearchBackend       string            `yaml:"search_backend" json:"search_backend"`
	FetchRate           float64           `yaml:"fetch_rate" json:"fetch_rate"` // requests per second
	Macros              map[string]string `yaml:"macros,omitempty" json:"macros,omitempty"`

	// File is the config file that was read, or "" if none was.
	File string `yaml:"-" json:"file,omitempty"`
	// Unknown lists keys in the config file that bibsearch does not use.
	Unknown []string `yaml:"-" json:"unknown,omitempty"`

	macros   *query.MacroTable
	template *keygen.Template
	backend  search.Mode
}

// Error is a configuration error. The CLI exits with a distinct code for it.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return "configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("configuration %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Dir returns the directory holding the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bibsearch.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir)
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), ConfigFile)
}

func defaultOpenCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	}
	return "xdg-open"
}

func defaultEditor() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "nano"
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault(KeyBibsearchDir, filepath.Join(home, ".bibsearch"))
	v.SetDefault(KeyDownloadDir, filepath.Join(os.TempDir(), "bibsearch"))
	v.SetDefault(KeyOpenCommand, defaultOpenCommand())
	v.SetDefault(KeyDatabaseURL, "https://github.com/mjpost/bibsearch/raw/master/resources/")
	v.SetDefault(KeyCustomKeyFormat, keygen.DefaultTemplate)
	v.SetDefault(KeyEditor, defaultEditor())
	v.SetDefault(KeyDefaultOutputFormat, "txt")
	v.SetDefault(KeySearchBackend, string(search.ModeAuto))
	v.SetDefault(KeyFetchRate, 2.0)
}

// Load reads configuration. An explicit path must exist; with path "" the
// default location is tried and a missing file is not an error.
func Load(path string) (*Config, error) {
	// Macro names may contain dots; keep viper from nesting on them.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(ExpandTilde(path))
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFile, filepath.Ext(ConfigFile)))
		if dir := Dir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, &Error{Err: fmt.Errorf("reading config file: %w", err)}
		}
	}

	cfg := &Config{
		BibsearchDir:        ExpandTilde(v.GetString(KeyBibsearchDir)),
		DownloadDir:         ExpandTilde(v.GetString(KeyDownloadDir)),
		OpenCommand:         v.GetString(KeyOpenCommand),
		DatabaseURL:         v.GetString(KeyDatabaseURL),
		CustomKeyFormat:     v.GetString(KeyCustomKeyFormat),
		Editor:              v.GetString(KeyEditor),
		DefaultOutputFormat: v.GetString(KeyDefaultOutputFormat),
		SearchBackend:       v.GetString(KeySearchBackend),
		FetchRate:           v.GetFloat64(KeyFetchRate),
		File:                v.ConfigFileUsed(),
		Unknown:             unknownKeys(v.AllKeys()),
	}
	if cfg.File != "" {
		macros, err := readMacros(cfg.File)
		if err != nil {
			return nil, &Error{Key: KeyMacros, Err: err}
		}
		cfg.Macros = macros
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readMacros decodes the macros node of a config file. viper lower-cases map
// keys, and macro names are case-sensitive.
func readMacros(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var file struct {
		Macros map[string]string `yaml:"macros"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding macros: %w", err)
	}
	return file.Macros, nil
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{
		BibsearchDir:        v.GetString(KeyBibsearchDir),
		DownloadDir:         v.GetString(KeyDownloadDir),
		OpenCommand:         v.GetString(KeyOpenCommand),
		DatabaseURL:         v.GetString(KeyDatabaseURL),
		CustomKeyFormat:     v.GetString(KeyCustomKeyFormat),
		Editor:              v.GetString(KeyEditor),
		DefaultOutputFormat: v.GetString(KeyDefaultOutputFormat),
		SearchBackend:       v.GetString(KeySearchBackend),
		FetchRate:           v.GetFloat64(KeyFetchRate),
	}
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	return cfg
}

var knownKeys = map[string]bool{
	KeyBibsearchDir: true, KeyDownloadDir: true, KeyOpenCommand: true, KeyDatabaseURL: true,
	KeyCustomKeyFormat: true, KeyEditor: true, KeyDefaultOutputFormat: true,
	KeySearchBackend: true, KeyFetchRate: true,
}

func unknownKeys(keys []string) []string {
	var unknown []string
	for _, k := range keys {
		if knownKeys[k] || k == KeyMacros || strings.HasPrefix(k, KeyMacros+"::") {
			continue
		}
		unknown = append(unknown, k)
	}
	sort.Strings(unknown)
	return unknown
}

func (c *Config) validate() error {
	if c.BibsearchDir == "" {
		return &Error{Key: KeyBibsearchDir, Err: errors.New("must not be empty")}
	}

	macros, err := query.NewMacroTable(c.Macros)
	if err != nil {
		return &Error{Key: KeyMacros, Err: err}
	}
	c.macros = macros

	tmpl, err := keygen.Compile(c.CustomKeyFormat)
	if err != nil {
		return &Error{Key: KeyCustomKeyFormat, Err: err}
	}
	c.template = tmpl

	mode, err := search.ParseMode(c.SearchBackend)
	if err != nil {
		return &Error{Key: KeySearchBackend, Err: err}
	}
	c.backend = mode

	if !validOutputFormat(c.DefaultOutputFormat) {
		return &Error{Key: KeyDefaultOutputFormat, Err: fmt.Errorf("unknown format %q (want one of %s)",
			c.DefaultOutputFormat, strings.Join(OutputFormats, ", "))}
	}
	if c.FetchRate <= 0 {
		return &Error{Key: KeyFetchRate, Err: fmt.Errorf("must be positive, got %v", c.FetchRate)}
	}
	return nil
}

func validOutputFormat(f string) bool {
	for _, v := range OutputFormats {
		if v == f {
			return true
		}
	}
	return false
}

// MacroTable returns the validated macro table.
func (c *Config) MacroTable() *query.MacroTable { return c.macros }

// KeyTemplate returns the compiled key template.
func (c *Config) KeyTemplate() *keygen.Template { return c.template }

// BackendMode returns the configured search backend mode.
func (c *Config) BackendMode() search.Mode { return c.backend }

// DBPath returns the path to the record store.
func (c *Config) DBPath() string {
	return filepath.Join(c.BibsearchDir, DBFile)
}

// YAML renders the effective configuration as a config file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteFile writes the configuration to path, creating parent directories.
// An existing file is left alone unless overwrite is set.
func (c *Config) WriteFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := c.YAML()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// Get returns the value of a config key as it would be written to the file.
func (c *Config) Get(key string) (string, bool) {
	switch normalizeKey(key) {
	case KeyBibsearchDir:
		return c.BibsearchDir, true
	case KeyDownloadDir:
		return c.DownloadDir, true
	case KeyOpenCommand:
		return c.OpenCommand, true
	case KeyDatabaseURL:
		return c.DatabaseURL, true
	case KeyCustomKeyFormat:
		return c.CustomKeyFormat, true
	case KeyEditor:
		return c.Editor, true
	case KeyDefaultOutputFormat:
		return c.DefaultOutputFormat, true
	case KeySearchBackend:
		return c.SearchBackend, true
	case KeyFetchRate:
		return strconv.FormatFloat(c.FetchRate, 'g', -1, 64), true
	}
	return "", false
}

// Set changes one key and validates the result. On error c is unchanged.
// Macros are edited in the file itself.
func (c *Config) Set(key, value string) error {
	next := *c
	switch k := normalizeKey(key); k {
	case KeyBibsearchDir:
		next.BibsearchDir = ExpandTilde(value)
	case KeyDownloadDir:
		next.DownloadDir = ExpandTilde(value)
	case KeyOpenCommand:
		next.OpenCommand = value
	case KeyDatabaseURL:
		next.DatabaseURL = value
	case KeyCustomKeyFormat:
		next.CustomKeyFormat = value
	case KeyEditor:
		next.Editor = value
	case KeyDefaultOutputFormat:
		next.DefaultOutputFormat = value
	case KeySearchBackend:
		next.SearchBackend = value
	case KeyFetchRate:
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &Error{Key: k, Err: fmt.Errorf("not a number: %q", value)}
		}
		next.FetchRate = rate
	case KeyMacros:
		return &Error{Key: k, Err: errors.New("edit macros in the config file")}
	default:
		return &Error{Key: key, Err: errors.New("unknown configuration key")}
	}
	if err := next.validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// normalizeKey accepts open-command as well as open_command.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}
