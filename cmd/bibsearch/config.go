package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/bibsearch/internal/config"
)

var (
	configWrite bool
	configForce bool
)

func init() {
	configCmd.Flags().BoolVar(&configWrite, "write", false, "Write the effective configuration to the config file")
	configCmd.Flags().BoolVar(&configForce, "force", false, "With --write, replace an existing config file")
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  bibsearch config                          # Show the effective config
  bibsearch config editor                   # Get a value
  bibsearch config default-output-format bib  # Set a value
  bibsearch config --write                  # Create a config file

Keys:
  bibsearch_dir          Where the database and last query live (~/.bibsearch)
  download_dir           Scratch directory for downloads
  open_command           Program used by "open"
  database_url           Where bib:// collections are looked up
  custom_key_format      Citation key template, e.g. {surname}{year}{suffix}:{title}
  editor                 Program used by "edit"
  default_output_format  txt, bib, md or json
  search_backend         auto, index or filter
  fetch_rate             Maximum downloads per second

Environment variables BIBSEARCH_<KEY> override the file.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
	Path   string `json:"path"`
}

// configPath is the file config changes are written to.
func configPath(cfg *config.Config) string {
	switch {
	case configFile != "":
		return config.ExpandTilde(configFile)
	case cfg.File != "":
		return cfg.File
	}
	return config.Path()
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := configPath(cfg)

	switch len(args) {
	case 0:
		if configWrite {
			if err := cfg.WriteFile(path, configForce); err != nil {
				return withCode(ExitConfigError, err)
			}
			if jsonOutput {
				return outputJSON(StatusResponse{Status: "written", Path: path})
			}
			outputHuman("Wrote %s\n", path)
			return nil
		}
		if jsonOutput {
			return outputJSON(cfg)
		}
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		if cfg.File != "" {
			outputHuman("# %s\n", cfg.File)
		}
		os.Stdout.Write(data)
		return nil

	case 1:
		value, ok := cfg.Get(args[0])
		if !ok {
			return &config.Error{Key: args[0], Err: fmt.Errorf("unknown configuration key")}
		}
		if jsonOutput {
			return outputJSON(map[string]string{args[0]: value})
		}
		outputHuman("%s\n", value)
		return nil
	}

	key, value := args[0], args[1]
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.WriteFile(path, true); err != nil {
		return withCode(ExitConfigError, fmt.Errorf("saving config: %w", err))
	}
	if jsonOutput {
		return outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value, Path: path})
	}
	outputHuman("Updated %s to %s\n", key, value)
	return nil
}
