// Package main provides the bibsearch CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configFile string
	jsonOutput bool
	verbose    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(reportError(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibsearch",
	Short: "Search, add and cite bibliographic records",
	Long: `bibsearch keeps a personal collection of BibTeX records.

Records are added from local files, URLs, DOIs and named remote collections
(bib://acl/2018), receive stable citation keys such as post2018:fast, and
are found again with keyword and field queries:

  bibsearch add bib://acl/2018
  bibsearch find author:post year:2018 decoding
  bibsearch tex paper.aux -b

An empty query repeats the last one, so "bibsearch open 2" opens the second
result of the previous search.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ~/.config/bibsearch/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Write summaries and errors as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages")
	rootCmd.Version = Version
}

// setup runs before every command: it loads .env and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()
	slog.SetDefault(newLogger(verbose))
	return nil
}

// newLogger writes level and message to stderr, without timestamps.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// reportError prints err in the selected format and returns the exit code.
func reportError(err error) int {
	code := exitCode(err)
	if jsonOutput {
		outputJSON(ErrorResponse{Error: err.Error(), Code: code})
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return code
}
