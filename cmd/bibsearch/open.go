package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/bibsearch/internal/opener"
)

func init() {
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open [terms...|N]",
	Short: "Open the URL of a record",
	Long: `Open the URL of a record with the configured open_command.

With no arguments the first result of the last query is opened; with a
single number N the Nth result. Anything else is a query whose first
result is opened.

Examples:
  bibsearch find vilar 2018
  bibsearch open 2
  bibsearch open key:post2018:fast`,
	RunE: runOpen,
}

// OpenResult is the response for the open command.
type OpenResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func runOpen(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		r, err := a.evaluator.Resolve(ctx, args, a.cfg.MacroTable())
		if err != nil {
			return err
		}
		url := r.URL()
		if url == "" {
			return withCode(ExitDataError, fmt.Errorf("entry %s does not contain a URL field", r.Key))
		}
		if err := opener.New(a.cfg.OpenCommand).Open(url); err != nil {
			return fmt.Errorf("opening %s: %w", url, err)
		}
		if jsonOutput {
			return outputJSON(OpenResult{Key: r.Key, URL: url})
		}
		return nil
	})
}
