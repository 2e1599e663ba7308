package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/bibsearch/internal/export"
	"github.com/matsen/bibsearch/internal/query"
)

var (
	findFormat      string
	findBibTeX      bool
	findOriginalKey bool
)

func init() {
	findCmd.Flags().StringVarP(&findFormat, "output-format", "f", "", "Output format: txt, bib, md or json (default from config)")
	findCmd.Flags().BoolVarP(&findBibTeX, "bibtex", "b", false, "Print entries as BibTeX")
	findCmd.Flags().BoolVar(&findOriginalKey, "original-key", false, "Show the keys the entries had in their source")
	rootCmd.AddCommand(findCmd)
}

var findCmd = &cobra.Command{
	Use:     "find [terms...]",
	Aliases: []string{"search"},
	Short:   "Search the collection",
	Long: `Search the collection. Terms are ANDed together.

Query Syntax:
  word            - Substring of any field
  "two words"     - Phrase
  author:name     - Any author's name
  title:word      - Title only (also venue:, year:, key:)
  @macro          - Expands to a stored query (see "bibsearch macros")

With no terms the last query is repeated.

Examples:
  bibsearch find post 2018
  bibsearch find author:vilar title:"error analysis"
  bibsearch find key:post2018:fast -b`,
	RunE: runFind,
}

// outputFormat picks -f, then -b, then the configured default.
func outputFormat(flag string, bibtex bool, def string) string {
	switch {
	case flag != "":
		return flag
	case bibtex:
		return export.FormatBibTeX
	}
	return def
}

func runFind(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		q, err := query.Words(args, a.cfg.MacroTable())
		if err != nil {
			return err
		}
		results, err := a.evaluator.Evaluate(ctx, q)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}

		format := outputFormat(findFormat, findBibTeX, a.cfg.DefaultOutputFormat)
		if err := export.Write(os.Stdout, format, results, findOriginalKey); err != nil {
			return withCode(ExitError, err)
		}
		return nil
	})
}
