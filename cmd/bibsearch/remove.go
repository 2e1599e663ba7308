package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/bibsearch/internal/export"
	"github.com/matsen/bibsearch/internal/query"
	"github.com/matsen/bibsearch/internal/search"
)

var removeForce bool

func init() {
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Don't ask for confirmation")
	rootCmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:     "remove [terms...]",
	Aliases: []string{"rm"},
	Short:   "Remove matching records",
	Long: `Remove every record matching the query, after confirmation.

With no terms the records of the last query are removed.

Examples:
  bibsearch remove key:post2018:fast
  bibsearch rm author:vilar 2006 --force`,
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		q, err := query.Words(args, a.cfg.MacroTable())
		if err != nil {
			return err
		}
		results, err := a.evaluator.Evaluate(ctx, q)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if len(results) == 0 {
			return fmt.Errorf("%w; nothing removed", search.ErrNoResults)
		}

		if !removeForce {
			fmt.Fprint(os.Stderr, "You are about to delete these entries:\n\n")
			fmt.Fprintln(os.Stderr, export.ToBibTeXList(results, export.BibTeXOptions{}))
			if prompt(stdin, os.Stderr, "Do you want to proceed with the deletion?", []string{"yes", "NO"}, 1) != "yes" {
				outputHuman("Aborted.\n")
				return nil
			}
		}

		for _, r := range results {
			if err := a.store.Remove(ctx, r.Key); err != nil {
				return err
			}
		}
		if jsonOutput {
			return outputJSON(StatusResponse{Status: "removed", Count: len(results)})
		}
		outputHuman("Removed %d entries.\n", len(results))
		return nil
	})
}
