package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/bibsearch/internal/export"
	"github.com/matsen/bibsearch/internal/importer"
	"github.com/matsen/bibsearch/internal/opener"
	"github.com/matsen/bibsearch/internal/query"
	"github.com/matsen/bibsearch/internal/record"
)

var editYes bool

func init() {
	editCmd.Flags().BoolVarP(&editYes, "yes", "y", false, "Apply the changes without asking")
	rootCmd.AddCommand(editCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit [terms...]",
	Short: "Edit matching records in your editor",
	Long: `Open the matching records as BibTeX in the configured editor.

Fields may be changed, added or removed, and the citation key may be
renamed. Deleting an entry from the file removes the record. Each entry
carries an original_key field that ties it to its record; leave it alone.
A summary of the changes is shown before they are applied.

Examples:
  bibsearch edit key:post2018:fast
  EDITOR=vim bibsearch edit author:vilar`,
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		q, err := query.Words(args, a.cfg.MacroTable())
		if err != nil {
			return err
		}
		original, err := a.evaluator.Evaluate(ctx, q)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if len(original) == 0 {
			slog.Info("no entries to edit")
			return nil
		}

		edited, err := editRecords(ctx, opener.New(a.cfg.Editor), original)
		if err != nil {
			return err
		}
		res := export.CompareEdited(original, edited)
		for _, r := range res.Unmatched {
			slog.Warn("ignoring entry without a matching original_key", "key", r.OriginalKey)
		}
		if res.Empty() {
			slog.Info("there were no changes in the entries")
			return nil
		}

		fmt.Fprintf(os.Stderr, "Summary of changes:\n%s\n", changelog(res))
		if !editYes && prompt(stdin, os.Stderr, "Do you want to perform these changes?", []string{"YES", "no"}, 0) != "YES" {
			outputHuman("Aborted.\n")
			return nil
		}

		// Removals first, so renamed records may take over a freed key.
		for _, r := range res.Removed {
			if err := a.store.Remove(ctx, r.Key); err != nil {
				return err
			}
		}
		for _, c := range res.Changed {
			if err := a.store.Update(ctx, c.OldKey, c.Record); err != nil {
				return fmt.Errorf("updating %s: %w", c.OldKey, err)
			}
		}
		outputHuman("Updated database.\n")
		return nil
	})
}

// editRecords writes recs to a temporary BibTeX file, runs the editor on
// it and parses the result. A file that no longer parses cleanly is an
// error: entries lost to a syntax error would otherwise read as deletions.
func editRecords(ctx context.Context, editor *opener.Opener, recs []record.Record) ([]record.Record, error) {
	f, err := os.CreateTemp("", "bibsearch-*.bib")
	if err != nil {
		return nil, fmt.Errorf("creating temporary file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	_, err = f.WriteString(export.ToBibTeXList(recs, export.BibTeXOptions{WithOriginalKey: true}))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	if err := editor.Edit(ctx, path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	edited, errs := importer.ParseBibTeX(data)
	if len(errs) > 0 {
		return nil, withCode(ExitDataError, fmt.Errorf("edited file does not parse, nothing changed: %w", errors.Join(errs...)))
	}
	return edited, nil
}

// changelog describes an edit session for confirmation.
func changelog(res export.EditResult) string {
	var b strings.Builder
	for _, c := range res.Changed {
		fmt.Fprintf(&b, "\nEntry %s\n", c.OldKey)
		for _, name := range c.Added {
			fmt.Fprintf(&b, "\tAdded %s with value %q\n", name, c.Record.Field(name))
		}
		for _, name := range c.Deleted {
			fmt.Fprintf(&b, "\tDeleted %s\n", name)
		}
		for _, name := range c.Edited {
			var value string
			switch name {
			case "key":
				value = c.Record.Key
			case "type":
				value = c.Record.EntryType
			default:
				value = c.Record.Field(name)
			}
			fmt.Fprintf(&b, "\tChanged %s to %q\n", name, value)
		}
	}
	if len(res.Removed) > 0 {
		b.WriteString("\nDeleted entries:\n")
		for _, r := range res.Removed {
			fmt.Fprintf(&b, "\t%s\n", r.Key)
		}
	}
	return b.String()
}
