package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/bibsearch/internal/ingest"
)

var addRedownload bool

func init() {
	addCmd.Flags().BoolVarP(&addRedownload, "redownload", "r", false, "Re-download files that were downloaded before")
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <file|url|doi|bib://spec>...",
	Short: "Add BibTeX files, URLs, DOIs or collections",
	Long: `Add bibliographic records.

Each source is one of:
  a local .bib file, or a Paperpile .json export
  an http(s) URL of a .bib file (skipped if downloaded before)
  a DOI (doi:10.1162/... or https://doi.org/10.1162/...)
  a local PDF, whose DOI is looked up
  a bibspec such as bib://acl/2018/long; "bib://list" lists the collections

Every record gets a citation key such as post2018:fast. Records already
in the collection are skipped.

Examples:
  bibsearch add references.bib
  bibsearch add https://aclanthology.org/N18-1119.bib
  bibsearch add bib://acl/2018`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

// AddResult is the response for the add command.
type AddResult struct {
	Added        int      `json:"added"`
	Skipped      int      `json:"skipped"`
	FilesSkipped int      `json:"files_skipped"`
	Warnings     []string `json:"warnings,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

func runAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		in := a.ingester()

		if len(args) == 1 && args[0] == ingest.ListSpec {
			return listCollections(ctx, in)
		}

		res, err := in.Add(ctx, args, addRedownload)
		if err != nil {
			return err
		}
		if verbose {
			for _, fr := range res.Files {
				if fr.Cached {
					slog.Debug("skipped downloaded file", "file", fr.File)
				} else {
					slog.Debug("added entries", "file", fr.File, "added", fr.Added)
				}
			}
		}

		out := AddResult{
			Added:        res.Added,
			Skipped:      res.Skipped,
			FilesSkipped: res.FilesSkipped,
			Warnings:     res.Warnings,
		}
		for _, e := range res.Errors {
			out.Errors = append(out.Errors, e.Error())
		}

		if jsonOutput {
			outputJSON(out)
		} else {
			for _, w := range out.Warnings {
				slog.Warn(w)
			}
			for _, e := range out.Errors {
				slog.Error(e)
			}
			outputHuman("Added %d entries, skipped %d duplicates. Skipped %d files\n",
				out.Added, out.Skipped, out.FilesSkipped)
		}

		if len(res.Errors) > 0 && len(res.Files) == 0 {
			return withCode(ExitDataError, fmt.Errorf("no source could be added"))
		}
		return nil
	})
}

func listCollections(ctx context.Context, in *ingest.Ingester) error {
	list, err := in.ListCollections(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(list)
	}
	outputHuman("Available collections:\n")
	for _, c := range list {
		outputHuman("  %-10s%s\n", c.Name, strings.TrimSpace(c.Description))
	}
	return nil
}
