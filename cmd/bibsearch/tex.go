package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/matsen/bibsearch/internal/export"
	"github.com/matsen/bibsearch/internal/record"
	"github.com/matsen/bibsearch/internal/storage"
)

var (
	texWriteBib     bool
	texOverwriteBib bool
)

func init() {
	texCmd.Flags().BoolVarP(&texWriteBib, "write-bibfile", "b", false, "Write the .bib file named by \\bibdata")
	texCmd.Flags().BoolVarP(&texOverwriteBib, "overwrite-bibfile", "B", false, "Like -b, replacing an existing .bib file")
	rootCmd.AddCommand(texCmd)
}

var texCmd = &cobra.Command{
	Use:   "tex <file.tex|file.aux>",
	Short: "Create the .bib file for a LaTeX document",
	Long: `Collect the BibTeX entries a LaTeX document cites.

The keys are read from the \citation lines of the document's .aux file
(run latex first). The entries are printed, or with -b written to the
.bib file the document's \bibliography names.

Examples:
  bibsearch tex paper.tex
  bibsearch tex paper.aux -B`,
	Args: cobra.ExactArgs(1),
	RunE: runTex,
}

func runTex(cmd *cobra.Command, args []string) error {
	auxPath := export.AuxPath(args[0])
	aux, err := export.ReadAux(args[0])
	if err != nil {
		return withCode(ExitDataError, err)
	}

	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		recs, err := citedRecords(ctx, a.store, aux.Citations)
		if err != nil {
			return err
		}
		content := export.ToBibTeXList(recs, export.BibTeXOptions{})

		if !texWriteBib && !texOverwriteBib {
			outputHuman("%s", content)
			return nil
		}
		if aux.BibData == "" {
			slog.Warn("no \\bibdata line found, printing entries", "aux", auxPath)
			outputHuman("%s", content)
			return nil
		}

		bibfile := export.BibFilePath(auxPath, aux.BibData)
		err = export.WriteBibFile(bibfile, content, texOverwriteBib)
		if errors.Is(err, export.ErrBibFileExists) {
			return fmt.Errorf("refusing to overwrite bib file %s; use -B to force", bibfile)
		}
		if err != nil {
			return err
		}
		slog.Info("wrote bib file", "path", bibfile, "entries", len(recs))
		return nil
	})
}

// citedRecords looks up every cited key. Keys not in the store are
// reported and skipped.
func citedRecords(ctx context.Context, store *storage.Store, keys []string) ([]record.Record, error) {
	var recs []record.Record
	for _, key := range keys {
		r, err := store.GetByKey(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			slog.Warn("entry not found", "key", key)
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, nil
}
