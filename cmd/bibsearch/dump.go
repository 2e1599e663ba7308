package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(rebuildCmd)
}

var dumpCmd = &cobra.Command{
	Use:   "dump <file.jsonl>",
	Short: "Write every record to a JSONL file",
	Long: `Write every record, in the order it was added, to a JSONL file.

The file is plain text with one record per line, suitable for keeping the
collection under git. "bibsearch restore" reads it back.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file.jsonl>",
	Short: "Replace the collection with a JSONL dump",
	Long: `Replace every record with those of a file written by "bibsearch dump".

Either the whole file is restored or nothing changes. The list of
downloaded files is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the full-text search index",
	Long: `Rebuild the full-text search index from the stored records.

The index is kept up to date on every change, so this is only needed after
the database file was modified by other tools.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func runDump(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		n, err := a.store.DumpJSONL(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(StatusResponse{Status: "dumped", Path: args[0], Count: n})
		}
		outputHuman("Wrote %d records to %s\n", n, args[0])
		return nil
	})
}

func runRestore(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		n, err := a.store.RestoreJSONL(ctx, args[0])
		if err != nil {
			return withCode(ExitDataError, err)
		}
		if jsonOutput {
			return outputJSON(StatusResponse{Status: "restored", Path: args[0], Count: n})
		}
		outputHuman("Restored %d records from %s\n", n, args[0])
		return nil
	})
}

func runRebuild(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		if !a.store.Indexed() {
			return withCode(ExitConfigError, errors.New("full-text index unavailable (search_backend is filter, or SQLite lacks FTS5)"))
		}
		if err := a.store.Reindex(ctx); err != nil {
			return err
		}
		n, err := a.store.Count(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(StatusResponse{Status: "rebuilt", Path: a.store.Path(), Count: n})
		}
		outputHuman("Indexed %d records\n", n)
		return nil
	})
}
