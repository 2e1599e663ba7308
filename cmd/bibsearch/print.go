package main

import (
	"context"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matsen/bibsearch/internal/export"
)

var printSummary bool

func init() {
	printCmd.Flags().BoolVar(&printSummary, "summary", false, "Just print a summary")
	rootCmd.AddCommand(printCmd)
}

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the whole collection as BibTeX",
	Args:  cobra.NoArgs,
	RunE:  runPrint,
}

// SummaryResult is the response for print --summary.
type SummaryResult struct {
	Path      string         `json:"path"`
	SizeBytes int64          `json:"size_bytes"`
	Records   int            `json:"records"`
	ByType    map[string]int `json:"by_type"`
	Downloads int            `json:"downloads"`
	Indexed   bool           `json:"indexed"`
}

func runPrint(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		if !printSummary {
			recs, err := a.store.All(ctx)
			if err != nil {
				return err
			}
			return export.Write(os.Stdout, export.FormatBibTeX, recs, false)
		}

		st, err := a.store.Stats(ctx)
		if err != nil {
			return err
		}
		res := SummaryResult{
			Path:      a.store.Path(),
			Records:   st.Records,
			ByType:    st.ByType,
			Downloads: st.Downloads,
			Indexed:   st.Indexed,
		}
		if info, err := os.Stat(res.Path); err == nil {
			res.SizeBytes = info.Size()
		}
		if jsonOutput {
			return outputJSON(res)
		}

		outputHuman("Database has %s entries\n", humanize.Comma(int64(st.Records)))
		outputHuman("  file:       %s (%s)\n", res.Path, humanize.Bytes(uint64(res.SizeBytes)))
		types := make([]string, 0, len(st.ByType))
		for t := range st.ByType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			outputHuman("  %-11s %s\n", t+":", humanize.Comma(int64(st.ByType[t])))
		}
		if st.Records > 0 {
			outputHuman("  first add:  %s\n", humanize.Time(st.OldestAdded))
			outputHuman("  last add:   %s\n", humanize.Time(st.NewestAdded))
		}
		outputHuman("  downloads:  %s files\n", humanize.Comma(int64(st.Downloads)))
		if !st.Indexed {
			outputHuman("  full-text index unavailable; searching by filter\n")
		}
		return nil
	})
}
