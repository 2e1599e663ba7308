package main

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matsen/bibsearch/internal/storage"
)

var downloadsForget []string

func init() {
	downloadsCmd.Flags().StringSliceVar(&downloadsForget, "forget", nil, "Drop these URLs from the download list")
	rootCmd.AddCommand(downloadsCmd)
}

var downloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "List the remote files added so far",
	Long: `List the remote files added so far, most recent first.

"bibsearch add" skips a listed URL unless --redownload is given;
--forget drops URLs from the list instead.`,
	Args: cobra.NoArgs,
	RunE: runDownloads,
}

func runDownloads(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		if len(downloadsForget) > 0 {
			for _, url := range downloadsForget {
				if err := a.store.ForgetDownloaded(ctx, url); err != nil {
					return err
				}
			}
			if jsonOutput {
				return outputJSON(StatusResponse{Status: "forgotten", Count: len(downloadsForget)})
			}
			outputHuman("Forgot %d files.\n", len(downloadsForget))
			return nil
		}

		downloads, err := a.store.Downloads(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			if downloads == nil {
				downloads = []storage.Download{}
			}
			return outputJSON(downloads)
		}
		for _, d := range downloads {
			outputHuman("%-16s %s\n", humanize.Time(d.DownloadedAt), d.File)
		}
		return nil
	})
}
