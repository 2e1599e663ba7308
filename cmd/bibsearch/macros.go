package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(macrosCmd)
}

var macrosCmd = &cobra.Command{
	Use:   "macros",
	Short: "Show defined query macros",
	Long: `Show the query macros, built-in ones first.

User macros are defined under "macros" in the config file:

  macros:
    mt: title:translation
    me: author:post`,
	Args: cobra.NoArgs,
	RunE: runMacros,
}

func runMacros(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	macros := cfg.MacroTable().All()
	if jsonOutput {
		return outputJSON(macros)
	}
	for _, m := range macros {
		outputHuman("%s:\t%s\n", m.Name, m.Expansion)
	}
	return nil
}
