package cmd

import (
	"github.com/spf13/cobra"

	"github.com/msto63/chainfeed/pkg/core/version"
)

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Show version information",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeValue(cmd.OutOrStdout(), outputFormat, version.Get("feedctl"))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
