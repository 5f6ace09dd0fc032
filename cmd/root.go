package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fetchflow",
	Short: "fetchflow - declarative HTTP fetch runner",
	Long: `fetchflow executes config-defined sequences of HTTP calls, resolves
!secret and !jq markers inside request templates, caches results on disk
with a per-action max-age, and merges paginated endpoints into one result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
}
