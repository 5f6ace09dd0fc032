package cmd

import (
	"log/slog"
	"os"

	"fetchflow/runtime"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	configDir string
	dataDir   string
)

var runCmd = &cobra.Command{
	Use:   "run [unit ...]",
	Short: "Run configured units, all of them or just the named ones",
	Long: `Run executes every action in each unit's flow, in order. Cache entries
younger than the action's max-age are restored from disk without touching
the network; everything else is fetched, cached, and committed.

Example:
  fetchflow run
  fetchflow run weather
  fetchflow run weather billing --config-dir ./config --data-dir ./data
`,
	RunE: runUnits,
}

func init() {
	runCmd.Flags().StringVar(&configDir, "config-dir", "config", "Directory holding unit files and "+runtime.SecretsFile)
	runCmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory cache files are written to")
}

func runUnits(cmd *cobra.Command, args []string) error {
	app, err := runtime.NewApp(configDir)
	if err != nil {
		return err
	}

	units, err := app.Select(args)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	executor := runtime.NewExecutor(logger, resty.New(), runtime.NewCacheManager(dataDir), runtime.NewDataStore())

	return executor.Run(cmd.Context(), units)
}
