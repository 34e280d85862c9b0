package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "Research task orchestration engine",
	Long: `Maestro routes research requests to LLM-backed agents and runs them
as workflows.

Core capabilities:
- Classifies requests into research task types
- Routes each type to a group of specialised agents
- Runs declarative workflows sequentially, in parallel, conditionally or as a DAG
- Runs literature reviews end to end: search, analysis, gaps, synthesis
- Archives run results and execution contexts in SQLite`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config plus .maestro.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Write debug logs to stderr")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
