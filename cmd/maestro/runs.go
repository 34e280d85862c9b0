package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/state"
)

var (
	runsLimit int
	runsJSON  bool
	runsPurge time.Duration
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived workflow runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show an archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete runs older than --older-than",
	Long: `Delete archived runs older than --older-than. Snapshots saved with
those runs are kept and detached.`,
	Args: cobra.NoArgs,
	RunE: runRunsPurge,
}

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list (0 for all)")
	runsShowCmd.Flags().BoolVar(&runsJSON, "json", false, "Print the full result as JSON")
	runsPurgeCmd.Flags().DurationVar(&runsPurge, "older-than", 30*24*time.Hour, "Age threshold")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsPurgeCmd)
}

// withDB opens the configured archive for the duration of fn.
func withDB(fn func(db *state.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := state.OpenMigrated(cfg.State.Driver, cfg.State.Path)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return withDB(func(db *state.DB) error {
		runs, err := db.ListRuns(runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No archived runs. Use 'maestro run --save' to archive one.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%s  %s  %-20s %-11s %-10s %d/%d/%d\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Workflow, r.Mode,
				statusColor(r.Status), r.Succeeded, r.Failed, r.Skipped)
		}
		return nil
	})
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return withDB(func(db *state.DB) error {
		run, err := db.GetRun(args[0])
		if err != nil {
			return err
		}
		if runsJSON {
			data, err := json.MarshalIndent(run, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Status:    %s\n", statusColor(run.Status))
		if run.Result != nil {
			printResult(out, run.Result)
		}

		snaps, err := db.ListSnapshots(run.ID)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Fprintf(out, "\nSnapshot %s %s\n", s.ID, s.Label)
		}
		return nil
	})
}

func runRunsPurge(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return withDB(func(db *state.DB) error {
		n, err := db.PurgeOldRuns(runsPurge)
		if err != nil {
			return err
		}
		printStatus(out, "✓", fmt.Sprintf("Purged %d runs", n), color.FgGreen)
		return nil
	})
}

func statusColor(s state.RunStatus) string {
	switch s {
	case state.RunSucceeded:
		return color.GreenString(string(s))
	case state.RunPartial, state.RunCanceled:
		return color.YellowString(string(s))
	default:
		return color.RedString(string(s))
	}
}
