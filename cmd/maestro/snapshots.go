package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/state"
)

var snapshotsRun string

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect saved execution contexts",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved context snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotsList,
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <snapshot-id>",
	Short: "Print a snapshot's context data, agents and message history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsShow,
}

var snapshotsDeleteCmd = &cobra.Command{
	Use:   "delete <snapshot-id>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsDelete,
}

func init() {
	snapshotsListCmd.Flags().StringVar(&snapshotsRun, "run", "", "Only list snapshots of this run")

	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsDeleteCmd)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return withDB(func(db *state.DB) error {
		snaps, err := db.ListSnapshots(snapshotsRun)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Fprintln(out, "No snapshots.")
			return nil
		}
		for _, s := range snaps {
			run := s.RunID
			if run == "" {
				run = "-"
			}
			fmt.Fprintf(out, "%s  %s  run=%s  %s\n", s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), run, s.Label)
		}
		return nil
	})
}

func runSnapshotsShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return withDB(func(db *state.DB) error {
		snap, err := db.GetSnapshot(args[0])
		if err != nil {
			return err
		}
		// Round-trip through a context so corrupt snapshots are reported.
		if _, err := db.RestoreContext(snap.ID); err != nil {
			return fmt.Errorf("snapshot %s is not a valid context: %w", snap.ID, err)
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, snap.Data, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(out, pretty.String())
		return nil
	})
}

func runSnapshotsDelete(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return withDB(func(db *state.DB) error {
		if _, err := db.GetSnapshot(args[0]); err != nil {
			return err
		}
		if err := db.DeleteSnapshot(args[0]); err != nil {
			return err
		}
		printStatus(out, "✓", fmt.Sprintf("Deleted snapshot %s", args[0]), color.FgGreen)
		return nil
	})
}
