package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/scheduler"
	"github.com/ShayCichocki/maestro/pkg/models"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow-file>",
	Short: "Check a workflow definition without running it",
	Long: `Validate a workflow definition: step ids, agent references, mode,
conditions, retry policy and dependencies. Dependency cycles are reported
with the steps that form them. For a dag workflow the rounds in which
steps will be dispatched are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	wf, err := scheduler.LoadWorkflow(args[0])
	if err != nil {
		return err
	}

	result := scheduler.Validate(wf)
	if result.Valid {
		printStatus(out, "✓", fmt.Sprintf("%s: %d steps, %s mode", wf.Name, len(wf.Steps), wf.Mode), color.FgGreen)
		if wf.Mode != models.ModeDAG {
			return nil
		}
		rounds, err := scheduler.Rounds(wf)
		if err != nil {
			return err
		}
		for i, ids := range rounds {
			fmt.Fprintf(out, "  round %d: %s\n", i+1, strings.Join(ids, ", "))
		}
		return nil
	}
	for _, msg := range result.Errors {
		printStatus(out, "✗", msg, color.FgRed)
	}
	return fmt.Errorf("workflow %s is invalid", args[0])
}
