package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/config"
	"github.com/ShayCichocki/maestro/internal/scheduler"
	"github.com/ShayCichocki/maestro/internal/session"
	"github.com/ShayCichocki/maestro/internal/state"
	"github.com/ShayCichocki/maestro/pkg/models"
)

var (
	runSave  bool
	runLabel string
	runVars  []string
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-file>",
	Short: "Run a workflow definition",
	Long: `Run a workflow definition file (JSON, or YAML with a .yaml/.yml extension).

Steps are executed by the agents named in their agentRef, in the
workflow's mode: sequential, parallel, conditional or dag. Each step's
output is stored in the execution context under its outputKey (or its id).

Steps without a timeout use execution.task_timeout. A workflow without a
retryPolicy uses the configured retry settings.

Use --set key=value to seed the execution context before the run, and
--save to archive the result and the final context.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().BoolVar(&runSave, "save", false, "Archive the run result and execution context")
	runCmd.Flags().StringVar(&runLabel, "label", "", "Label for the saved context snapshot")
	runCmd.Flags().StringArrayVar(&runVars, "set", nil, "Seed a context value (key=value, repeatable)")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	wf, err := scheduler.LoadWorkflow(args[0])
	if err != nil {
		return err
	}

	sctx := session.New()
	if err := seedContext(sctx, runVars); err != nil {
		return err
	}

	ctx, cancel := interruptible(cmd.Context(), out)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	applyExecutionDefaults(wf, a.cfg.Execution)

	done := followEvents(out, a.events.Events())
	res, runErr := a.engine.Execute(ctx, wf, sctx)
	a.events.Close()
	<-done

	if res == nil {
		return runErr
	}
	printResult(out, res)
	if t, ok := a.tokenUsage(); ok {
		printUsage(out, t)
	}

	if runSave {
		if err := archiveRun(a.cfg, res, state.StatusOf(res, ctx.Err()), runLabel, sctx); err != nil {
			return err
		}
		printStatus(out, "✓", fmt.Sprintf("Archived run %s", res.RunID), color.FgGreen)
	}

	if runErr != nil {
		return runErr
	}
	if len(res.Failures) > 0 {
		return fmt.Errorf("%d of %d steps failed", len(res.Failures), len(wf.Steps))
	}
	return nil
}

// applyExecutionDefaults fills retry and timeout settings the workflow
// leaves unset.
func applyExecutionDefaults(wf *models.Workflow, exec config.ExecutionConfig) {
	if wf.RetryPolicy.Kind == "" {
		wf.RetryPolicy = exec.Retry()
	}
	if exec.TaskTimeout <= 0 {
		return
	}
	for i := range wf.Steps {
		if wf.Steps[i].TimeoutMS == 0 {
			wf.Steps[i].TimeoutMS = exec.TaskTimeout.Milliseconds()
		}
	}
}

// seedContext stores each key=value pair in sctx.
func seedContext(sctx *session.Context, vars []string) error {
	for _, kv := range vars {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid --set %q: expected key=value", kv)
		}
		sctx.Set(key, value)
	}
	return nil
}

// archiveRun stores the run record and a snapshot of its context.
func archiveRun(cfg *config.Config, res *models.WorkflowResult, status state.RunStatus, label string, sctx *session.Context) error {
	db, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.CreateRun(state.NewRun(res, status)); err != nil {
		return err
	}
	if _, err := db.SaveContext(res.RunID, label, sctx); err != nil {
		return err
	}
	return nil
}
