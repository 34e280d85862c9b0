package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/maestro/internal/subagent"
	"github.com/ShayCichocki/maestro/pkg/models"
)

var (
	batchMode          string
	batchAgent         string
	batchMaxConcurrent int
)

var batchCmd = &cobra.Command{
	Use:   "batch <tasks-file>",
	Short: "Run a batch of tasks on one agent",
	Long: `Run a list of tasks (JSON, or YAML with a .yaml/.yml extension) on a
single agent.

Modes:
  parallel    Tasks run in batches of --max-concurrent; each batch finishes
              before the next starts
  sequential  Tasks run in order; each sees the results of earlier tasks
  dag         Tasks run once their dependencies succeed; a task whose
              dependency failed is skipped

Without --agent, tasks go straight to the configured provider.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchMode, "mode", "parallel", "Execution mode: parallel, sequential or dag")
	batchCmd.Flags().StringVar(&batchAgent, "agent", "", "Registered agent to run every task on")
	batchCmd.Flags().IntVar(&batchMaxConcurrent, "max-concurrent", 0, "Override execution.max_concurrent")
}

// loadTasks reads a task list file.
func loadTasks(path string) ([]models.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}

	var tasks []models.Task
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &tasks)
	default:
		err = json.Unmarshal(data, &tasks)
	}
	if err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%s contains no tasks", path)
	}
	return tasks, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	tasks, err := loadTasks(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := interruptible(cmd.Context(), out)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	exec := a.backend
	agentID := "batch"
	if batchAgent != "" {
		if exec, err = a.agents.Resolve(batchAgent); err != nil {
			return err
		}
		agentID = batchAgent
	}

	cfg := subagent.Config{
		MaxConcurrent: a.cfg.Execution.MaxConcurrent,
		Timeout:       a.cfg.Execution.TaskTimeout,
		Retry:         a.cfg.Execution.Retry(),
	}
	if batchMaxConcurrent > 0 {
		cfg.MaxConcurrent = batchMaxConcurrent
	}
	svc := subagent.New(exec, cfg, subagent.WithLogger(a.logger), subagent.WithAgentID(agentID))

	outcomes, err := executeBatch(ctx, svc, batchMode, tasks)
	if err != nil {
		return err
	}

	failed := printOutcomes(out, tasks, outcomes)
	if t, ok := a.tokenUsage(); ok {
		printUsage(out, t)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tasks did not succeed", failed, len(tasks))
	}
	return nil
}

func executeBatch(ctx context.Context, svc *subagent.Service, mode string, tasks []models.Task) ([]models.Outcome, error) {
	switch mode {
	case "parallel":
		return svc.ExecuteParallel(ctx, tasks, svc.Config())
	case "sequential":
		return svc.ExecuteSequential(ctx, tasks)
	case "dag":
		return svc.ExecuteDAG(ctx, tasks)
	default:
		return nil, fmt.Errorf("unknown batch mode %q", mode)
	}
}

// printOutcomes prints one line per task and returns how many did not
// succeed. Tasks without an outcome never started.
func printOutcomes(w io.Writer, tasks []models.Task, outcomes []models.Outcome) int {
	byID := make(map[string]models.Outcome, len(outcomes))
	for _, o := range outcomes {
		byID[o.TaskID] = o
	}

	failed := 0
	for _, t := range tasks {
		o, ok := byID[t.ID]
		switch {
		case !ok:
			failed++
			printStatus(w, "-", fmt.Sprintf("%s: not started", t.Label()), color.FgYellow)
		case o.Success:
			printStatus(w, "✓", t.Label(), color.FgGreen)
			fmt.Fprintln(w, indent(preview(o.Value, previewLen)))
		default:
			failed++
			printStatus(w, "✗", fmt.Sprintf("%s: %s", t.Label(), o.Error), color.FgRed)
		}
	}
	return failed
}
