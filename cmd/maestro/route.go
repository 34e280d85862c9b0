package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/config"
	"github.com/ShayCichocki/maestro/internal/orchestrator"
	"github.com/ShayCichocki/maestro/internal/router"
	"github.com/ShayCichocki/maestro/internal/session"
	"github.com/ShayCichocki/maestro/internal/state"
	"github.com/ShayCichocki/maestro/pkg/models"
)

var (
	routeType          string
	routeStopOnFailure bool
	routeDryRun        bool
	routeSave          bool
)

var routeCmd = &cobra.Command{
	Use:   "route <request>",
	Short: "Classify a request and run it on the matching agents",
	Long: `Classify a free-form research request and run it.

Literature requests run the review pipeline (search, analysis, gaps,
synthesis). Every other type is routed to its agent group, which runs in
parallel when every agent in the group allows it and sequentially
otherwise.

Task types: literature, writing, analysis, citation, translation, plagiarism.

Examples:
  maestro route "find recent papers on sleep and memory"
  maestro route --type writing "tighten this abstract: ..."
  maestro route --dry-run "translate the summary to German"`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeType, "type", "", "Skip classification and use this task type")
	routeCmd.Flags().BoolVar(&routeStopOnFailure, "stop-on-failure", false, "Stop a sequential route at the first failed agent")
	routeCmd.Flags().BoolVar(&routeDryRun, "dry-run", false, "Print the routing decision without running it")
	routeCmd.Flags().BoolVar(&routeSave, "save", false, "Archive the result and execution context")
}

func parseTypeFlag(s string) (models.TaskType, error) {
	if s == "" {
		return "", nil
	}
	tt, ok := models.ParseTaskType(s)
	if !ok {
		return "", fmt.Errorf("unknown task type %q", s)
	}
	return tt, nil
}

func runRoute(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	tt, err := parseTypeFlag(routeType)
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

	if routeDryRun {
		plan, err := a.router(a.classifier()).Plan(ctx, router.Request{
			Text:          args[0],
			Type:          tt,
			StopOnFailure: routeStopOnFailure,
		})
		if err != nil {
			return err
		}
		printPlan(out, plan)
		return nil
	}

	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	done := followEvents(out, a.events.Events())
	sctx := session.New()
	resp, handleErr := orch.Handle(ctx, orchestrator.Request{
		Text:          args[0],
		Type:          tt,
		StopOnFailure: routeStopOnFailure,
		Retry:         a.cfg.Execution.Retry(),
	}, sctx)
	a.events.Close()
	<-done

	if resp != nil {
		printStatus(out, "→", fmt.Sprintf("%s (%s)", resp.Selection.Type, resp.Selection.Source), color.FgCyan)
		switch {
		case resp.Review != nil:
			printReview(out, resp.Review)
		case resp.Route != nil && resp.Route.Result != nil:
			printResult(out, resp.Route.Result)
		}
	}
	if t, ok := a.tokenUsage(); ok {
		printUsage(out, t)
	}

	if routeSave && resp != nil {
		if err := saveResponse(out, a, resp, handleErr, sctx); err != nil {
			return err
		}
	}
	return handleErr
}

// saveResponse archives a routed run, or just the context for a review.
func saveResponse(w io.Writer, a *app, resp *orchestrator.Response, handleErr error, sctx *session.Context) error {
	label := string(resp.Selection.Type)
	if resp.Route != nil && resp.Route.Result != nil {
		res := resp.Route.Result
		if err := archiveRun(a.cfg, res, state.StatusOf(res, handleErr), label, sctx); err != nil {
			return err
		}
		printStatus(w, "✓", fmt.Sprintf("Archived run %s", res.RunID), color.FgGreen)
		return nil
	}
	return saveSnapshot(w, a.cfg, label, sctx)
}

// saveSnapshot archives sctx without a run record.
func saveSnapshot(w io.Writer, cfg *config.Config, label string, sctx *session.Context) error {
	db, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := db.SaveContext("", label, sctx)
	if err != nil {
		return err
	}
	printStatus(w, "✓", fmt.Sprintf("Saved context snapshot %s", snap.ID), color.FgGreen)
	return nil
}
