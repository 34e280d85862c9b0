package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/maestro/internal/api"
	"github.com/ShayCichocki/maestro/internal/orchestrator"
	"github.com/ShayCichocki/maestro/internal/router"
	"github.com/ShayCichocki/maestro/internal/scheduler"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// previewLen bounds how much agent output is echoed per step.
const previewLen = 200

func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// followEvents prints step events until the channel closes. The returned
// channel is closed once the printer has drained.
func followEvents(w io.Writer, events <-chan scheduler.Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			printEvent(w, ev)
		}
	}()
	return done
}

func printEvent(w io.Writer, ev scheduler.Event) {
	switch ev.Type {
	case scheduler.EventWorkflowStarted:
		fmt.Fprintf(w, "%s %s (run %s)\n", color.CyanString("▶"), ev.Workflow, ev.RunID)
	case scheduler.EventStepStarted:
		printStatus(w, "…", fmt.Sprintf("%s [%s]", ev.StepID, ev.AgentID), color.FgBlue)
	case scheduler.EventStepCompleted:
		printStatus(w, "✓", fmt.Sprintf("%s (%s)", ev.StepID, ev.Duration.Round(time.Millisecond)), color.FgGreen)
	case scheduler.EventStepFailed:
		printStatus(w, "✗", fmt.Sprintf("%s: %v", ev.StepID, ev.Error), color.FgRed)
	case scheduler.EventStepRetrying:
		printStatus(w, "↻", fmt.Sprintf("%s: attempt %d after %v", ev.StepID, ev.Attempt, ev.Error), color.FgYellow)
	case scheduler.EventStepSkipped:
		msg := ev.StepID
		if ev.Message != "" {
			msg += ": " + ev.Message
		}
		printStatus(w, "-", msg, color.FgYellow)
	}
}

// printResult prints a run summary followed by each step's output.
func printResult(w io.Writer, res *models.WorkflowResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Workflow:  %s (%s)\n", res.Workflow, res.Mode)
	fmt.Fprintf(w, "Run:       %s\n", res.RunID)
	fmt.Fprintf(w, "Succeeded: %d  Failed: %d  Skipped: %d\n", len(res.Results), len(res.Failures), len(res.Skipped))
	fmt.Fprintf(w, "Duration:  %s\n", (time.Duration(res.DurationMS) * time.Millisecond).String())

	for _, o := range res.Results {
		fmt.Fprintf(w, "\n%s %s\n", color.GreenString("✓"), o.TaskID)
		fmt.Fprintln(w, indent(preview(o.Value, previewLen)))
	}
	for _, o := range res.Failures {
		fmt.Fprintf(w, "\n%s %s (%d attempts)\n", color.RedString("✗"), o.TaskID, o.Attempts)
		fmt.Fprintln(w, indent(o.Error))
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped: %s\n", strings.Join(res.Skipped, ", "))
	}
}

func printPlan(w io.Writer, plan *router.Plan) {
	fmt.Fprintf(w, "Type:   %s (%s)\n", plan.Selection.Type, plan.Selection.Source)
	if plan.Selection.Keyword != "" {
		fmt.Fprintf(w, "Match:  %q\n", plan.Selection.Keyword)
	}
	fmt.Fprintf(w, "Mode:   %s\n", plan.Mode)
	fmt.Fprintln(w, "Agents:")
	for _, md := range plan.Agents {
		fmt.Fprintf(w, "  - %s\n", md.Name)
	}
}

func printReview(w io.Writer, r *orchestrator.Review) {
	fmt.Fprintf(w, "Topic: %s\n\n", r.Topic)
	fmt.Fprintf(w, "Papers (%d):\n", len(r.Papers))
	for i, p := range r.Papers {
		line := p.Title
		if p.Year > 0 {
			line = fmt.Sprintf("%s (%d)", line, p.Year)
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, line)
	}
	if r.FailedAnalyses > 0 {
		printStatus(w, "⚠", fmt.Sprintf("%d of %d analyses failed", r.FailedAnalyses, len(r.Analyses)), color.FgYellow)
	}
	if r.Gaps != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", color.New(color.Bold).Sprint("Research gaps"), r.Gaps)
	}
	if r.Synthesis != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", color.New(color.Bold).Sprint("Synthesis"), r.Synthesis)
	}
}

func printUsage(w io.Writer, t *api.TokenTracker) {
	in, out := t.Total()
	if t.Calls() == 0 {
		return
	}
	fmt.Fprintf(w, "\nTokens: %d in / %d out over %d calls (~$%.4f)\n", in, out, t.Calls(), t.Cost())
}

// preview truncates s to n runes.
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
