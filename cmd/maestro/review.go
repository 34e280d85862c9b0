package main

import (
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/session"
)

var (
	reviewSave      bool
	reviewMaxPapers int
)

var reviewCmd = &cobra.Command{
	Use:   "review <topic>",
	Short: "Run a literature review on a topic",
	Long: `Run the literature-review pipeline on a topic:

  1. literature-search finds candidate papers
  2. paper-analyzer analyses each paper, several at a time
  3. gap-analyzer identifies research gaps across the analyses
  4. synthesizer writes the final synthesis

A failed paper analysis is recorded as a placeholder and the review goes
on. A failure in any other stage stops the review and prints what was
produced so far.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewSave, "save", false, "Archive the execution context")
	reviewCmd.Flags().IntVar(&reviewMaxPapers, "max-papers", 0, "Override execution.max_papers")
}

func runReview(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	ctx, cancel := interruptible(cmd.Context(), out)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if reviewMaxPapers > 0 {
		a.cfg.Execution.MaxPapers = reviewMaxPapers
	}
	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	sctx := session.New()
	review, reviewErr := orch.ReviewLiterature(ctx, args[0], sctx)
	if review != nil {
		printReview(out, review)
	}
	if t, ok := a.tokenUsage(); ok {
		printUsage(out, t)
	}
	if reviewSave {
		if err := saveSnapshot(out, a.cfg, "review: "+args[0], sctx); err != nil {
			return err
		}
	}
	return reviewErr
}
