package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a maestro project",
	Long: `Initialize a directory for use with maestro.

Creates:
  - .maestro.yaml          project configuration overrides
  - agents/                agent definitions, overlaid on the built-in set
  - workflows/review.yaml  an example DAG workflow

Existing files are kept unless --force is given.

Examples:
  maestro init              # Initialize current directory
  maestro init ./myproject  # Initialize specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

const projectConfigTemplate = `# maestro project configuration
# This file overrides defaults from ~/.config/maestro/config.yaml

# provider:
#   name: anthropic        # anthropic, bedrock, openai or gemini
#   model: claude-sonnet-4-5
#   api_key: ${ANTHROPIC_API_KEY}

# execution:
#   max_concurrent: 3
#   task_timeout: 5m
#   retry_policy: exponential
#   max_retries: 2
#   retry_delay: 1s
#   max_papers: 8

registry:
  dir: agents
  watch: false
`

const exampleAgentTemplate = `# Agents defined here are added to the built-in set, or replace a
# built-in agent with the same name.
name: methods-reviewer
description: Reviews the methodology of a study
instructions: |
  You review research methodology. Point out threats to validity,
  sampling problems and missing controls. Be specific and brief.
execution:
  mode: parallel
`

const exampleWorkflowTemplate = `name: review
description: Search, analyse and synthesise literature on a topic
mode: dag
retryPolicy:
  kind: exponential
  maxRetries: 2
  delayMs: 1000
steps:
  - id: search
    agentRef: literature-search
    prompt: Find recent peer-reviewed papers on sleep and memory consolidation.
  - id: analyze
    agentRef: paper-analyzer
    prompt: Analyse the methodology and findings of each paper found.
    dependencies: [search]
  - id: methods
    agentRef: methods-reviewer
    prompt: Review the study designs used across these papers.
    dependencies: [search]
  - id: gaps
    agentRef: gap-analyzer
    prompt: Identify research gaps from the analyses.
    dependencies: [analyze, methods]
  - id: synthesis
    agentRef: synthesizer
    prompt: Write a synthesis of the literature and its gaps.
    dependencies: [gaps]
    outputKey: review.synthesis
`

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	fmt.Fprintf(out, "Initializing maestro in %s...\n\n", absPath)

	files := []struct {
		path    string
		content string
	}{
		{config.ProjectFile, projectConfigTemplate},
		{filepath.Join("agents", "methods-reviewer.yaml"), exampleAgentTemplate},
		{filepath.Join("workflows", "review.yaml"), exampleWorkflowTemplate},
	}
	for _, f := range files {
		written, err := writeTemplate(filepath.Join(absPath, f.path), f.content, initForce)
		if err != nil {
			return err
		}
		if written {
			printStatus(out, "✓", "Created "+f.path, color.FgGreen)
		} else {
			printStatus(out, "-", f.path+" exists, kept", color.FgYellow)
		}
	}

	p := config.Default().Provider
	if _, source, err := config.ResolveAPIKey(p); err != nil {
		printStatus(out, "⚠", config.EnvVar(p.Name)+" not set (you can set it later)", color.FgYellow)
	} else {
		printStatus(out, "✓", fmt.Sprintf("API key found (%s)", source), color.FgGreen)
	}

	fmt.Fprintf(out, "\n%s maestro initialization complete!\n\n", color.GreenString("✓"))
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  maestro validate workflows/review.yaml")
	fmt.Fprintln(out, "  maestro run workflows/review.yaml --save")
	fmt.Fprintln(out, "  maestro route \"summarise recent work on sleep and memory\"")
	return nil
}

// writeTemplate writes content to path unless it exists and force is off.
func writeTemplate(path, content string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
