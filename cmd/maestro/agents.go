package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/logging"
	"github.com/ShayCichocki/maestro/internal/router"
	"github.com/ShayCichocki/maestro/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered agents and routing",
	Long: `List the registered agents: the built-in set, overlaid with the
definitions in registry.dir. The routing table shows which agents handle
each task type.`,
	Args: cobra.NoArgs,
	RunE: runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cmd.Context(), cfg, logging.Nop())
	if err != nil {
		return err
	}

	for _, md := range reg.List() {
		fmt.Fprintf(out, "%-20s %-10s %s\n", md.Name, md.Execution.Mode, md.Description)
		if len(md.Dependencies) > 0 {
			fmt.Fprintf(out, "%-20s depends on %s\n", "", strings.Join(md.Dependencies, ", "))
		}
	}

	fmt.Fprintln(out, "\nRouting:")
	table := router.DefaultTable()
	for _, tt := range models.TaskTypes {
		fmt.Fprintf(out, "  %-12s %s\n", tt, strings.Join(table.Agents(tt), ", "))
	}
	return nil
}
