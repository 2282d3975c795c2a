package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [suite...]",
	Short: "List the tests each suite would run",
	Long: `List the tests each suite builds from the current configuration,
including data-driven rows loaded from test.data.source.

Examples:
  harness list
  harness list ui -D test.data.source=sqlite://fixtures/forms.db`,
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	selected, err := selectSuites(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	for _, s := range selected {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %s\n", s.Name, s.Description)
		tests, err := s.Build(cmd.Context(), cfg)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "  (unavailable: %v)\n", err)
			continue
		}
		for _, t := range tests {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", t.Name)
			if len(t.Tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    tags: %s\n", strings.Join(t.Tags, ", "))
			}
		}
	}
	return nil
}
