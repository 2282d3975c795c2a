package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uv1406/harness/packages/core/harness"
)

var validateCmd = &cobra.Command{
	Use:   "validate [suite...]",
	Short: "Validate configuration without running tests",
	Long: `Resolve configuration for the selected environment and check that
each suite has what it needs, without opening any session.

Examples:
  harness validate
  harness validate api --env staging`,
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	selected, err := selectSuites(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	out := cmd.OutOrStdout()
	profile := harness.Profile(cfg)
	fmt.Fprintf(out, "Environment: %s\n", cfg.Environment)
	fmt.Fprintf(out, "Profile:     %s (mode %s, headless %t)\n", profile.Name, cfg.Mode, profile.Headless)
	if profile.Remote {
		fmt.Fprintf(out, "Endpoint:    %s\n", profile.RemoteURL)
	}
	fmt.Fprintf(out, "Workers:     %d\n", cfg.Concurrency)

	hasErrors := false
	for _, s := range selected {
		if _, err := s.Build(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", s.Name, err)
			hasErrors = true
			continue
		}
		fmt.Fprintf(out, "Valid: %s\n", s.Name)
	}

	if hasErrors {
		return exitWith(ExitConfigError, fmt.Errorf("validation failed"))
	}
	return nil
}
