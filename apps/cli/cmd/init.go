package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new harness project",
	Long: `Initialize a new harness project in the current directory.

This creates:
  - harness.yaml   - Configuration with qa and staging environments
  - .env.example   - Variables referenced from harness.yaml

Examples:
  harness init
  harness init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

// starterConfig is written as nested YAML; the loader flattens it to
// dotted keys such as api.base.url.qa.
func starterConfig() map[string]any {
	return map[string]any{
		"environment": "qa",
		"browser":     "chrome",
		"concurrency": 4,
		"run": map[string]any{
			"mode":     "local",
			"headless": false,
		},
		"selenium": map[string]any{
			"grid": map[string]any{"url": "http://localhost:4444"},
		},
		"app": map[string]any{"url": "https://demoqa.com"},
		"api": map[string]any{
			"base": map[string]any{
				"url": map[string]string{
					"qa":      "https://reqres.in",
					"staging": "https://staging.reqres.in",
				},
			},
			"key": map[string]string{
				"qa":      "${REQRES_API_KEY}",
				"staging": "${REQRES_API_KEY}",
			},
			"retry": map[string]any{
				"max":   map[string]any{"attempts": 4},
				"delay": map[string]any{"millis": 1000},
			},
		},
		"test": map[string]any{
			"retry":   map[string]any{"count": 0},
			"timeout": map[string]any{"seconds": 0},
		},
		"default": map[string]any{
			"explicit": map[string]any{"wait": map[string]any{"seconds": 10}},
			"poll":     map[string]any{"interval": map[string]any{"millis": 250}},
		},
		"screenshot": map[string]any{"directory": "target/screenshots"},
	}
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "harness.yaml")
	envFile := filepath.Join(cwd, ".env.example")

	if !forceInit {
		for _, f := range []string{configFile, envFile} {
			if _, err := os.Stat(f); err == nil {
				return exitWith(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	configYAML, err := yaml.Marshal(starterConfig())
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFile, configYAML, 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	envContent := `# Copy to .env (or .env.<environment>) and fill in.
REQRES_API_KEY=reqres-free-v1
# HARNESS_BROWSER=firefox
# HARNESS_RUN_HEADLESS=true
`
	if err := os.WriteFile(envFile, []byte(envContent), 0644); err != nil {
		return fmt.Errorf("failed to create env file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nharness project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'harness validate' to check the configuration, then 'harness run'.\n")

	return nil
}
