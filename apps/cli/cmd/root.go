package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Flags shared by every command that resolves configuration.
var (
	envFlag     string
	configFlag  string
	setFlags    []string
	browserFlag string
	verboseFlag int
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "harness",
	Short: "Parallel UI and API test harness",
	Long: `harness runs browser, device and HTTP API test suites in parallel,
one isolated session per worker, with retries, failure screenshots
and CI-friendly reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits with the code matching the outcome.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var exit *ExitError
		if !errors.As(err, &exit) || exit.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&envFlag, "env", "e", getEnvString("HARNESS_ENV", ""), "Environment to use (env: HARNESS_ENV)")
	flags.StringVar(&configFlag, "config", getEnvString("HARNESS_CONFIG", ""), "Path to config file (env: HARNESS_CONFIG)")
	flags.StringArrayVarP(&setFlags, "set", "D", nil, "Override a config key, e.g. -D api.retry.max.attempts=2")
	flags.StringVarP(&browserFlag, "browser", "b", "", "Session backend: chrome, firefox, edge, android, ios, api")
	flags.CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v for details, -vv for debug logs)")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("HARNESS_NO_COLOR", false), "Disable colored output (env: HARNESS_NO_COLOR)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
