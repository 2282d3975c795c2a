package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/uv1406/harness/packages/core/config"
	"github.com/uv1406/harness/packages/core/harness"
	"github.com/uv1406/harness/packages/core/runner"
	"github.com/uv1406/harness/packages/data"
	"github.com/uv1406/harness/packages/metrics"
	"github.com/uv1406/harness/packages/notify"
	"github.com/uv1406/harness/packages/output"
	"github.com/uv1406/harness/packages/suites"
)

var runCmd = &cobra.Command{
	Use:   "run [suite...]",
	Short: "Run test suites",
	Long: `Run the bundled test suites. With no arguments every suite runs.

Examples:
  harness run
  harness run api --env staging
  harness run ui --browser firefox -D run.headless=true
  harness run --tags smoke --output junit --output-file report.xml
  harness run api --wait-for https://reqres.in/api/users --wait-timeout 1m
  harness run --watch`,
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return suites.Names(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	nameFlag        string
	tagsFlag        string
	quietFlag       bool
	bailFlag        bool
	outputFlag      string
	outputFileFlag  string
	concurrencyFlag int
	watchFlag       bool
	latencyFlag     bool

	// Readiness flags
	waitForFlag     string
	waitStatusFlag  int
	waitTimeoutFlag time.Duration

	// Metrics flags
	metricsPortFlag int

	// Notification flags
	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	teamsWebhookFlag string
)

func init() {
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only tests matching name pattern (* wildcards)")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("HARNESS_TAGS", ""), "Run only tests with specified tags (comma-separated) (env: HARNESS_TAGS)")

	// Output flags
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("HARNESS_QUIET", false), "Suppress logs below error (env: HARNESS_QUIET)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HARNESS_OUTPUT", output.FormatConsole), "Output format: console, json, junit, tap (env: HARNESS_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HARNESS_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HARNESS_OUTPUT_FILE)")
	runCmd.Flags().BoolVar(&latencyFlag, "latency", false, "Include latency percentiles in the report")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("HARNESS_BAIL", false), "Skip remaining tests after the first failure (env: HARNESS_BAIL)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("HARNESS_CONCURRENCY", 0), "Number of parallel workers, 0 uses the config value (env: HARNESS_CONCURRENCY)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch config and data files for changes and re-run")

	runCmd.Flags().StringVar(&waitForFlag, "wait-for", "", "URL to poll before running (e.g. a grid /status endpoint)")
	runCmd.Flags().IntVar(&waitStatusFlag, "wait-status", 200, "Status code --wait-for expects")
	runCmd.Flags().DurationVar(&waitTimeoutFlag, "wait-timeout", 30*time.Second, "How long --wait-for polls")

	runCmd.Flags().IntVar(&metricsPortFlag, "metrics-port", getEnvInt("HARNESS_METRICS_PORT", 0), "Serve Prometheus metrics on this port, 0 disables (env: HARNESS_METRICS_PORT)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("HARNESS_NOTIFY", ""), "Notification service: slack, teams (env: HARNESS_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("HARNESS_NOTIFY_ON", "failure"), "When to notify: always, failure, success, recovery (env: HARNESS_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	runCmd.Flags().StringVar(&teamsWebhookFlag, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")
}

// notifyManager builds the notifiers named by --notify, or nil.
func notifyManager() (*notify.Manager, error) {
	if notifyFlag == "" {
		return nil, nil
	}
	on, err := notify.ParseNotifyOn(notifyOnFlag)
	if err != nil {
		return nil, err
	}

	var notifiers []notify.Notifier
	for _, service := range strings.Split(notifyFlag, ",") {
		switch strings.ToLower(strings.TrimSpace(service)) {
		case "slack":
			if slackWebhookFlag == "" {
				return nil, fmt.Errorf("--slack-webhook is required when using --notify slack")
			}
			var opts []notify.SlackOption
			if slackChannelFlag != "" {
				opts = append(opts, notify.WithSlackChannel(slackChannelFlag))
			}
			notifiers = append(notifiers, notify.NewSlackNotifier(slackWebhookFlag, opts...))
		case "teams":
			if teamsWebhookFlag == "" {
				return nil, fmt.Errorf("--teams-webhook is required when using --notify teams")
			}
			notifiers = append(notifiers, notify.NewTeamsNotifier(teamsWebhookFlag))
		case "":
		default:
			return nil, fmt.Errorf("unknown notification service %q", service)
		}
	}
	if len(notifiers) == 0 {
		return nil, nil
	}
	return notify.NewManager(on, notifiers...), nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	selected, err := selectSuites(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	if _, err := output.New(strings.ToLower(outputFlag), output.Options{Writer: io.Discard}); err != nil {
		return exitWith(ExitUsageError, err)
	}
	notifier, err := notifyManager()
	if err != nil {
		return exitWith(ExitUsageError, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared across re-runs so the metrics endpoint keeps counting.
	m := metrics.New()
	if metricsPortFlag > 0 {
		addr := fmt.Sprintf(":%d", metricsPortFlag)
		go func() {
			if err := m.Serve(ctx, addr); err != nil {
				fmt.Fprintf(os.Stderr, "warning: metrics server: %v\n", err)
			}
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "Prometheus metrics available at http://localhost%s/metrics\n", addr)
	}

	failed, err := runOnce(ctx, cmd, selected, m, notifier)
	if !watchFlag {
		if err != nil {
			return err
		}
		if failed > 0 {
			return exitWith(ExitTestFailure, nil)
		}
		return nil
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return watch(ctx, cmd, selected, m, notifier)
}

func selectSuites(args []string) ([]suites.Suite, error) {
	if len(args) == 0 {
		args = suites.Names()
	}
	selected := make([]suites.Suite, 0, len(args))
	for _, name := range args {
		s, err := suites.Lookup(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, s)
	}
	return selected, nil
}

// runOnce resolves configuration, runs every selected suite and writes the
// report. It returns the number of failed tests.
func runOnce(ctx context.Context, cmd *cobra.Command, selected []suites.Suite, m *metrics.Metrics, notifier *notify.Manager) (int, error) {
	var outWriter io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return 0, fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		outWriter = f
	}

	formatter, err := output.New(strings.ToLower(outputFlag), output.Options{
		Writer:  outWriter,
		Verbose: verboseFlag > 0,
		NoColor: noColorFlag,
	})
	if err != nil {
		return 0, exitWith(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	cfg, err := loadConfig()
	if err != nil {
		formatter.FormatError(err)
		return 0, exitWith(ExitConfigError, err)
	}
	if concurrencyFlag > 0 {
		cfg.Concurrency = concurrencyFlag
	}
	logger := newLogger(cfg, quietFlag)

	if waitForFlag != "" {
		err := runner.WaitForService(ctx, runner.WaitConfig{
			URL:     waitForFlag,
			Status:  waitStatusFlag,
			Timeout: waitTimeoutFlag,
		}, logger)
		if err != nil {
			formatter.FormatError(err)
			return 0, exitWith(ExitNetworkError, err)
		}
	}

	h, err := harness.Build(cfg, harness.Options{
		Logger:     logger,
		Metrics:    m,
		NameFilter: nameFlag,
		TagsFilter: splitTags(tagsFlag),
		Bail:       bailFlag,
	})
	if err != nil {
		formatter.FormatError(err)
		return 0, exitWith(ExitConfigError, err)
	}
	defer h.Close(context.WithoutCancel(ctx))

	start := time.Now()
	failed := 0
	var results []*runner.RunResult
	for _, s := range selected {
		tests, err := s.Build(ctx, cfg)
		if err != nil {
			err = fmt.Errorf("suite %s: %w", s.Name, err)
			formatter.FormatError(err)
			return failed, exitWith(ExitConfigError, err)
		}

		result := h.Runner.Run(ctx, s.Name, tests)
		formatter.FormatResult(result)
		results = append(results, result)
		failed += result.Failed

		if bailFlag && result.Failed > 0 {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	if latencyFlag {
		if lr, ok := formatter.(output.LatencyReporter); ok {
			lr.FormatLatency(m.Latency().Summaries())
		}
	}

	totalDuration := time.Since(start)

	// Flush output for formatters that accumulate results
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(totalDuration); err != nil {
			return failed, fmt.Errorf("error writing output: %w", err)
		}
	}

	if notifier != nil {
		summary := notify.Summarize(cfg.Environment, totalDuration, results...)
		if err := notifier.Notify(context.WithoutCancel(ctx), summary); err != nil {
			logger.Warn("failed to send notification", "error", err)
		}
	}
	return failed, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// watchTargets lists the files a re-run depends on.
func watchTargets() []string {
	targets := []string{}
	cfg, err := loadConfig()
	if err != nil {
		// Still watch the config file so fixing it triggers a run.
		return append(targets, configFiles(&config.Config{Environment: strings.ToLower(envFlag)})...)
	}
	targets = append(targets, configFiles(cfg)...)
	if cfg.DataSource != "" {
		if path, err := data.FilePath(cfg.DataSource); err == nil {
			targets = append(targets, path)
		}
	}
	return targets
}

func watch(ctx context.Context, cmd *cobra.Command, selected []suites.Suite, m *metrics.Metrics, notifier *notify.Manager) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories so files created after startup are seen too.
	watched := make(map[string]bool)
	watchedDirs := make(map[string]bool)
	for _, target := range watchTargets() {
		abs, err := filepath.Abs(target)
		if err != nil {
			continue
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to watch %s: %v\n", dir, err)
			continue
		}
		watchedDirs[dir] = true
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	rerun := make(chan string, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if !watched[abs] || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- name:
				default:
				}
			})

		case name := <-rerun:
			fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running tests...\n\n", name)
			if _, err := runOnce(ctx, cmd, selected, m, notifier); err != nil {
				var exit *ExitError
				if !errors.As(err, &exit) || exit.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}
