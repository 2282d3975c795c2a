package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/uv1406/harness/packages/core/runner"
	"github.com/uv1406/harness/packages/metrics"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Suite: "+result.Suite))

	for _, r := range result.Results {
		switch r.Outcome {
		case runner.Skip:
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.Name)
			if reason := skipReason(r); reason != "" {
				fmt.Fprintf(f.writer, " (%s)", reason)
			}
			fmt.Fprintf(f.writer, "\n")
			continue
		case runner.Pass:
			fmt.Fprintf(f.writer, "  %s %s %s", green("✓"), r.Name, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))
			if r.Attempts > 1 {
				fmt.Fprintf(f.writer, " %s", yellow(fmt.Sprintf("after %d attempts", r.Attempts)))
			}
			fmt.Fprintf(f.writer, "\n")
		default:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), r.Name, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))
			f.failure(r, red)
		}

		if f.verbose {
			fmt.Fprintf(f.writer, "    Worker: %s, attempts: %d\n", r.Worker, r.Attempts)
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) failure(r *runner.TestResult, red func(a ...any) string) {
	if results := failedAssertions(r.Error); len(results) > 0 {
		for _, a := range results {
			fmt.Fprintf(f.writer, "    %s %s %s\n", red("→"), a.Subject, a.Operator)
			fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(a.Expected, 100))
			fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(a.Actual, 100))
			if a.Message != "" {
				fmt.Fprintf(f.writer, "      %s\n", a.Message)
			}
		}
	} else if r.Error != nil {
		fmt.Fprintf(f.writer, "    %s %v\n", red("→"), r.Error)
	}
	for _, a := range r.Artifacts {
		if a.Location != "" {
			fmt.Fprintf(f.writer, "    Screenshot: %s\n", a.Location)
		}
	}
}

// FormatLatency prints one percentile line per recorded operation.
func (f *ConsoleFormatter) FormatLatency(summaries []metrics.Summary) {
	if len(summaries) == 0 {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s\n", bold("Latency"))
	for _, s := range summaries {
		fmt.Fprintf(f.writer, "  %-28s n=%-5d p50=%-8s p95=%-8s p99=%-8s max=%s\n",
			s.Name, s.Count, s.P50, s.P95, s.P99, s.Max)
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("harness"), version)
}
