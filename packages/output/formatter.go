package output

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/uv1406/harness/packages/assertions"
	"github.com/uv1406/harness/packages/core/runner"
	"github.com/uv1406/harness/packages/metrics"
)

// Formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatJUnit   = "junit"
	FormatTAP     = "tap"
)

// filteredOut is the skip reason the runner gives tests excluded by filters.
const filteredOut = "filtered out"

// Formatter renders suite results as they complete.
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that write everything at the end.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// LatencyReporter is implemented by formatters that can include latency
// percentiles in their output.
type LatencyReporter interface {
	FormatLatency(summaries []metrics.Summary)
}

// Options configures New.
type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

// New returns the formatter for format; an empty format means console.
func New(format string, opts Options) (Formatter, error) {
	switch format {
	case "", FormatConsole:
		consoleOpts := []ConsoleOption{WithVerbose(opts.Verbose), WithNoColor(opts.NoColor)}
		if opts.Writer != nil {
			consoleOpts = append(consoleOpts, WithWriter(opts.Writer))
		}
		return NewConsoleFormatter(consoleOpts...), nil
	case FormatJSON:
		var o []JSONOption
		if opts.Writer != nil {
			o = append(o, JSONWithWriter(opts.Writer))
		}
		return NewJSONFormatter(o...), nil
	case FormatJUnit:
		var o []JUnitOption
		if opts.Writer != nil {
			o = append(o, JUnitWithWriter(opts.Writer))
		}
		return NewJUnitFormatter(o...), nil
	case FormatTAP:
		var o []TAPOption
		if opts.Writer != nil {
			o = append(o, TAPWithWriter(opts.Writer))
		}
		return NewTAPFormatter(o...), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (available: console, json, junit, tap)", format)
	}
}

// failedAssertions unwraps the assertion results behind err, if any.
func failedAssertions(err error) []*assertions.Result {
	var f *assertions.Failure
	if errors.As(err, &f) {
		return f.Results
	}
	return nil
}

// isAssertion reports whether err is an assertion failure rather than an
// error raised while driving the test.
func isAssertion(err error) bool {
	return errors.Is(err, assertions.ErrAssertion)
}

func skipReason(r *runner.TestResult) string {
	if r.SkipReason == filteredOut {
		return ""
	}
	return r.SkipReason
}
