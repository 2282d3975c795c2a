package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/uv1406/harness/packages/core/runner"
)

// TAPFormatter formats run results in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number     int
	name       string
	outcome    runner.Outcome
	skipReason string
	error      string
	assertions []string
	artifacts  []string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.testCount++
		tr := tapResult{
			number:     f.testCount,
			name:       result.Suite + ": " + r.Name,
			outcome:    r.Outcome,
			skipReason: skipReason(r),
		}

		for _, a := range failedAssertions(r.Error) {
			tr.assertions = append(tr.assertions, fmt.Sprintf(
				"%s %s: expected %v, got %v",
				a.Subject, a.Operator, a.Expected, a.Actual))
		}
		if len(tr.assertions) == 0 && r.Error != nil {
			tr.error = r.Error.Error()
		}
		for _, a := range r.Artifacts {
			if a.Location != "" {
				tr.artifacts = append(tr.artifacts, a.Location)
			}
		}

		f.results = append(f.results, tr)
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		switch r.outcome {
		case runner.Skip:
			reason := r.skipReason
			if reason == "" {
				reason = "SKIP"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", r.number, r.name, reason)
		case runner.Pass:
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
			fmt.Fprintf(f.writer, "  ---\n")
			if r.error != "" {
				fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.error))
				fmt.Fprintf(f.writer, "  severity: error\n")
			}
			if len(r.assertions) > 0 {
				fmt.Fprintf(f.writer, "  failures:\n")
				for _, a := range r.assertions {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(a))
				}
			}
			if len(r.artifacts) > 0 {
				fmt.Fprintf(f.writer, "  artifacts:\n")
				for _, a := range r.artifacts {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(a))
				}
			}
			fmt.Fprintf(f.writer, "  ...\n")
		}
	}

	fmt.Fprintln(f.writer)
	return nil
}

func escapeYAML(s string) string {
	// Simple YAML escaping - wrap in quotes if contains special chars
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\"", "\\\"")
		return "\"" + s + "\""
	}
	return s
}
