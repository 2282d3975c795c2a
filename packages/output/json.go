package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/uv1406/harness/packages/core/runner"
	"github.com/uv1406/harness/packages/metrics"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary   `json:"summary"`
	Tests    []JSONTest    `json:"tests"`
	Latency  []JSONLatency `json:"latency,omitempty"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

// JSONSummary represents the test summary
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONTest represents a single test result
type JSONTest struct {
	Name       string          `json:"name"`
	Suite      string          `json:"suite"`
	Tags       []string        `json:"tags,omitempty"`
	Outcome    string          `json:"outcome"`
	SkipReason string          `json:"skipReason,omitempty"`
	Attempts   int             `json:"attempts,omitempty"`
	Worker     string          `json:"worker,omitempty"`
	Duration   float64         `json:"duration"`
	Error      string          `json:"error,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
	Artifacts  []string        `json:"artifacts,omitempty"`
}

// JSONAssertion represents a failed assertion
type JSONAssertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Message  string `json:"message,omitempty"`
}

// JSONLatency is the percentile view of one operation, in milliseconds.
type JSONLatency struct {
	Name  string  `json:"name"`
	Count int64   `json:"count"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// JSONFormatter formats run results as JSON
type JSONFormatter struct {
	writer  io.Writer
	results []JSONTest
	latency []JSONLatency
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONTest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		test := JSONTest{
			Name:       r.Name,
			Suite:      result.Suite,
			Tags:       r.Tags,
			Outcome:    string(r.Outcome),
			SkipReason: skipReason(r),
			Attempts:   r.Attempts,
			Worker:     string(r.Worker),
			Duration:   float64(r.Duration.Milliseconds()),
		}

		if r.Error != nil {
			test.Error = r.Error.Error()
		}

		for _, a := range failedAssertions(r.Error) {
			test.Assertions = append(test.Assertions, JSONAssertion{
				Subject:  a.Subject,
				Operator: a.Operator,
				Expected: a.Expected,
				Actual:   a.Actual,
				Message:  a.Message,
			})
		}

		for _, a := range r.Artifacts {
			if a.Location != "" {
				test.Artifacts = append(test.Artifacts, a.Location)
			}
		}

		f.results = append(f.results, test)
	}
}

// FormatLatency adds percentile summaries to the flushed document.
func (f *JSONFormatter) FormatLatency(summaries []metrics.Summary) {
	for _, s := range summaries {
		f.latency = append(f.latency, JSONLatency{
			Name:  s.Name,
			Count: s.Count,
			P50:   millis(s.P50),
			P95:   millis(s.P95),
			P99:   millis(s.P99),
			Max:   millis(s.Max),
		})
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	for _, t := range f.results {
		switch runner.Outcome(t.Outcome) {
		case runner.Pass:
			summary.Passed++
		case runner.Skip:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	summary.Total = len(f.results)

	output := JSONOutput{
		Summary:  summary,
		Tests:    f.results,
		Latency:  f.latency,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
