// Package notify posts run summaries to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uv1406/harness/packages/core/runner"
	harnesshttp "github.com/uv1406/harness/packages/http"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when tests fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when tests pass
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first pass
	// after a failure
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(s); on {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return on, nil
	}
	return "", fmt.Errorf("unknown notify policy %q (available: always, failure, success, recovery)", s)
}

// maxFailedResults caps how many failures a message lists.
const maxFailedResults = 10

// RunSummary represents the summary of a run for notifications
type RunSummary struct {
	Suites        []string      `json:"suites"`
	TotalTests    int           `json:"total_tests"`
	PassedTests   int           `json:"passed_tests"`
	FailedTests   int           `json:"failed_tests"`
	SkippedTests  int           `json:"skipped_tests"`
	Duration      time.Duration `json:"duration"`
	Environment   string        `json:"environment,omitempty"`
	FailedResults []FailedTest  `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// FailedTest represents a failed test for notifications
type FailedTest struct {
	Name       string `json:"name"`
	Suite      string `json:"suite"`
	Error      string `json:"error,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// Summarize folds suite results into one summary.
func Summarize(environment string, duration time.Duration, results ...*runner.RunResult) *RunSummary {
	s := &RunSummary{Environment: environment, Duration: duration}
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Suites = append(s.Suites, r.Suite)
		s.PassedTests += r.Passed
		s.FailedTests += r.Failed
		s.SkippedTests += r.Skipped
		for _, t := range r.Results {
			if t.Outcome != runner.Fail || len(s.FailedResults) >= maxFailedResults {
				continue
			}
			ft := FailedTest{Name: t.Name, Suite: r.Suite}
			if t.Error != nil {
				ft.Error = t.Error.Error()
			}
			for _, a := range t.Artifacts {
				if a.Location != "" {
					ft.Screenshot = a.Location
					break
				}
			}
			s.FailedResults = append(s.FailedResults, ft)
		}
	}
	s.TotalTests = s.PassedTests + s.FailedTests + s.SkippedTests
	return s
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about run results
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true, // Assume success initially
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Notify sends notifications based on the configured policy. Every
// notifier is attempted; their errors are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	shouldNotify := false
	currentSuccess := summary.FailedTests == 0

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess

	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// post sends msg as JSON and accepts any of the ok statuses.
func post(ctx context.Context, client *harnesshttp.Client, url string, msg any, service string, ok ...int) error {
	req := harnesshttp.NewRequest("POST", url)
	if err := req.SetJSON(msg); err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", service, err)
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send %s notification: %w", service, err)
	}
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("%s webhook returned status %d: %s", service, resp.StatusCode, resp.BodyString())
}

func newClient() *harnesshttp.Client {
	return harnesshttp.NewClient(harnesshttp.WithTimeout(10 * time.Second))
}

func headline(summary *RunSummary) (title string, failed bool) {
	switch {
	case summary.FailedTests > 0:
		return fmt.Sprintf("%d test(s) failed", summary.FailedTests), true
	case summary.IsRecovery:
		return "Tests recovered!", false
	default:
		return "All tests passed!", false
	}
}
