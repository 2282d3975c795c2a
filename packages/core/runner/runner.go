package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/uv1406/harness/packages/action"
	"github.com/uv1406/harness/packages/api"
	"github.com/uv1406/harness/packages/artifact"
	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/metrics"
	"github.com/uv1406/harness/packages/retry"
	"github.com/uv1406/harness/packages/session"
)

const (
	// DefaultConcurrency is the default number of workers running at once
	DefaultConcurrency = 4
	// DefaultRetryDelay is the default delay between test attempts
	DefaultRetryDelay = time.Second
)

// Outcome is the final state of a test.
type Outcome string

const (
	Pass Outcome = "PASS"
	Fail Outcome = "FAIL"
	Skip Outcome = "SKIP"
)

// Test is one executable test case.
type Test struct {
	Name string
	Tags []string
	// Profile overrides the runner's resource profile.
	Profile *session.Profile
	// Retry overrides the runner's test-level retry policy.
	Retry *retry.Policy
	// Timeout bounds each attempt; zero uses the runner default.
	Timeout time.Duration
	// Skip, when set, skips the test with this reason.
	Skip string
	Body func(ctx context.Context, w *Worker) error
}

type Config struct {
	Profile     session.Profile
	Concurrency int
	Retry       retry.Policy
	Timeout     time.Duration
	Bail        bool
	NameFilter  string
	TagsFilter  []string
}

// TestRetryPolicy builds the outer policy for count retries: count+1 attempts,
// every failure retried after a fixed delay.
func TestRetryPolicy(count int, delay time.Duration) (retry.Policy, error) {
	return retry.New(count+1, retry.WithFixedDelay(delay), retry.WithRetryable(retry.AnyError))
}

type Runner struct {
	config   *Config
	registry *session.Registry
	actions  *action.Executor
	api      *api.Engine
	hooks    []Hook
	logger   *slog.Logger
	metrics  *metrics.Metrics

	seq    atomic.Int64
	failed atomic.Bool
}

type Option func(*Runner)

func WithActions(e *action.Executor) Option {
	return func(r *Runner) {
		r.actions = e
	}
}

func WithAPI(e *api.Engine) Option {
	return func(r *Runner) {
		r.api = e
	}
}

// WithHooks appends lifecycle hooks. AfterTest runs in reverse order.
func WithHooks(hooks ...Hook) Option {
	return func(r *Runner) {
		r.hooks = append(r.hooks, hooks...)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func NewRunner(cfg *Config, registry *session.Registry, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	r := &Runner{
		config:   cfg,
		registry: registry,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDefault(r.logger)
	if r.actions == nil {
		r.actions = action.NewExecutor(action.WithLogger(r.logger), action.WithMetrics(r.metrics))
	}
	return r
}

type RunResult struct {
	Suite    string
	Results  []*TestResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
}

// OK reports whether no test failed.
func (r *RunResult) OK() bool { return r.Failed == 0 }

type TestResult struct {
	Name       string
	Tags       []string
	Outcome    Outcome
	SkipReason string
	Attempts   int
	Worker     session.WorkerID
	Duration   time.Duration
	Artifacts  []*artifact.Artifact
	Error      error
}

// Run executes tests and returns once every attempt has finished and every
// session bound during the run has been released.
func (r *Runner) Run(ctx context.Context, suite string, tests []Test) *RunResult {
	start := time.Now()
	result := &RunResult{
		Suite:   suite,
		Results: make([]*TestResult, len(tests)),
	}
	r.suiteStarted(suite, len(tests))
	if r.config.Timeout > 0 {
		r.logger.Debug("retry worst case", "suite", suite, "worst_case", r.config.Retry.WorstCase(r.config.Timeout), "policy", r.config.Retry.String())
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency())
	for i, t := range tests {
		if reason := r.skipReason(t); reason != "" {
			result.Results[i] = &TestResult{Name: t.Name, Tags: t.Tags, Outcome: Skip, SkipReason: reason}
			continue
		}
		g.Go(func() error {
			if r.config.Bail && r.failed.Load() {
				result.Results[i] = &TestResult{Name: t.Name, Tags: t.Tags, Outcome: Skip, SkipReason: "bail: an earlier test failed"}
				return nil
			}
			result.Results[i] = r.runTest(ctx, suite, t)
			return nil
		})
	}
	_ = g.Wait()

	if n := r.registry.Close(context.WithoutCancel(ctx)); n > 0 {
		r.logger.Warn("released sessions left bound after run", "suite", suite, "count", n)
	}

	for _, res := range result.Results {
		switch res.Outcome {
		case Pass:
			result.Passed++
		case Fail:
			result.Failed++
		default:
			result.Skipped++
		}
	}
	result.Duration = time.Since(start)
	r.suiteFinished(result)
	return result
}

func (r *Runner) concurrency() int {
	if r.config.Concurrency > 0 {
		return r.config.Concurrency
	}
	return DefaultConcurrency
}

func (r *Runner) skipReason(t Test) string {
	if t.Skip != "" {
		return t.Skip
	}
	if t.Body == nil {
		return "no test body"
	}
	if !matchesPattern(t.Name, r.config.NameFilter) {
		return "filtered out"
	}
	if len(r.config.TagsFilter) > 0 && !hasAnyTag(t.Tags, r.config.TagsFilter) {
		return "filtered out"
	}
	return ""
}

func (r *Runner) runTest(ctx context.Context, suite string, t Test) *TestResult {
	policy := r.config.Retry
	if t.Retry != nil {
		policy = *t.Retry
	}

	result := &TestResult{Name: t.Name, Tags: t.Tags}
	start := time.Now()

	for attempt := 0; ; attempt++ {
		ev := r.runAttempt(ctx, suite, t, attempt)
		result.Attempts = attempt + 1
		result.Outcome = ev.Outcome
		result.Error = ev.Err
		result.Worker = ev.Worker.ID
		result.Artifacts = append(result.Artifacts, ev.Artifacts...)

		if ev.Outcome == Skip {
			var skip *SkipError
			if errors.As(ev.Err, &skip) {
				result.SkipReason = skip.Reason
			}
			result.Error = nil
		}

		if ev.Outcome != Fail || ctx.Err() != nil {
			break
		}
		if !policy.HasNext(attempt) || !policy.Retryable(retry.Outcome{Err: ev.Err}) {
			break
		}

		r.logger.Warn("test failed, retrying", "test", t.Name, "attempt", attempt+1, "error", ev.Err)
		if err := retry.Sleep(ctx, policy.Delay(attempt)); err != nil {
			break
		}
	}

	if result.Outcome == Fail {
		r.failed.Store(true)
	}
	result.Duration = time.Since(start)
	r.metrics.TestCompleted(string(result.Outcome), result.Duration)
	return result
}

// runAttempt runs one attempt on a fresh worker. Hooks and release run on
// every exit path; release always runs last.
func (r *Runner) runAttempt(ctx context.Context, suite string, t Test, attempt int) *Event {
	profile := r.config.Profile
	if t.Profile != nil {
		profile = *t.Profile
	}

	id := session.WorkerID(fmt.Sprintf("w%d", r.seq.Add(1)))
	w := &Worker{
		ID:       id,
		Test:     t.Name,
		Attempt:  attempt + 1,
		Logger:   r.logger.With("worker", id, "test", t.Name, "attempt", attempt+1),
		registry: r.registry,
		profile:  profile,
		actions:  r.actions,
		api:      r.api,
	}
	ev := &Event{Suite: suite, Test: t.Name, Tags: t.Tags, Attempt: attempt + 1, Worker: w}

	cleanup := context.WithoutCancel(ctx)
	defer r.registry.Release(cleanup, id)

	for _, h := range r.hooks {
		r.safeHook(w, "before", func() { h.BeforeTest(ctx, ev) })
	}

	start := time.Now()
	err := r.invoke(ctx, t, w)
	ev.Duration = time.Since(start)
	ev.Err = err
	ev.Outcome = classify(err)

	if pe := (*PanicError)(nil); errors.As(err, &pe) {
		w.Logger.Error("test panicked", "panic", pe.Value, "stack", string(pe.Stack))
	}

	for i := len(r.hooks) - 1; i >= 0; i-- {
		h := r.hooks[i]
		r.safeHook(w, "after", func() { h.AfterTest(cleanup, ev) })
	}
	return ev
}

func (r *Runner) invoke(ctx context.Context, t Test, w *Worker) (err error) {
	timeout := t.Timeout
	if timeout == 0 {
		timeout = r.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return t.Body(ctx, w)
}

func (r *Runner) safeHook(w *Worker, phase string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			w.Logger.Error("lifecycle hook panicked", "phase", phase, "panic", rec)
		}
	}()
	fn()
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return Pass
	case errors.Is(err, ErrSkipped):
		return Skip
	default:
		return Fail
	}
}

func (r *Runner) suiteStarted(suite string, total int) {
	for _, h := range r.hooks {
		if l, ok := h.(SuiteListener); ok {
			l.SuiteStarted(suite, total)
		}
	}
}

func (r *Runner) suiteFinished(result *RunResult) {
	for _, h := range r.hooks {
		if l, ok := h.(SuiteListener); ok {
			l.SuiteFinished(result)
		}
	}
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' && len(pattern) > 1 {
		substr := pattern[1 : len(pattern)-1]
		for i := 0; i <= len(name)-len(substr); i++ {
			if name[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}

	if pattern[0] == '*' {
		suffix := pattern[1:]
		return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
