// Package runner executes suites of tests against per-worker sessions.
//
// It provides functionality for:
//   - Running tests in parallel with a bounded number of workers
//   - Lazily binding one session per worker and releasing it on every exit path
//   - Test-level retry driven by a retry.Policy
//   - Lifecycle hooks, including diagnostic capture on failure
//   - Name and tag filtering
//
// A test body receives its Worker explicitly; it never reaches for
// goroutine-local state.
package runner
