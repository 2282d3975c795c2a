package cmd

import (
	"errors"
	"strconv"

	"github.com/uv1406/harness/packages/core/config"
)

// Exit codes for the harness CLI
const (
	// ExitSuccess indicates all tests passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more tests failed
	ExitTestFailure = 1

	// ExitConfigError indicates a configuration or test data error
	ExitConfigError = 3

	// ExitNetworkError indicates a service never became ready
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the process exit code for a failed command. A nil Err
// means the failure was already reported.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func exitWith(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

func exitCode(err error) int {
	var exit *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exit):
		return exit.Code
	case errors.Is(err, config.ErrConfiguration):
		return ExitConfigError
	default:
		return ExitUsageError
	}
}
