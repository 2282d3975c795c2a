package runner

import (
	"errors"
	"fmt"
)

// ErrSkipped matches errors returned by SkipTest.
var ErrSkipped = errors.New("test skipped")

// ErrNoDriver is returned by Worker.UI when the session handle cannot drive a UI.
var ErrNoDriver = errors.New("session has no ui driver")

// ErrNoAPI is returned when a worker has no request engine configured.
var ErrNoAPI = errors.New("no api engine configured")

// SkipError ends a test with outcome SKIP.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

func (e *SkipError) Is(target error) bool { return target == ErrSkipped }

// SkipTest returns an error that marks the running test as skipped.
func SkipTest(reason string) error {
	return &SkipError{Reason: reason}
}

// PanicError carries a value recovered from a test body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("test panicked: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
