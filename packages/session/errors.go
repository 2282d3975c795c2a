package session

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceAcquisition is matched by every AcquireError.
	ErrResourceAcquisition = errors.New("resource acquisition failed")
	// ErrUnsupportedProfile is returned by a Mux for unknown profile names.
	ErrUnsupportedProfile = errors.New("unsupported profile")
	// ErrTeardown is matched by every TeardownError.
	ErrTeardown = errors.New("teardown failed")
)

// AcquireError reports that no resource could be created for a worker.
type AcquireError struct {
	Worker  WorkerID
	Profile string
	Err     error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquire %s session for worker %s: %v", e.Profile, e.Worker, e.Err)
}

func (e *AcquireError) Unwrap() error { return e.Err }

func (e *AcquireError) Is(target error) bool {
	return target == ErrResourceAcquisition
}

// TeardownError reports a failed resource shutdown. It is only ever logged.
type TeardownError struct {
	Worker    WorkerID
	SessionID string
	HandleID  string
	Err       error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown of %s (handle %s) for worker %s: %v", e.SessionID, e.HandleID, e.Worker, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }

func (e *TeardownError) Is(target error) bool {
	return target == ErrTeardown
}
