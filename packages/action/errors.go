package action

import (
	"errors"
	"fmt"

	"github.com/uv1406/harness/packages/ui"
)

// Kind classifies an action failure.
type Kind string

const (
	TargetNotFound        Kind = "TargetNotFound"
	TargetNotInteractable Kind = "TargetNotInteractable"
	FallbackExhausted     Kind = "FallbackExhausted"
	// Unrecoverable is a driver error that no retry or fallback can fix,
	// such as a dead session. Cause carries the driver error.
	Unrecoverable Kind = "Unrecoverable"
)

var (
	ErrTargetNotFound        = errors.New("target not found")
	ErrTargetNotInteractable = errors.New("target not interactable")
	ErrFallbackExhausted     = errors.New("fallback exhausted")
	ErrUnrecoverable         = errors.New("unrecoverable driver error")
)

// Failure is returned when an action cannot be completed.
type Failure struct {
	Kind   Kind
	Op     Op
	Target ui.Locator
	Cause  error
}

func (f *Failure) Error() string {
	if f.Cause == nil {
		return fmt.Sprintf("%s %s: %s", f.Op, f.Target, f.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", f.Op, f.Target, f.Kind, f.Cause)
}

func (f *Failure) Unwrap() error { return f.Cause }

func (f *Failure) Is(target error) bool {
	switch f.Kind {
	case TargetNotFound:
		return target == ErrTargetNotFound
	case TargetNotInteractable:
		return target == ErrTargetNotInteractable
	case FallbackExhausted:
		return target == ErrFallbackExhausted
	case Unrecoverable:
		return target == ErrUnrecoverable
	}
	return false
}
