package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every configuration failure.
var ErrConfiguration = errors.New("configuration error")

// Error reports a missing or invalid configuration option.
type Error struct {
	Key    string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config %s=%q: %s", e.Key, e.Value, e.Reason)
}

func (e *Error) Is(target error) bool {
	return target == ErrConfiguration
}

func invalid(key, value, reason string) *Error {
	return &Error{Key: key, Value: value, Reason: reason}
}
