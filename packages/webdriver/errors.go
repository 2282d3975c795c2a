package webdriver

import (
	"fmt"

	"github.com/uv1406/harness/packages/ui"
)

// Error is a protocol-level failure reported by the remote end.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webdriver %s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("webdriver %s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Is maps W3C error codes onto the ui sentinels.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case "no such element":
		return target == ui.ErrNoSuchElement
	case "element click intercepted":
		return target == ui.ErrIntercepted
	case "stale element reference":
		return target == ui.ErrStale
	case "element not interactable", "invalid element state":
		return target == ui.ErrNotInteractable
	case "timeout", "script timeout":
		return target == ui.ErrTimeout
	case "invalid session id":
		return target == ui.ErrNoSuchSession
	}
	return false
}
