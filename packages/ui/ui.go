package ui

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoSuchElement   = errors.New("no such element")
	ErrIntercepted     = errors.New("element click intercepted")
	ErrStale           = errors.New("stale element reference")
	ErrNotInteractable = errors.New("element not interactable")
	ErrTimeout         = errors.New("timeout")
	ErrNoSuchSession   = errors.New("invalid session id")
)

// Recoverable reports whether a native action failure may succeed through
// the scripted path.
func Recoverable(err error) bool {
	return errors.Is(err, ErrIntercepted) || errors.Is(err, ErrStale) || errors.Is(err, ErrNotInteractable)
}

// Strategy names a W3C location strategy.
type Strategy string

const (
	CSS             Strategy = "css selector"
	XPath           Strategy = "xpath"
	LinkText        Strategy = "link text"
	AccessibilityID Strategy = "accessibility id"
)

// Locator identifies an element on the page or screen.
type Locator struct {
	Using Strategy
	Value string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Using, l.Value)
}

// ByID matches the element id attribute.
func ByID(id string) Locator {
	return Locator{Using: CSS, Value: "#" + cssEscape(id)}
}

// ByName matches the name attribute.
func ByName(name string) Locator {
	return Locator{Using: CSS, Value: fmt.Sprintf("[name=%q]", name)}
}

func ByCSS(selector string) Locator {
	return Locator{Using: CSS, Value: selector}
}

func ByXPath(expr string) Locator {
	return Locator{Using: XPath, Value: expr}
}

// ByAccessibilityID matches native mobile accessibility identifiers.
func ByAccessibilityID(id string) Locator {
	return Locator{Using: AccessibilityID, Value: id}
}

// cssEscape escapes the characters that commonly appear in generated ids.
func cssEscape(id string) string {
	out := make([]rune, 0, len(id))
	for i, r := range id {
		switch {
		case r == ':' || r == '.' || r == '[' || r == ']' || r == '/' || r == ' ':
			out = append(out, '\\', r)
		case i == 0 && r >= '0' && r <= '9':
			out = append(out, []rune(fmt.Sprintf("\\3%c ", r))...)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// Element is a located element. References may go stale at any time.
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Selected(ctx context.Context) (bool, error)
}

// Driver is the per-session UI capability.
type Driver interface {
	// Find returns the first match or an error matching ErrNoSuchElement.
	Find(ctx context.Context, l Locator) (Element, error)
	// Execute runs a synchronous script. Elements passed in args are
	// available as arguments[i].
	Execute(ctx context.Context, script string, args ...any) (any, error)
	Navigate(ctx context.Context, url string) error
}

// Screenshotter captures the current viewport as PNG.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}
