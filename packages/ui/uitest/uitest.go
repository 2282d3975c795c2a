// Package uitest provides an in-memory browser for exercising code that
// drives a ui.Driver.
package uitest

import (
	"context"
	"fmt"
	"sync"

	"github.com/uv1406/harness/packages/ui"
)

// Element is an in-memory element. Zero value is visible and enabled.
type Element struct {
	mu       sync.Mutex
	value    string
	text     string
	hidden   bool
	disabled bool
	selected bool
	clicks   int

	// OnClick runs after every successful click.
	OnClick  func()
	ClickErr error
}

func (e *Element) Click(ctx context.Context) error {
	e.mu.Lock()
	if e.ClickErr != nil {
		err := e.ClickErr
		e.mu.Unlock()
		return err
	}
	e.clicks++
	e.selected = !e.selected
	fn := e.OnClick
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = ""
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value += text
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text, nil
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.hidden, nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.disabled, nil
}

func (e *Element) Selected(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected, nil
}

// Value is the text typed into the element.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// SetText sets the visible text.
func (e *Element) SetText(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = s
}

// SetHidden toggles visibility.
func (e *Element) SetHidden(hidden bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden = hidden
}

// Clicks is the number of successful clicks.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Browser is an in-memory session handle implementing ui.Driver and
// ui.Screenshotter.
type Browser struct {
	id string

	mu       sync.Mutex
	elements map[ui.Locator]*Element
	url      string
	scripts  []string
	closed   int
	shot     []byte
	shotErr  error
}

func NewBrowser(id string) *Browser {
	return &Browser{
		id:       id,
		elements: make(map[ui.Locator]*Element),
		shot:     []byte("\x89PNG"),
	}
}

// Add registers el under l and returns it.
func (b *Browser) Add(l ui.Locator, el *Element) *Element {
	if el == nil {
		el = &Element{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.elements[l] = el
	return el
}

// Element returns the element registered under l, or nil.
func (b *Browser) Element(l ui.Locator) *Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.elements[l]
}

// SetScreenshot sets what Screenshot returns.
func (b *Browser) SetScreenshot(payload []byte, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shot, b.shotErr = payload, err
}

func (b *Browser) ID() string { return b.id }

func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

// Closed is the number of Close calls.
func (b *Browser) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) Find(ctx context.Context, l ui.Locator) (ui.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	el, ok := b.elements[l]
	if !ok {
		return nil, fmt.Errorf("%s: %w", l, ui.ErrNoSuchElement)
	}
	return el, nil
}

func (b *Browser) Execute(ctx context.Context, script string, args ...any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts = append(b.scripts, script)
	return nil, nil
}

// Scripts returns the executed scripts in order.
func (b *Browser) Scripts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.scripts...)
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.url = url
	return nil
}

// URL is the last navigated address.
func (b *Browser) URL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url
}

func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shot, b.shotErr
}
