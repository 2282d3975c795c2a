package webdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/uv1406/harness/packages/ui"
)

// Session is a live WebDriver session.
type Session struct {
	client  *Client
	id      string
	browser string
	service *Service
}

// NewSession wraps an existing session id. The service, if any, is stopped
// when the session closes.
func NewSession(c *Client, id, browser string, svc *Service) *Session {
	return &Session{client: c, id: id, browser: browser, service: svc}
}

func (s *Session) ID() string { return s.id }

// Browser is the profile the session was created for.
func (s *Session) Browser() string { return s.browser }

// Close quits the browser and stops the local driver service.
func (s *Session) Close(ctx context.Context) error {
	err := s.client.DeleteSession(ctx, s.id)
	if s.service != nil {
		err = errors.Join(err, s.service.Stop())
	}
	return err
}

func (s *Session) path(suffix string) string {
	return "/session/" + s.id + suffix
}

func (s *Session) Find(ctx context.Context, l ui.Locator) (ui.Element, error) {
	v, err := s.client.command(ctx, "POST", s.path("/element"), map[string]string{
		"using": string(l.Using),
		"value": l.Value,
	})
	if err != nil {
		return nil, err
	}
	id := v.Get(elementKey).String()
	if id == "" {
		id = v.Get("ELEMENT").String()
	}
	if id == "" {
		return nil, fmt.Errorf("webdriver: find %s returned no element reference", l)
	}
	return &Element{session: s, id: id}, nil
}

// Execute runs script synchronously. *Element arguments are sent as web
// element references.
func (s *Session) Execute(ctx context.Context, script string, args ...any) (any, error) {
	wire := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(*Element); ok {
			wire[i] = map[string]string{elementKey: el.id}
			continue
		}
		wire[i] = a
	}

	v, err := s.client.command(ctx, "POST", s.path("/execute/sync"), map[string]any{
		"script": script,
		"args":   wire,
	})
	if err != nil {
		return nil, err
	}
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal([]byte(v.Raw), &out); err != nil {
		return nil, fmt.Errorf("decode script result: %w", err)
	}
	return out, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	_, err := s.client.command(ctx, "POST", s.path("/url"), map[string]string{"url": url})
	return err
}

// CurrentURL returns the address of the current page.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	v, err := s.client.command(ctx, "GET", s.path("/url"), nil)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	v, err := s.client.command(ctx, "GET", s.path("/title"), nil)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Screenshot returns the viewport as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	v, err := s.client.command(ctx, "GET", s.path("/screenshot"), nil)
	if err != nil {
		return nil, err
	}
	return decodeScreenshot(v)
}

// Element is a web element reference.
type Element struct {
	session *Session
	id      string
}

func (e *Element) ID() string { return e.id }

func (e *Element) path(suffix string) string {
	return e.session.path("/element/" + e.id + suffix)
}

func (e *Element) Click(ctx context.Context) error {
	_, err := e.session.client.command(ctx, "POST", e.path("/click"), struct{}{})
	return err
}

func (e *Element) Clear(ctx context.Context) error {
	_, err := e.session.client.command(ctx, "POST", e.path("/clear"), struct{}{})
	return err
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	_, err := e.session.client.command(ctx, "POST", e.path("/value"), map[string]string{"text": text})
	return err
}

func (e *Element) Text(ctx context.Context) (string, error) {
	v, err := e.session.client.command(ctx, "GET", e.path("/text"), nil)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	return e.flag(ctx, "/displayed")
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	return e.flag(ctx, "/enabled")
}

func (e *Element) Selected(ctx context.Context) (bool, error) {
	return e.flag(ctx, "/selected")
}

func (e *Element) flag(ctx context.Context, suffix string) (bool, error) {
	v, err := e.session.client.command(ctx, "GET", e.path(suffix), nil)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}
