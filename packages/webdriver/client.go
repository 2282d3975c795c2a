package webdriver

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	harnesshttp "github.com/uv1406/harness/packages/http"
)

// elementKey is the W3C web element identifier.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// Client issues commands against one remote end.
type Client struct {
	http *harnesshttp.Client
}

// NewClient targets the remote end at baseURL, e.g. http://127.0.0.1:9515
// or http://grid:4444/wd/hub.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: harnesshttp.NewClient(
			harnesshttp.WithBaseURL(baseURL),
			harnesshttp.WithTimeout(timeout),
			harnesshttp.WithDefaultHeader("Accept", "application/json"),
		),
	}
}

// BaseURL returns the remote end address.
func (c *Client) BaseURL() string {
	return c.http.BaseURL()
}

func (c *Client) command(ctx context.Context, method, path string, payload any) (gjson.Result, error) {
	req := harnesshttp.NewRequest(method, path)
	if payload != nil {
		if err := req.SetJSON(payload); err != nil {
			return gjson.Result{}, err
		}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("webdriver %s %s: %w", method, path, err)
	}

	value := resp.Get("value")
	if code := value.Get("error"); code.Exists() || resp.StatusCode >= 400 {
		e := &Error{Status: resp.StatusCode, Code: code.String(), Message: value.Get("message").String()}
		if e.Code == "" {
			e.Code = "unknown error"
			e.Message = resp.BodyString()
		}
		return gjson.Result{}, e
	}
	return value, nil
}

// Ready reports whether the remote end accepts new sessions.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	v, err := c.command(ctx, "GET", "/status", nil)
	if err != nil {
		return false, err
	}
	return v.Get("ready").Bool(), nil
}

// NewSession creates a session with the given capabilities and returns its id.
func (c *Client) NewSession(ctx context.Context, caps map[string]any) (string, error) {
	v, err := c.command(ctx, "POST", "/session", map[string]any{
		"capabilities": map[string]any{"alwaysMatch": caps},
	})
	if err != nil {
		return "", err
	}
	id := v.Get("sessionId").String()
	if id == "" {
		return "", fmt.Errorf("webdriver: new session response has no sessionId")
	}
	return id, nil
}

// DeleteSession ends a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := c.command(ctx, "DELETE", "/session/"+id, nil)
	return err
}

func decodeScreenshot(v gjson.Result) ([]byte, error) {
	png, err := base64.StdEncoding.DecodeString(v.String())
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return png, nil
}
