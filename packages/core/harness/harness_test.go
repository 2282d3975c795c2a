package harness

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uv1406/harness/packages/core/config"
	"github.com/uv1406/harness/packages/core/runner"
	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/session"
	"github.com/uv1406/harness/packages/ui/uitest"
)

func resolve(t *testing.T, props config.Properties) *config.Config {
	t.Helper()
	cfg, err := config.Resolve(props, "")
	require.NoError(t, err)
	return cfg
}

func TestProfile(t *testing.T) {
	t.Run("local browser", func(t *testing.T) {
		p := Profile(resolve(t, config.Properties{"browser": "firefox", "run.headless": "true"}))
		assert.Equal(t, "firefox", p.Name)
		assert.True(t, p.Headless)
		assert.False(t, p.Remote)
		assert.Equal(t, "geckodriver", p.DriverPath)
		assert.Empty(t, p.RemoteURL)
	})

	t.Run("remote grid", func(t *testing.T) {
		p := Profile(resolve(t, config.Properties{"run.mode": "remote", "selenium.grid.url": "http://grid:4444/wd/hub"}))
		assert.True(t, p.Remote)
		assert.Equal(t, "http://grid:4444/wd/hub", p.RemoteURL)
	})

	t.Run("device", func(t *testing.T) {
		p := Profile(resolve(t, config.Properties{
			"browser":                         "android",
			"selenium.grid.url":               "http://appium:4723",
			"device.capabilities.appium:udid": "emulator-5554",
		}))
		assert.True(t, p.Remote)
		assert.Equal(t, "emulator-5554", p.Capabilities["appium:udid"])
	})

	t.Run("api", func(t *testing.T) {
		p := Profile(resolve(t, config.Properties{"browser": "api"}))
		assert.Equal(t, session.Profile{Name: APIProfileName}, p)
	})
}

func TestBuild_RunsBrowserAndAPIWorkers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	cfg := resolve(t, config.Properties{
		"api.base.url.qa":              server.URL,
		"api.key.qa":                   "secret",
		"default.poll.interval.millis": "5",
	})

	browser := uitest.NewBrowser("b1")
	h, err := Build(cfg, Options{
		Logger: logging.Discard(),
		BrowserFactory: session.FactoryFunc(func(ctx context.Context, p session.Profile) (session.Resource, error) {
			return browser, nil
		}),
	})
	require.NoError(t, err)

	apiProfile := session.Profile{Name: APIProfileName}
	result := h.Runner.Run(context.Background(), "mixed", []runner.Test{
		{
			Name: "browser",
			Body: func(ctx context.Context, w *runner.Worker) error {
				a, err := w.UI(ctx)
				if err != nil {
					return err
				}
				return a.Open(ctx, "https://app.example.com")
			},
		},
		{
			Name:    "api",
			Profile: &apiProfile,
			Body: func(ctx context.Context, w *runner.Worker) error {
				_, err := w.Send(ctx, "/health", nil, "GET")
				return err
			},
		},
	})

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, "https://app.example.com", browser.URL())
	assert.Equal(t, 1, browser.Closed())
	assert.Zero(t, h.Close(context.Background()))
}

func TestBuild_UnknownProfileFailsFast(t *testing.T) {
	cfg := resolve(t, nil)
	h, err := Build(cfg, Options{Logger: logging.Discard()})
	require.NoError(t, err)

	bogus := session.Profile{Name: "netscape"}
	result := h.Runner.Run(context.Background(), "suite", []runner.Test{{
		Name:    "bogus",
		Profile: &bogus,
		Body: func(ctx context.Context, w *runner.Worker) error {
			_, err := w.Session(ctx)
			return err
		},
	}})

	assert.ErrorIs(t, result.Results[0].Error, session.ErrUnsupportedProfile)
	assert.ErrorIs(t, result.Results[0].Error, session.ErrResourceAcquisition)
}

func TestBuild_OAuth2SeedsAPIWorkers(t *testing.T) {
	var tokenRequests atomic.Int32
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		id, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "harness", id)
		assert.Equal(t, "s3cret", secret)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "tok-1", "token_type": "Bearer", "expires_in": 3600}`))
	}))
	defer tokens.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	cfg := resolve(t, config.Properties{
		"api.base.url.qa":          server.URL,
		"api.oauth2.token.url":     tokens.URL,
		"api.oauth2.client.id":     "harness",
		"api.oauth2.client.secret": "s3cret",
	})
	h, err := Build(cfg, Options{Logger: logging.Discard()})
	require.NoError(t, err)

	apiProfile := session.Profile{Name: APIProfileName}
	call := func(ctx context.Context, w *runner.Worker) error {
		resp, err := w.Send(ctx, "/me", nil, "GET")
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}
	result := h.Runner.Run(context.Background(), "auth", []runner.Test{
		{Name: "first", Profile: &apiProfile, Body: call},
		{Name: "second", Profile: &apiProfile, Body: call},
	})

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, int32(1), tokenRequests.Load())
}
