package suites

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uv1406/harness/packages/core/config"
	"github.com/uv1406/harness/packages/core/harness"
	"github.com/uv1406/harness/packages/data"
	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/pages"
	"github.com/uv1406/harness/packages/session"
	"github.com/uv1406/harness/packages/ui/uitest"
)

// demoSite builds browsers that render the text box and check box pages.
type demoSite struct {
	seq      atomic.Int64
	mu       sync.Mutex
	browsers []*uitest.Browser
}

func (d *demoSite) Create(ctx context.Context, p session.Profile) (session.Resource, error) {
	tb, cb := pages.NewTextBox(), pages.NewCheckBox()

	b := uitest.NewBrowser(fmt.Sprintf("demo-%d", d.seq.Add(1)))
	name := b.Add(tb.FullName, nil)
	mail := b.Add(tb.Email, nil)
	b.Add(tb.CurrentAddress, nil)
	b.Add(tb.PermanentAddress, nil)
	out := b.Add(tb.Output, nil)
	b.Add(tb.Submit, &uitest.Element{OnClick: func() {
		out.SetText("Name:" + name.Value() + "\nEmail:" + mail.Value())
	}})
	result := b.Add(cb.Result, nil)
	b.Add(cb.Home, &uitest.Element{OnClick: func() { result.SetText("You have selected :\nhome\ndesktop") }})

	d.mu.Lock()
	defer d.mu.Unlock()
	d.browsers = append(d.browsers, b)
	return b, nil
}

func (d *demoSite) closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, b := range d.browsers {
		n += b.Closed()
	}
	return n
}

// usersAPI imitates the user management service.
func usersAPI() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Header.Get("x-api-key") != "reqres-free-v1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var u User
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&u)
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/users":
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"name": u.Name, "job": u.Job, "id": "517", "createdAt": "2026-01-01T00:00:00Z"})
		case r.Method == http.MethodPut && r.URL.Path == "/api/users/517":
			_ = json.NewEncoder(w).Encode(map[string]any{"name": u.Name, "job": u.Job, "updatedAt": "2026-01-01T00:00:01Z"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/users/2":
			_, _ = w.Write([]byte(`{
				"data": {"id": 2, "email": "janet.weaver@reqres.in", "first_name": "Janet", "last_name": "Weaver", "avatar": "https://reqres.in/img/faces/2-image.jpg"},
				"support": {"url": "https://reqres.in/#support-heading", "text": "thanks"}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func build(t *testing.T, props config.Properties, site *demoSite) *harness.Harness {
	t.Helper()
	props["default.poll.interval.millis"] = "5"
	props["screenshot.directory"] = t.TempDir()
	cfg, err := config.Resolve(props, "")
	require.NoError(t, err)

	h, err := harness.Build(cfg, harness.Options{Logger: logging.Discard(), BrowserFactory: site})
	require.NoError(t, err)
	return h
}

func TestUI_Suite(t *testing.T) {
	site := &demoSite{}
	h := build(t, config.Properties{"app.url": "https://demoqa.com"}, site)

	tests, err := UI(context.Background(), h.Config)
	require.NoError(t, err)
	require.Len(t, tests, 2)

	result := h.Runner.Run(context.Background(), "ui", tests)
	for _, r := range result.Results {
		assert.NoError(t, r.Error, r.Name)
	}
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 2, site.closed())
}

func TestUI_RequiresAppURL(t *testing.T) {
	h := build(t, config.Properties{}, &demoSite{})
	_, err := UI(context.Background(), h.Config)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestUI_DataDriven(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "forms.db")
	src, err := data.Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	require.NoError(t, src.Exec(ctx, `CREATE TABLE form_data (full_name TEXT, email TEXT, current_address TEXT, permanent_address TEXT)`))
	require.NoError(t, src.Exec(ctx, `INSERT INTO form_data VALUES ('Grace Hopper', 'grace@example.com', 'Arlington', NULL), ('Alan Turing', '{{$randomEmail()}}', 'Wilmslow', 'Bletchley')`))
	require.NoError(t, src.Close())

	site := &demoSite{}
	h := build(t, config.Properties{"app.url": "https://demoqa.com", "test.data.source": "sqlite://" + path}, site)

	tests, err := UI(ctx, h.Config)
	require.NoError(t, err)
	require.Len(t, tests, 3)
	assert.Equal(t, "text box form/Grace Hopper", tests[0].Name)
	assert.Equal(t, "text box form/Alan Turing", tests[1].Name)

	result := h.Runner.Run(ctx, "ui", tests)
	assert.Equal(t, 3, result.Passed)
}

func TestAPI_Suite(t *testing.T) {
	server := usersAPI()
	defer server.Close()

	h := build(t, config.Properties{
		"browser":         "api",
		"api.base.url.qa": server.URL,
		"api.key.qa":      "reqres-free-v1",
	}, &demoSite{})

	tests, err := API(context.Background(), h.Config)
	require.NoError(t, err)

	result := h.Runner.Run(context.Background(), "api", tests)
	for _, r := range result.Results {
		assert.Equal(t, "PASS", string(r.Outcome), "%s: %v", r.Name, r.Error)
	}
	assert.Equal(t, 3, result.Passed)
}

func TestAPI_EndpointOverride(t *testing.T) {
	var paths sync.Map
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths.Store(r.URL.Path, true)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	h := build(t, config.Properties{
		"browser":                        "api",
		"api.base.url.qa":                server.URL,
		"api.key.qa":                     "k",
		"api.endpoint.users.register.qa": "/v2/register",
	}, &demoSite{})

	tests, err := API(context.Background(), h.Config)
	require.NoError(t, err)

	result := h.Runner.Run(context.Background(), "api", tests[:1])
	assert.Equal(t, 1, result.Failed)
	assert.True(t, strings.Contains(result.Results[0].Error.Error(), "status =="))
	_, ok := paths.Load("/v2/register")
	assert.True(t, ok)
}

func TestAPI_RequiresBaseURL(t *testing.T) {
	h := build(t, config.Properties{"browser": "api"}, &demoSite{})
	_, err := API(context.Background(), h.Config)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"api", "ui"}, Names())

	s, err := Lookup("ui")
	require.NoError(t, err)
	assert.Equal(t, "ui", s.Name)

	_, err = Lookup("mobile")
	assert.ErrorContains(t, err, "unknown suite")
}
