package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/uv1406/harness/packages/http"
)

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: 201,
		Headers:    map[string]string{"Content-Type": "application/json", "Location": "/users/42"},
		Body:       []byte(body),
		Duration:   250 * time.Millisecond,
	}
}

type values map[string]any

func (v values) Set(key string, val any) { v[key] = val }

func TestExtractAll(t *testing.T) {
	resp := jsonResponse(`{"id": 42, "user": {"email": "ada@example.com"}, "roles": ["admin"]}`)

	got := ExtractAll(resp,
		FromBody("id", "id"),
		FromBody("email", "user.email"),
		FromBody("firstRole", "roles.0"),
		FromHeader("location", "location"),
		&Capture{Name: "status", Source: Status},
		&Capture{Name: "ms", Source: Duration},
		FromBody("missing", "nope"),
	)

	assert.Equal(t, float64(42), got["id"])
	assert.Equal(t, "ada@example.com", got["email"])
	assert.Equal(t, "admin", got["firstRole"])
	assert.Equal(t, "/users/42", got["location"])
	assert.Equal(t, 201, got["status"])
	assert.Equal(t, int64(250), got["ms"])
	assert.NotContains(t, got, "missing")
}

func TestExtract_PlainBody(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Headers: map[string]string{"Content-Type": "text/plain"}, Body: []byte("token-123")}
	e := NewExtractor(resp)

	v, ok := e.Extract(FromBody("raw", ""))
	assert.True(t, ok)
	assert.Equal(t, "token-123", v)

	_, ok = e.Extract(FromBody("field", "a.b"))
	assert.False(t, ok)
}

func TestStore(t *testing.T) {
	dst := values{}
	missing := Store(dst, jsonResponse(`{"id": 7}`), FromBody("userId", "id"), FromHeader("etag", "ETag"))

	assert.Equal(t, float64(7), dst["userId"])
	assert.Equal(t, []string{"etag"}, missing)
}
