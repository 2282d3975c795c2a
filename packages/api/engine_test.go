package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/retry"
	"github.com/uv1406/harness/packages/session"
)

// scripted replies with the next status in order, repeating the last one.
func scripted(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statuses[n])
		_, _ = w.Write([]byte(`{"id":"7","attempt":` + string(rune('0'+n)) + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestEngine(baseURL string, opts ...Option) *Engine {
	return NewEngine(baseURL, "test-key", append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func policy(t *testing.T, max int) retry.Policy {
	p, err := retry.New(max, retry.WithFixedDelay(time.Millisecond))
	require.NoError(t, err)
	return p
}

func TestSend_RecoversAfterServerErrors(t *testing.T) {
	srv, calls := scripted(t, 500, 500, 500, 201)
	e := newTestEngine(srv.URL)

	resp, err := e.Send(context.Background(), nil, "/users", map[string]string{"name": "morpheus"}, "POST", policy(t, 4))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
}

func TestSend_ClientErrorIsNotRetried(t *testing.T) {
	srv, calls := scripted(t, 404)
	e := newTestEngine(srv.URL)

	resp, err := e.Send(context.Background(), nil, "/users/23", nil, "GET", policy(t, 5))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_ExhaustedAfterMaxAttempts(t *testing.T) {
	srv, calls := scripted(t, 503)
	e := newTestEngine(srv.URL)

	resp, err := e.Send(context.Background(), nil, "/users", nil, "GET", policy(t, 3))
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.True(t, IsKind(err, KindExhausted))
	assert.Equal(t, int32(3), calls.Load())

	var f *RequestFailure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, 3, f.Attempts)
	require.NotNil(t, f.Last)
	assert.Equal(t, 503, f.Last.StatusCode)
}

func TestSend_ImmediateSuccess(t *testing.T) {
	srv, calls := scripted(t, 200)
	e := newTestEngine(srv.URL)

	resp, err := e.Send(context.Background(), nil, "/users", nil, "get", policy(t, 4))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_IllegalMethod(t *testing.T) {
	srv, calls := scripted(t, 200)
	e := newTestEngine(srv.URL)

	_, err := e.Send(context.Background(), nil, "/users", nil, "TRACE", policy(t, 4))
	assert.True(t, IsKind(err, KindIllegalMethod))
	assert.Equal(t, int32(0), calls.Load())

	var f *RequestFailure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, 0, f.Attempts)
}

func TestSend_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := newTestEngine(url)
	start := time.Now()
	_, err := e.Send(context.Background(), nil, "/users", nil, "GET", policy(t, 3))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))

	var f *RequestFailure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, 3, f.Attempts, "transport errors are retried until the final attempt")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSend_TransportThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := newTestEngine(srv.URL).Send(context.Background(), nil, "/health", nil, "GET", policy(t, 2))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSend_CancelledDuringDelay(t *testing.T) {
	srv, calls := scripted(t, 503)
	e := newTestEngine(srv.URL)
	p, err := retry.New(5, retry.WithFixedDelay(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err = e.Send(ctx, nil, "/users", nil, "GET", p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsKind(err, KindTransport))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_HeadersAndBody(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]http.Header{}
	bodies := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen[r.Method] = r.Header.Clone()
		bodies[r.Method] = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := newTestEngine(srv.URL)
	auth := &session.AuthContext{}
	ctx := context.Background()

	_, err := e.Send(ctx, auth, "/users", map[string]string{"name": "neo"}, "POST", policy(t, 1))
	require.NoError(t, err)
	assert.Equal(t, "test-key", seen["POST"].Get(APIKeyHeader))
	assert.Equal(t, "application/json", seen["POST"].Get("Content-Type"))
	assert.Empty(t, seen["POST"].Get("Authorization"))
	assert.JSONEq(t, `{"name":"neo"}`, bodies["POST"])

	auth.SetToken("tok-123")
	_, err = e.Send(ctx, auth, "/users/2", map[string]string{"ignored": "yes"}, "DELETE", policy(t, 1))
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", seen["DELETE"].Get("Authorization"))
	assert.Empty(t, bodies["DELETE"], "DELETE sends no body")

	auth.Clear()
	_, err = e.Send(ctx, auth, "/users/2", nil, "GET", policy(t, 1))
	require.NoError(t, err)
	assert.Empty(t, seen["GET"].Get("Authorization"))
}

func TestSend_EndpointResolver(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := newTestEngine(srv.URL, WithEndpointResolver(func(name string) string {
		if name == "users" {
			return "/api/users"
		}
		return name
	}))
	_, err := e.Get(context.Background(), nil, "users")
	require.NoError(t, err)
	assert.Equal(t, "/api/users", path)
}

func TestVerbHelpersUseDefaultPolicy(t *testing.T) {
	srv, calls := scripted(t, 500, 500, 200)
	e := newTestEngine(srv.URL, WithPolicy(policy(t, 3)))
	ctx := context.Background()

	resp, err := e.Put(ctx, nil, "/users/2", map[string]string{"job": "zion resident"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())

	for _, call := range []func() error{
		func() error { _, err := e.Get(ctx, nil, "/x"); return err },
		func() error { _, err := e.Post(ctx, nil, "/x", nil); return err },
		func() error { _, err := e.Patch(ctx, nil, "/x", json.RawMessage(`{}`)); return err },
		func() error { _, err := e.Delete(ctx, nil, "/x"); return err },
	} {
		assert.NoError(t, call())
	}
	assert.Equal(t, 3, e.Policy().MaxAttempts())
}

func TestFactory_HandlesAreDistinct(t *testing.T) {
	e := newTestEngine("http://localhost")
	f := e.Factory()

	a, err := f.Create(context.Background(), session.Profile{Name: "api"})
	require.NoError(t, err)
	b, err := f.Create(context.Background(), session.Profile{Name: "api"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Same(t, e, a.(*Handle).Engine())
	assert.NoError(t, a.Close(context.Background()))
}
