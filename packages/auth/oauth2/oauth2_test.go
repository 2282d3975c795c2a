package oauth2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, requests *atomic.Int32, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProvider_Token(t *testing.T) {
	var requests atomic.Int32
	var scope, user string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.NoError(t, r.ParseForm())
		scope = r.PostForm.Get("scope")
		user, _, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "abc", "token_type": "Bearer", "expires_in": 3600}`))
	}))
	defer server.Close()

	p := NewProvider(Config{
		TokenURL:     server.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{"read", "write"},
	})

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token.AccessToken)
	assert.False(t, token.IsExpired())
	assert.Equal(t, "read write", scope)
	assert.Equal(t, "client", user)

	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestProvider_ConcurrentCallersShareFetch(t *testing.T) {
	var requests atomic.Int32
	server := tokenServer(t, &requests, `{"access_token": "abc", "expires_in": 60}`, http.StatusOK)
	p := NewProvider(Config{TokenURL: server.URL})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Token(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), requests.Load())
}

func TestProvider_RefreshesExpiredToken(t *testing.T) {
	var requests atomic.Int32
	server := tokenServer(t, &requests, `{"access_token": "abc", "expires_in": 60}`, http.StatusOK)
	p := NewProvider(Config{TokenURL: server.URL})

	now := time.Now()
	p.now = func() time.Time { return now }
	_, err := p.Token(context.Background())
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
}

func TestProvider_Invalidate(t *testing.T) {
	var requests atomic.Int32
	server := tokenServer(t, &requests, `{"access_token": "abc"}`, http.StatusOK)
	p := NewProvider(Config{TokenURL: server.URL})

	_, err := p.Token(context.Background())
	require.NoError(t, err)
	p.Invalidate()
	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
}

func TestProvider_Errors(t *testing.T) {
	t.Run("oauth error body", func(t *testing.T) {
		var requests atomic.Int32
		server := tokenServer(t, &requests, `{"error": "invalid_client", "error_description": "bad secret"}`, http.StatusUnauthorized)
		_, err := NewProvider(Config{TokenURL: server.URL}).Token(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid_client - bad secret")
	})

	t.Run("plain status", func(t *testing.T) {
		var requests atomic.Int32
		server := tokenServer(t, &requests, `gateway down`, http.StatusBadGateway)
		_, err := NewProvider(Config{TokenURL: server.URL}).Token(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})

	t.Run("missing access token", func(t *testing.T) {
		var requests atomic.Int32
		server := tokenServer(t, &requests, `{"token_type": "Bearer"}`, http.StatusOK)
		_, err := NewProvider(Config{TokenURL: server.URL}).Token(context.Background())
		assert.ErrorContains(t, err, "no access_token")
	})
}

func TestToken_IsExpired(t *testing.T) {
	assert.False(t, (&Token{}).IsExpired())
	assert.True(t, (&Token{ExpiresAt: time.Now().Add(10 * time.Second)}).IsExpired())
	assert.False(t, (&Token{ExpiresAt: time.Now().Add(time.Hour)}).IsExpired())
}

func TestTokenCache(t *testing.T) {
	c := NewTokenCache()
	assert.Nil(t, c.Get("k"))
	c.Set("k", &Token{AccessToken: "v"})
	assert.Equal(t, "v", c.Get("k").AccessToken)
	assert.NotNil(t, c.Valid("k", time.Now()))

	c.Set("old", &Token{AccessToken: "o", ExpiresAt: time.Now()})
	assert.Nil(t, c.Valid("old", time.Now()))

	c.Delete("k")
	assert.Nil(t, c.Get("k"))
	c.Clear()
	assert.Nil(t, c.Get("old"))
}
