// Package oauth2 obtains bearer tokens with the client credentials grant.
package oauth2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	harnesshttp "github.com/uv1406/harness/packages/http"
)

// expiryLeeway treats a token as expired slightly early to absorb clock skew.
const expiryLeeway = 30 * time.Second

// Config holds OAuth2 configuration
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Token represents an OAuth2 access token
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	Scope       string    `json:"scope,omitempty"`
	ExpiresAt   time.Time `json:"-"`
}

// IsExpired checks if the token is expired
func (t *Token) IsExpired() bool {
	return t.expiredAt(time.Now())
}

func (t *Token) expiredAt(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(expiryLeeway).After(t.ExpiresAt)
}

// Provider fetches tokens and reuses them until they expire. It is safe
// for concurrent use; concurrent callers share one token request.
type Provider struct {
	config Config
	client *harnesshttp.Client
	cache  *TokenCache
	now    func() time.Time

	mu sync.Mutex
}

// NewProvider creates a new OAuth2 provider
func NewProvider(config Config) *Provider {
	return &Provider{
		config: config,
		client: harnesshttp.NewClient(harnesshttp.WithTimeout(30 * time.Second)),
		cache:  NewTokenCache(),
		now:    time.Now,
	}
}

// Token returns a valid access token, fetching a new one if necessary.
func (p *Provider) Token(ctx context.Context) (*Token, error) {
	key := p.cacheKey()
	if token := p.cache.Valid(key, p.now()); token != nil {
		return token, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token := p.cache.Valid(key, p.now()); token != nil {
		return token, nil
	}

	token, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, token)
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (p *Provider) Invalidate() {
	p.cache.Delete(p.cacheKey())
}

func (p *Provider) cacheKey() string {
	return fmt.Sprintf("%s:%s:%s", p.config.TokenURL, p.config.ClientID, strings.Join(p.config.Scopes, ","))
}

func (p *Provider) fetch(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if len(p.config.Scopes) > 0 {
		form.Set("scope", strings.Join(p.config.Scopes, " "))
	}

	req := harnesshttp.NewRequest(http.MethodPost, p.config.TokenURL).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(form.Encode())
	if p.config.ClientID != "" && p.config.ClientSecret != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(p.config.ClientID + ":" + p.config.ClientSecret))
		req.SetHeader("Authorization", "Basic "+auth)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(resp.Body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("token request failed: %s - %s", errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, resp.BodyString())
	}

	var token Token
	if err := resp.Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	if token.ExpiresIn > 0 {
		token.ExpiresAt = p.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return &token, nil
}
