package config

import (
	"fmt"
	neturl "net/url"
	"strconv"
	"strings"
	"time"
)

// Browser names a session backend.
type Browser string

const (
	BrowserChrome  Browser = "chrome"
	BrowserFirefox Browser = "firefox"
	BrowserEdge    Browser = "edge"
	BrowserAndroid Browser = "android"
	BrowserIOS     Browser = "ios"
	// BrowserAPI runs API-only workers that never open a UI session.
	BrowserAPI Browser = "api"
)

// SupportedBrowsers lists every accepted browser value.
var SupportedBrowsers = []Browser{BrowserChrome, BrowserFirefox, BrowserEdge, BrowserAndroid, BrowserIOS, BrowserAPI}

// IsDevice reports whether b is served by a remote device endpoint.
func (b Browser) IsDevice() bool {
	return b == BrowserAndroid || b == BrowserIOS
}

// Mode selects where sessions are created.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Config is the resolved, validated configuration for a run.
type Config struct {
	Environment        string
	Browser            Browser
	Headless           bool
	Mode               Mode
	GridURL            string
	DriverPath         string
	TestRetryCount     int
	TestTimeout        time.Duration
	ExplicitWait       time.Duration
	PollInterval       time.Duration
	APIBaseURL         string
	APIKey             string
	APIMaxAttempts     int
	APIRetryDelay      time.Duration
	AppURL             string
	ScreenshotDir      string
	DataSource         string
	Concurrency        int
	LogLevel           string
	DeviceCapabilities map[string]any
	OAuth2             OAuth2

	props Properties
}

// OAuth2 configures bearer tokens for API workers. An empty TokenURL
// disables it.
type OAuth2 struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Enabled reports whether a token endpoint is configured.
func (o OAuth2) Enabled() bool { return o.TokenURL != "" }

// Resolve validates props and builds a Config for the named environment.
// An empty env falls back to the environment property, then to "qa".
func Resolve(props Properties, env string) (*Config, error) {
	p := DefaultProperties().Merge(props)
	if env == "" {
		env = p.String(KeyEnvironment, DefaultEnvironment)
	}

	c := &Config{
		Environment:   env,
		AppURL:        p.String(KeyAppURL, ""),
		ScreenshotDir: p.String(KeyScreenshotDir, ""),
		DataSource:    p.String(KeyDataSource, ""),
		LogLevel:      p.String(KeyLogLevel, "info"),
		APIBaseURL:    envScoped(p, KeyAPIBaseURL, env),
		APIKey:        envScoped(p, KeyAPIKey, env),
		props:         p,
	}

	browser := Browser(strings.ToLower(p.String(KeyBrowser, "")))
	if !isSupported(browser) {
		return nil, invalid(KeyBrowser, string(browser), "browser not supported")
	}
	c.Browser = browser

	mode := Mode(strings.ToLower(p.String(KeyMode, "")))
	if mode != ModeLocal && mode != ModeRemote {
		return nil, invalid(KeyMode, string(mode), "must be local or remote")
	}
	c.Mode = mode

	var err error
	if c.Headless, err = p.Bool(KeyHeadless, false); err != nil {
		return nil, err
	}

	c.GridURL = p.String(KeyGridURL, "")
	if c.Mode == ModeRemote || c.Browser.IsDevice() {
		if err := validateEndpoint(KeyGridURL, c.GridURL); err != nil {
			return nil, err
		}
	}
	c.DriverPath = p.String(KeyDriverPath+"."+string(c.Browser), "")

	if c.TestRetryCount, err = nonNegative(p, KeyTestRetryCount); err != nil {
		return nil, err
	}
	if c.TestTimeout, err = duration(p, KeyTestTimeout, time.Second); err != nil {
		return nil, err
	}
	if c.ExplicitWait, err = duration(p, KeyExplicitWait, time.Second); err != nil {
		return nil, err
	}
	if c.PollInterval, err = duration(p, KeyPollInterval, time.Millisecond); err != nil {
		return nil, err
	}
	if c.APIRetryDelay, err = duration(p, KeyAPIRetryDelay, time.Millisecond); err != nil {
		return nil, err
	}
	if c.APIMaxAttempts, err = positive(p, KeyAPIMaxAttempts); err != nil {
		return nil, err
	}
	if c.Concurrency, err = positive(p, KeyConcurrency); err != nil {
		return nil, err
	}

	if c.APIBaseURL != "" {
		if err := validateEndpoint(KeyAPIBaseURL+"."+env, c.APIBaseURL); err != nil {
			return nil, err
		}
	}

	c.DeviceCapabilities = capabilities(p.WithPrefix(KeyDeviceCaps))

	c.OAuth2 = OAuth2{
		TokenURL:     envScoped(p, KeyOAuth2TokenURL, env),
		ClientID:     envScoped(p, KeyOAuth2ClientID, env),
		ClientSecret: envScoped(p, KeyOAuth2Secret, env),
	}
	for _, scope := range strings.Split(envScoped(p, KeyOAuth2Scopes, env), ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			c.OAuth2.Scopes = append(c.OAuth2.Scopes, scope)
		}
	}
	if c.OAuth2.Enabled() {
		if err := validateEndpoint(KeyOAuth2TokenURL, c.OAuth2.TokenURL); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RequireAPI fails when the HTTP backend for the environment is not configured.
func (c *Config) RequireAPI() error {
	if c.APIBaseURL == "" {
		return invalid(KeyAPIBaseURL+"."+c.Environment, "", "no API base URL configured")
	}
	if c.APIKey == "" {
		return invalid(KeyAPIKey+"."+c.Environment, "", "no API key configured")
	}
	return nil
}

// RequireApp fails when UI suites have no application URL.
func (c *Config) RequireApp() error {
	if c.AppURL == "" {
		return invalid(KeyAppURL, "", "no application URL configured")
	}
	return nil
}

// Endpoint returns the path configured for a logical endpoint name. The
// environment-specific key wins over the generic one; an unconfigured
// name is returned unchanged so callers may pass literal paths.
func (c *Config) Endpoint(name string) string {
	if v := envScoped(c.props, KeyAPIEndpoint+"."+name, c.Environment); v != "" {
		return v
	}
	return name
}

// Properties returns the merged properties the config was resolved from.
func (c *Config) Properties() Properties {
	return c.props
}

func envScoped(p Properties, key, env string) string {
	if v := p.String(key+"."+env, ""); v != "" {
		return v
	}
	return p.String(key, "")
}

func isSupported(b Browser) bool {
	for _, s := range SupportedBrowsers {
		if s == b {
			return true
		}
	}
	return false
}

func validateEndpoint(key, raw string) error {
	if raw == "" {
		return invalid(key, "", "required")
	}
	u, err := neturl.Parse(raw)
	if err != nil {
		return invalid(key, raw, fmt.Sprintf("invalid URL: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid(key, raw, "scheme must be http or https")
	}
	if u.Host == "" {
		return invalid(key, raw, "URL must have a host")
	}
	return nil
}

func nonNegative(p Properties, key string) (int, error) {
	n, err := p.Int(key, 0)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, invalid(key, strconv.Itoa(n), "must not be negative")
	}
	return n, nil
}

func positive(p Properties, key string) (int, error) {
	n, err := p.Int(key, 0)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, invalid(key, strconv.Itoa(n), "must be at least 1")
	}
	return n, nil
}

func duration(p Properties, key string, unit time.Duration) (time.Duration, error) {
	n, err := nonNegative(p, key)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * unit, nil
}

// capabilities converts flat capability properties to typed values so
// booleans and numbers reach the remote endpoint unquoted.
func capabilities(p Properties) map[string]any {
	if len(p) == 0 {
		return nil
	}
	caps := make(map[string]any, len(p))
	for k, v := range p {
		if b, err := strconv.ParseBool(v); err == nil {
			caps[k] = b
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			caps[k] = n
			continue
		}
		caps[k] = v
	}
	return caps
}
