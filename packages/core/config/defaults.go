package config

// Keys recognised by Resolve.
const (
	KeyEnvironment     = "environment"
	KeyBrowser         = "browser"
	KeyHeadless        = "run.headless"
	KeyMode            = "run.mode"
	KeyGridURL         = "selenium.grid.url"
	KeyDriverPath      = "webdriver.path"
	KeyTestRetryCount  = "test.retry.count"
	KeyTestTimeout     = "test.timeout.seconds"
	KeyExplicitWait    = "default.explicit.wait.seconds"
	KeyPollInterval    = "default.poll.interval.millis"
	KeyAPIBaseURL      = "api.base.url"
	KeyAPIKey          = "api.key"
	KeyAPIEndpoint     = "api.endpoint"
	KeyAPIMaxAttempts  = "api.retry.max.attempts"
	KeyAPIRetryDelay   = "api.retry.delay.millis"
	KeyAppURL          = "app.url"
	KeyScreenshotDir   = "screenshot.directory"
	KeyDataSource      = "test.data.source"
	KeyDeviceCaps      = "device.capabilities"
	KeyConcurrency     = "concurrency"
	KeyLogLevel        = "log.level"
	KeyOAuth2TokenURL  = "api.oauth2.token.url"
	KeyOAuth2ClientID  = "api.oauth2.client.id"
	KeyOAuth2Secret    = "api.oauth2.client.secret"
	KeyOAuth2Scopes    = "api.oauth2.scopes"
	DefaultEnvironment = "qa"
)

// DefaultProperties returns the values used when nothing else sets a key.
func DefaultProperties() Properties {
	return Properties{
		KeyEnvironment:     DefaultEnvironment,
		KeyBrowser:         string(BrowserChrome),
		KeyHeadless:        "false",
		KeyMode:            string(ModeLocal),
		KeyTestRetryCount:  "0",
		KeyTestTimeout:     "0",
		KeyExplicitWait:    "10",
		KeyPollInterval:    "250",
		KeyAPIMaxAttempts:  "4",
		KeyAPIRetryDelay:   "1000",
		KeyScreenshotDir:   "target/screenshots",
		KeyConcurrency:     "4",
		KeyLogLevel:        "info",

		KeyDriverPath + ".chrome":  "chromedriver",
		KeyDriverPath + ".firefox": "geckodriver",
		KeyDriverPath + ".edge":    "msedgedriver",
	}
}
