package harness

import (
	"context"
	"log/slog"

	"github.com/uv1406/harness/packages/auth/oauth2"
	"github.com/uv1406/harness/packages/core/config"
	"github.com/uv1406/harness/packages/core/runner"
)

// authHook seeds request workers with an OAuth2 bearer token before each
// attempt. A failed token fetch is logged and the test runs unauthenticated.
type authHook struct {
	provider *oauth2.Provider
	logger   *slog.Logger
}

func newAuthHook(cfg config.OAuth2, logger *slog.Logger) *authHook {
	return &authHook{
		provider: oauth2.NewProvider(oauth2.Config{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scopes,
		}),
		logger: logger,
	}
}

func (h *authHook) BeforeTest(ctx context.Context, ev *runner.Event) {
	if ev.Worker.Profile().Name != APIProfileName {
		return
	}
	token, err := h.provider.Token(ctx)
	if err != nil {
		h.logger.Warn("oauth2 token unavailable", "test", ev.Test, "error", err)
		return
	}
	auth, err := ev.Worker.Auth(ctx)
	if err != nil {
		h.logger.Warn("cannot bind token", "test", ev.Test, "error", err)
		return
	}
	auth.SetToken(token.AccessToken)
}

func (h *authHook) AfterTest(context.Context, *runner.Event) {}
