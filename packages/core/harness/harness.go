// Package harness wires a resolved configuration into a ready runner: the
// session registry and its factories, the action executor, the request
// engine, metrics and lifecycle hooks.
package harness

import (
	"context"
	"log/slog"

	"github.com/uv1406/harness/packages/action"
	"github.com/uv1406/harness/packages/api"
	"github.com/uv1406/harness/packages/artifact"
	"github.com/uv1406/harness/packages/core/config"
	"github.com/uv1406/harness/packages/core/runner"
	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/metrics"
	"github.com/uv1406/harness/packages/retry"
	"github.com/uv1406/harness/packages/session"
	"github.com/uv1406/harness/packages/webdriver"
)

// APIProfileName selects request-only workers.
const APIProfileName = string(config.BrowserAPI)

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// BrowserFactory creates browser and device sessions. Nil uses the
	// WebDriver factory.
	BrowserFactory session.Factory
	// Sink stores failure screenshots. Nil writes to the configured
	// screenshot directory.
	Sink       artifact.Sink
	Hooks      []runner.Hook
	NameFilter string
	TagsFilter []string
	Bail       bool
}

type Harness struct {
	Config   *config.Config
	Registry *session.Registry
	Executor *action.Executor
	Engine   *api.Engine
	Runner   *runner.Runner
	Metrics  *metrics.Metrics
}

// Build assembles a Harness. It fails only when a retry policy cannot be
// built from cfg.
func Build(cfg *config.Config, opts Options) (*Harness, error) {
	logger := logging.OrDefault(opts.Logger)
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	apiPolicy, err := retry.New(cfg.APIMaxAttempts, retry.WithFixedDelay(cfg.APIRetryDelay))
	if err != nil {
		return nil, err
	}
	testPolicy, err := runner.TestRetryPolicy(cfg.TestRetryCount, runner.DefaultRetryDelay)
	if err != nil {
		return nil, err
	}

	engine := api.NewEngine(cfg.APIBaseURL, cfg.APIKey,
		api.WithPolicy(apiPolicy),
		api.WithEndpointResolver(cfg.Endpoint),
		api.WithLogger(logger),
		api.WithMetrics(m))

	browsers := opts.BrowserFactory
	if browsers == nil {
		browsers = webdriver.NewFactory(webdriver.WithLogger(logger))
	}
	mux := session.NewMux().Handle(APIProfileName, engine.Factory())
	for _, b := range config.SupportedBrowsers {
		if b != config.BrowserAPI {
			mux.Handle(string(b), browsers)
		}
	}

	registry := session.NewRegistry(mux, session.WithLogger(logger), session.WithMetrics(m))
	executor := action.NewExecutor(
		action.WithDefaultTimeout(cfg.ExplicitWait),
		action.WithPollInterval(cfg.PollInterval),
		action.WithLogger(logger),
		action.WithMetrics(m))

	sink := opts.Sink
	if sink == nil {
		sink = artifact.NewFileStore(cfg.ScreenshotDir)
	}
	hooks := append([]runner.Hook{
		runner.NewLoggingHook(logger),
		runner.NewDiagnosticsHook(sink, logger, m),
	}, opts.Hooks...)
	if cfg.OAuth2.Enabled() {
		hooks = append(hooks, newAuthHook(cfg.OAuth2, logger))
	}

	r := runner.NewRunner(&runner.Config{
		Profile:     Profile(cfg),
		Concurrency: cfg.Concurrency,
		Retry:       testPolicy,
		Timeout:     cfg.TestTimeout,
		Bail:        opts.Bail,
		NameFilter:  opts.NameFilter,
		TagsFilter:  opts.TagsFilter,
	}, registry,
		runner.WithActions(executor),
		runner.WithAPI(engine),
		runner.WithHooks(hooks...),
		runner.WithLogger(logger),
		runner.WithMetrics(m))

	logger.Debug("harness ready",
		"environment", cfg.Environment,
		"browser", cfg.Browser,
		"mode", cfg.Mode,
		"api_policy", apiPolicy.String(),
		"test_policy", testPolicy.String(),
		"action_worst_case", 2*cfg.ExplicitWait)

	return &Harness{
		Config:   cfg,
		Registry: registry,
		Executor: executor,
		Engine:   engine,
		Runner:   r,
		Metrics:  m,
	}, nil
}

// Close releases every session still bound.
func (h *Harness) Close(ctx context.Context) int {
	return h.Registry.Close(ctx)
}

// Profile derives the default resource profile from cfg.
func Profile(cfg *config.Config) session.Profile {
	if cfg.Browser == config.BrowserAPI {
		return session.Profile{Name: APIProfileName}
	}
	remote := cfg.Mode == config.ModeRemote || cfg.Browser.IsDevice()
	p := session.Profile{
		Name:       string(cfg.Browser),
		Headless:   cfg.Headless,
		Remote:     remote,
		DriverPath: cfg.DriverPath,
	}
	if remote {
		p.RemoteURL = cfg.GridURL
	}
	if cfg.Browser.IsDevice() {
		p.Capabilities = cfg.DeviceCapabilities
	}
	return p
}
