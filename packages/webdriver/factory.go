package webdriver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/session"
)

// DefaultCommandTimeout bounds a single protocol command.
const DefaultCommandTimeout = 60 * time.Second

// Factory creates WebDriver sessions for browser and device profiles.
type Factory struct {
	startupTimeout time.Duration
	commandTimeout time.Duration
	logger         *slog.Logger
	startService   func(ctx context.Context, path string, timeout time.Duration, logger *slog.Logger) (*Service, error)
}

type FactoryOption func(*Factory)

func WithStartupTimeout(d time.Duration) FactoryOption {
	return func(f *Factory) {
		f.startupTimeout = d
	}
}

func WithCommandTimeout(d time.Duration) FactoryOption {
	return func(f *Factory) {
		f.commandTimeout = d
	}
}

func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = l
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		startupTimeout: DefaultStartupTimeout,
		commandTimeout: DefaultCommandTimeout,
		startService:   StartService,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.OrDefault(f.logger)
	return f
}

// Create starts a session. Remote profiles and devices connect to
// RemoteURL; local browsers launch their driver binary first.
func (f *Factory) Create(ctx context.Context, p session.Profile) (session.Resource, error) {
	caps, err := Capabilities(p)
	if err != nil {
		return nil, err
	}

	var svc *Service
	endpoint := strings.TrimSpace(p.RemoteURL)
	if !p.Remote && !IsDevice(p) {
		svc, err = f.startService(ctx, p.DriverPath, f.startupTimeout, f.logger)
		if err != nil {
			return nil, fmt.Errorf("local %s driver: %w", p.Name, err)
		}
		endpoint = svc.URL()
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no remote endpoint for %s", p.Name)
	}

	client := NewClient(endpoint, f.commandTimeout)
	id, err := client.NewSession(ctx, caps)
	if err != nil {
		if stopErr := svc.Stop(); stopErr != nil {
			f.logger.Warn("stopping driver after failed session start", "error", stopErr)
		}
		return nil, fmt.Errorf("new %s session at %s: %w", p.Name, endpoint, err)
	}

	f.logger.Info("browser session started", "browser", p.Name, "headless", p.Headless, "remote", svc == nil, "handle", id)
	return NewSession(client, id, p.Name, svc), nil
}
