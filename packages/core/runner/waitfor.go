package runner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	harnesshttp "github.com/uv1406/harness/packages/http"
	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/retry"
)

// WaitConfig describes a readiness probe run before a suite starts.
type WaitConfig struct {
	URL      string
	Status   int
	Timeout  time.Duration
	Interval time.Duration
}

// WaitForService polls cfg.URL until it returns cfg.Status or the timeout
// expires.
func WaitForService(ctx context.Context, cfg WaitConfig, logger *slog.Logger) error {
	if cfg.URL == "" {
		return nil
	}
	if cfg.Status == 0 {
		cfg.Status = http.StatusOK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	logger = logging.OrDefault(logger)
	logger.Debug("waiting for service", "url", cfg.URL, "status", cfg.Status, "timeout", cfg.Timeout, "interval", cfg.Interval)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client := harnesshttp.NewClient(harnesshttp.WithTimeout(5 * time.Second))

	var lastErr error
	var lastStatus int
	for {
		resp, err := client.Get(ctx, cfg.URL, nil)
		if err != nil {
			lastErr = err
		} else {
			lastStatus = resp.StatusCode
			if resp.StatusCode == cfg.Status {
				logger.Debug("service is ready", "url", cfg.URL, "status", resp.StatusCode)
				return nil
			}
		}

		if err := retry.Sleep(ctx, cfg.Interval); err != nil {
			break
		}
	}

	if lastErr != nil {
		return fmt.Errorf("service %s not ready after %v: %w", cfg.URL, cfg.Timeout, lastErr)
	}
	return fmt.Errorf("service %s not ready after %v: last status %d, expected %d", cfg.URL, cfg.Timeout, lastStatus, cfg.Status)
}
