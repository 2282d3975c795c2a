package webdriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"
)

const (
	// DefaultStartupTimeout bounds how long a local driver may take to report ready.
	DefaultStartupTimeout = 20 * time.Second
	statusPollInterval    = 100 * time.Millisecond
)

// Service is a locally launched driver binary listening on a loopback port.
type Service struct {
	cmd      *exec.Cmd
	url      string
	waitDone chan struct{}
}

// URL is the service's base address.
func (s *Service) URL() string { return s.url }

// StartService launches path on a free port and waits for its /status
// endpoint to report ready. The process is killed if it never does.
func StartService(ctx context.Context, path string, timeout time.Duration, logger *slog.Logger) (*Service, error) {
	if path == "" {
		return nil, errors.New("no driver binary configured")
	}
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("allocate driver port: %w", err)
	}

	// Not bound to ctx: the service outlives the acquiring call.
	cmd := exec.Command(path, "--port="+strconv.Itoa(port))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	svc := &Service{
		cmd:      cmd,
		url:      "http://127.0.0.1:" + strconv.Itoa(port),
		waitDone: make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(svc.waitDone)
	}()

	if err := svc.waitReady(ctx, timeout); err != nil {
		_ = svc.Stop()
		return nil, err
	}
	logger.Debug("driver service ready", "binary", path, "url", svc.url, "pid", cmd.Process.Pid)
	return svc, nil
}

// waitReady polls /status until ready, the process exits or timeout passes.
func (s *Service) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := NewClient(s.url, 2*time.Second)
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		ready, err := client.Ready(ctx)
		if err == nil && ready {
			return nil
		}
		lastErr = err

		select {
		case <-s.waitDone:
			return fmt.Errorf("driver at %s exited before becoming ready", s.url)
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("driver at %s not ready after %v: %w", s.url, timeout, lastErr)
			}
			return fmt.Errorf("driver at %s not ready after %v", s.url, timeout)
		case <-ticker.C:
		}
	}
}

// Stop kills the driver process and waits for it to exit.
func (s *Service) Stop() error {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	select {
	case <-s.waitDone:
		return nil
	default:
	}
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop driver: %w", err)
	}
	<-s.waitDone
	return nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
