package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uv1406/harness/packages/artifact"
	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/metrics"
	"github.com/uv1406/harness/packages/session"
	"github.com/uv1406/harness/packages/ui"
)

// DefaultCaptureTimeout bounds a single screenshot.
const DefaultCaptureTimeout = 30 * time.Second

// Event describes one test attempt. Outcome, Err and Duration are set
// before AfterTest runs.
type Event struct {
	Suite     string
	Test      string
	Tags      []string
	Attempt   int
	Worker    *Worker
	Outcome   Outcome
	Err       error
	Duration  time.Duration
	Artifacts []*artifact.Artifact
}

// Hook observes test attempts. AfterTest runs while the worker's session is
// still bound; the runner releases it once every hook has returned. Panics
// in hooks are recovered and logged.
type Hook interface {
	BeforeTest(ctx context.Context, ev *Event)
	AfterTest(ctx context.Context, ev *Event)
}

// SuiteListener is implemented by hooks that also want suite boundaries.
type SuiteListener interface {
	SuiteStarted(suite string, total int)
	SuiteFinished(result *RunResult)
}

// AfterFunc adapts a function to a Hook that only runs after each attempt.
type AfterFunc func(ctx context.Context, ev *Event)

func (f AfterFunc) BeforeTest(context.Context, *Event) {}

func (f AfterFunc) AfterTest(ctx context.Context, ev *Event) { f(ctx, ev) }

// DiagnosticsHook captures a screenshot when an attempt fails and its
// session can take one. Capture is best effort; failures are logged.
type DiagnosticsHook struct {
	sink    artifact.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time
}

func NewDiagnosticsHook(sink artifact.Sink, logger *slog.Logger, m *metrics.Metrics) *DiagnosticsHook {
	return &DiagnosticsHook{
		sink:    sink,
		logger:  logging.OrDefault(logger),
		metrics: m,
		timeout: DefaultCaptureTimeout,
		now:     time.Now,
	}
}

func (h *DiagnosticsHook) BeforeTest(context.Context, *Event) {}

func (h *DiagnosticsHook) AfterTest(ctx context.Context, ev *Event) {
	if ev.Outcome != Fail || ev.Worker == nil {
		return
	}
	log := h.logger.With("worker", ev.Worker.ID, "test", ev.Test)

	s, ok := ev.Worker.Current()
	if !ok {
		log.Debug("no active session, skipping capture")
		return
	}
	shooter, ok := session.HandleAs[ui.Screenshotter](s)
	if !ok {
		log.Debug("session cannot capture screenshots", "profile", s.Profile)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	payload, err := screenshot(ctx, shooter)
	if err != nil {
		log.Warn("screenshot capture failed", "error", err)
		return
	}

	a := &artifact.Artifact{
		TestName:    ev.Test,
		Worker:      string(ev.Worker.ID),
		CapturedAt:  h.now(),
		ContentType: "image/png",
		Payload:     payload,
	}
	if h.sink != nil {
		if err := h.sink.Store(ctx, a); err != nil {
			log.Warn("storing screenshot failed", "error", err)
		}
	}
	ev.Artifacts = append(ev.Artifacts, a)
	h.metrics.ArtifactCaptured()
	log.Info("captured failure screenshot", "location", a.Location, "bytes", len(payload))
}

func screenshot(ctx context.Context, s ui.Screenshotter) (payload []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("screenshot panicked: %v", rec)
		}
	}()
	return s.Screenshot(ctx)
}

// LoggingHook reports suite and test progress through a logger.
type LoggingHook struct {
	logger *slog.Logger
}

func NewLoggingHook(logger *slog.Logger) *LoggingHook {
	return &LoggingHook{logger: logging.OrDefault(logger)}
}

func (h *LoggingHook) SuiteStarted(suite string, total int) {
	h.logger.Info("suite started", "suite", suite, "tests", total)
}

func (h *LoggingHook) SuiteFinished(result *RunResult) {
	h.logger.Info("suite finished",
		"suite", result.Suite,
		"passed", result.Passed,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", result.Duration)
}

func (h *LoggingHook) BeforeTest(_ context.Context, ev *Event) {
	h.logger.Info("test started", "test", ev.Test, "worker", ev.Worker.ID, "attempt", ev.Attempt)
}

func (h *LoggingHook) AfterTest(_ context.Context, ev *Event) {
	attrs := []any{"test", ev.Test, "worker", ev.Worker.ID, "attempt", ev.Attempt, "duration", ev.Duration}
	switch ev.Outcome {
	case Pass:
		h.logger.Info("test passed", attrs...)
	case Skip:
		h.logger.Info("test skipped", append(attrs, "reason", ev.Err)...)
	default:
		h.logger.Error("test failed", append(attrs, "error", ev.Err)...)
	}
}
