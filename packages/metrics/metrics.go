package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harness"

// Metrics holds the harness collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	sessions     *prometheus.CounterVec
	active       prometheus.Gauge
	actions      *prometheus.CounterVec
	httpAttempts *prometheus.CounterVec
	tests        *prometheus.CounterVec
	artifacts    prometheus.Counter
	latency      *Latency
}

// New registers the harness collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by kind",
		}, []string{"event"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently bound to a worker",
		}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ui_actions_total",
			Help:      "UI actions by operation, execution path and result",
		}, []string{"op", "path", "result"}),
		httpAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_attempts_total",
			Help:      "HTTP request attempts by method and outcome",
		}, []string{"method", "outcome"}),
		tests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tests_total",
			Help:      "Completed test attempts by outcome",
		}, []string{"outcome"}),
		artifacts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostic_artifacts_total",
			Help:      "Diagnostic artifacts captured on failure",
		}),
		latency: NewLatency(),
	}
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Latency returns the percentile recorder.
func (m *Metrics) Latency() *Latency {
	if m == nil {
		return nil
	}
	return m.latency
}

func (m *Metrics) SessionAcquired() {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues("acquired").Inc()
	m.active.Inc()
}

func (m *Metrics) SessionAcquireFailed() {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues("acquire_failed").Inc()
}

func (m *Metrics) SessionReleased(teardownErr error) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues("released").Inc()
	if teardownErr != nil {
		m.sessions.WithLabelValues("teardown_failed").Inc()
	}
	m.active.Dec()
}

// ActionCompleted records a UI action. path is "native" or "fallback";
// result is "ok" or the failure kind.
func (m *Metrics) ActionCompleted(op, path, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(op, path, result).Inc()
	m.latency.Record("ui "+op, d)
}

// HTTPAttempt records one request attempt. A zero status means the
// attempt failed in transport.
func (m *Metrics) HTTPAttempt(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "transport_error"
	if status > 0 {
		outcome = strconv.Itoa(status/100) + "xx"
	}
	m.httpAttempts.WithLabelValues(method, outcome).Inc()
	if status > 0 {
		m.latency.Record("http "+method, d)
	}
}

func (m *Metrics) TestCompleted(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.tests.WithLabelValues(outcome).Inc()
	m.latency.Record("test", d)
}

func (m *Metrics) ArtifactCaptured() {
	if m == nil {
		return
	}
	m.artifacts.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
