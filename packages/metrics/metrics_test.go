package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionAcquired()
		m.SessionAcquireFailed()
		m.SessionReleased(errors.New("boom"))
		m.ActionCompleted("click", "native", "ok", time.Millisecond)
		m.HTTPAttempt("GET", 200, time.Millisecond)
		m.TestCompleted("PASS", time.Second)
		m.ArtifactCaptured()
		m.Latency().Record("x", time.Second)
	})
	assert.Nil(t, m.Latency().Summaries())
}

func TestMetrics_SessionGauge(t *testing.T) {
	m := New()
	m.SessionAcquired()
	m.SessionAcquired()
	m.SessionReleased(nil)
	m.SessionReleased(errors.New("quit failed"))

	assert.Equal(t, float64(0), testutil.ToFloat64(m.active))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.sessions.WithLabelValues("released")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sessions.WithLabelValues("teardown_failed")))
}

func TestMetrics_HTTPAttemptOutcome(t *testing.T) {
	m := New()
	m.HTTPAttempt("POST", 503, time.Millisecond)
	m.HTTPAttempt("POST", 500, time.Millisecond)
	m.HTTPAttempt("POST", 201, time.Millisecond)
	m.HTTPAttempt("POST", 0, 0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.httpAttempts.WithLabelValues("POST", "5xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpAttempts.WithLabelValues("POST", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpAttempts.WithLabelValues("POST", "transport_error")))

	summaries := m.Latency().Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, "http POST", summaries[0].Name)
	assert.Equal(t, int64(3), summaries[0].Count)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ActionCompleted("click", "fallback", "ok", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `harness_ui_actions_total{op="click",path="fallback",result="ok"} 1`)
}

func TestLatency_Summaries(t *testing.T) {
	l := NewLatency()
	for i := 1; i <= 100; i++ {
		l.Record("b", time.Duration(i)*time.Millisecond)
	}
	l.Record("a", 0)

	summaries := l.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, "a", summaries[0].Name)
	assert.Equal(t, time.Microsecond, summaries[0].Max)

	b := summaries[1]
	assert.Equal(t, int64(100), b.Count)
	assert.InDelta(t, float64(50*time.Millisecond), float64(b.P50), float64(time.Millisecond))
	assert.InDelta(t, float64(100*time.Millisecond), float64(b.Max), float64(time.Millisecond))
}
