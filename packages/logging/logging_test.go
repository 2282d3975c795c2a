package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_WritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: slog.LevelDebug, NoColor: true, Writer: &buf})

	log.Debug("session acquired", "worker", "w-1")

	out := buf.String()
	assert.Contains(t, out, "session acquired")
	assert.Contains(t, out, "worker=w-1")
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: slog.LevelWarn, NoColor: true, Writer: &buf})

	log.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, slog.Default(), OrDefault(nil))

	l := Discard()
	assert.Same(t, l, OrDefault(l))
}
