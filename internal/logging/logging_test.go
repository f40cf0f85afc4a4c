package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"": slog.LevelInfo, "DEBUG": slog.LevelDebug, "warning": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetupConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, done := Setup(Options{Level: slog.LevelInfo, Output: &buf})
	defer done()
	logger.Debug("hidden")
	logger.Info("loaded", "rows", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=loaded rows=3")
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	m := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	assert.True(t, m.Enabled(context.Background(), slog.LevelDebug))
	logger := slog.New(m).With("session", "abc")
	logger.Debug("detail")
	logger.Warn("careful")
	assert.Contains(t, a.String(), "detail")
	assert.Contains(t, a.String(), "session=abc")
	assert.NotContains(t, b.String(), "detail")
	assert.Contains(t, b.String(), "careful")
}
