package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newCaptureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := NewRedactHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return slog.New(handler), &buf
}

func TestRedactHandler_MasksSensitiveKeys(t *testing.T) {
	logger, buf := newCaptureLogger()

	logger.Info("token obtained",
		slog.String("access_token", "secret-value"),
		slog.String("base_url", "https://api.mypurecloud.com"),
	)

	out := buf.String()
	assert.NotContains(t, out, "secret-value")
	assert.Contains(t, out, Redacted)
	assert.Contains(t, out, "https://api.mypurecloud.com")
}

func TestRedactHandler_KeyCaseInsensitive(t *testing.T) {
	logger, buf := newCaptureLogger()

	logger.Info("request", slog.String("Authorization", "Bearer abc123"))

	assert.NotContains(t, buf.String(), "abc123")
}

func TestRedactHandler_RecursesIntoGroups(t *testing.T) {
	logger, buf := newCaptureLogger()

	logger.Info("login",
		slog.Group("credentials",
			slog.String("client_secret", "hunter2"),
			slog.String("client_id", "app-1"),
		),
	)

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, Redacted)
	assert.Contains(t, out, "app-1")
}

func TestRedactHandler_WithAttrs(t *testing.T) {
	logger, buf := newCaptureLogger()

	logger.With(slog.String("token", "persistent-secret")).Info("started")

	out := buf.String()
	assert.NotContains(t, out, "persistent-secret")
	assert.Contains(t, out, Redacted)
}

func TestRedactHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := NewRedactHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger := slog.New(handler)

	logger.Info("invisible")
	assert.Empty(t, buf.String())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}
