// Package logging provides a redacting slog.Handler wrapper. Credentials
// must never reach persisted logs, so attribute values under sensitive keys
// are masked before the wrapped handler sees them.
package logging

import (
	"context"
	"log/slog"
	"strings"
)

// Redacted replaces sensitive attribute values.
const Redacted = "***REDACTED***"

// sensitiveKeys lists attribute keys whose values are always masked,
// compared case-insensitively.
var sensitiveKeys = map[string]bool{
	"authorization": true,
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"password":      true,
	"client_secret": true,
}

// RedactHandler masks sensitive attribute values before delegating to the
// wrapped handler.
type RedactHandler struct {
	inner slog.Handler
}

// NewRedactHandler wraps a handler with credential redaction.
func NewRedactHandler(inner slog.Handler) *RedactHandler {
	return &RedactHandler{inner: inner}
}

// Enabled implements slog.Handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler, masking sensitive attributes on the record.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))

		return true
	})

	return h.inner.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redactAttr(a)
	}

	return &RedactHandler{inner: h.inner.WithAttrs(masked)}
}

// WithGroup implements slog.Handler.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{inner: h.inner.WithGroup(name)}
}

// redactAttr masks an attribute when its key is sensitive, recursing into
// groups.
func redactAttr(a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}

	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()

		masked := make([]any, 0, len(members))
		for _, m := range members {
			masked = append(masked, redactAttr(m))
		}

		return slog.Group(a.Key, masked...)
	}

	return a
}
