package platform

import (
	"context"
	"log/slog"
	"os"
)

// NewLogger creates a structured logger that writes to stderr and into an
// in-memory ring buffer. The buffer backs the interactive "view logs" screen
// so recent entries stay available without a log file.
func NewLogger(level string) (*slog.Logger, *LogBuffer) {
	lvl := ParseLevel(level)
	buf := NewLogBuffer(0)
	stderr := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(&teeHandler{
		level:    lvl,
		handlers: []slog.Handler{stderr, buf.Handler(lvl)},
	}), buf
}

// ParseLevel maps a config log-level string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// teeHandler fans log records out to multiple slog.Handler implementations.
type teeHandler struct {
	level    slog.Level
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= t.level }

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r)
		}
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{level: t.level, handlers: hs}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &teeHandler{level: t.level, handlers: hs}
}
