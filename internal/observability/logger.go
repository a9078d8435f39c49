package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/ridepulse/ridepulse/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// NewLogger builds the root service logger. Every line carries the service
// name and active profile so log streams from several environments can be
// told apart.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	return slog.New(newHandler(cfg, writer)).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

func newHandler(cfg config.Config, writer io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	if cfg.Observability.LogJSON {
		return slog.NewJSONHandler(writer, opts)
	}
	return slog.NewTextHandler(writer, opts)
}

// Component scopes a logger to one pipeline stage or background service.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return logger.With(slog.String("component", name))
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
