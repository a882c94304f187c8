// Package logging provides a slog wrapper that injects trace/span
// correlation IDs into every record, grounded on the teacher's
// telemetry/logging package but pointed at the real OTel SDK span context
// instead of a hand-rolled tracer.
package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/edgehunter/kernel/internal/telemetry/tracing"
)

// Logger is a minimal interface wrapper allowing correlation injection.
type Logger interface {
	DebugCtx(ctx context.Context, msg string, attrs ...any)
	InfoCtx(ctx context.Context, msg string, attrs ...any)
	WarnCtx(ctx context.Context, msg string, attrs ...any)
	ErrorCtx(ctx context.Context, msg string, attrs ...any)
}

type correlatedLogger struct{ base *slog.Logger }

// New returns a correlated Logger wrapper around base. A nil base uses a
// JSON handler over stderr, matching the teacher's default.
func New(base *slog.Logger) Logger {
	if base == nil {
		base = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return &correlatedLogger{base: base}
}

func (l *correlatedLogger) with(ctx context.Context, attrs []any) []any {
	traceID, spanID := tracing.ExtractIDs(ctx)
	if traceID != "" || spanID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID), slog.String("span_id", spanID))
	}
	return attrs
}

func (l *correlatedLogger) DebugCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.DebugContext(ctx, msg, l.with(ctx, attrs)...)
}

func (l *correlatedLogger) InfoCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.InfoContext(ctx, msg, l.with(ctx, attrs)...)
}

func (l *correlatedLogger) WarnCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.WarnContext(ctx, msg, l.with(ctx, attrs)...)
}

func (l *correlatedLogger) ErrorCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.ErrorContext(ctx, msg, l.with(ctx, attrs)...)
}
