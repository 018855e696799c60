package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/itinera/pkg/domain"
)

// LogHooks logs request and connection events at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRequestEnd: func(ctx context.Context, e *domain.RequestEvent) {
			logger.DebugContext(ctx, "request_end",
				"request_kind", e.Kind,
				"outcome", e.Outcome,
				"timed_out", e.TimedOut,
				"duration", e.Duration,
				"session_id", e.SessionID,
			)
		},
		OnConnection: func(ctx context.Context, e *domain.ConnectionEvent) {
			logger.DebugContext(ctx, "connection", "state", e.State, "attempt", e.Attempt)
		},
	}
}

// Combine calls every non-nil hook of each set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, s := range sets {
		out.OnRequestStart = chain(out.OnRequestStart, s.OnRequestStart)
		out.OnRequestEnd = chain(out.OnRequestEnd, s.OnRequestEnd)
		out.OnConnection = chain(out.OnConnection, s.OnConnection)
		out.OnChunk = chain(out.OnChunk, s.OnChunk)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
