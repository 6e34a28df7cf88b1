package semantic

import (
	"context"
	"log/slog"
	"time"

	"unpack/internal/shared/observability"
	"unpack/internal/shared/util"
)

// Middleware decorates an Oracle with a cross-cutting concern.
type Middleware func(Oracle) Oracle

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Oracle, mws ...Middleware) Oracle {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// oracleFunc lets each middleware override Generate while delegating Name.
type oracleFunc struct {
	name string
	fn   func(ctx context.Context, prompt string) (string, error)
}

func (o oracleFunc) Name() string { return o.name }
func (o oracleFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return o.fn(ctx, prompt)
}

// RateLimited waits for a token before every call.
func RateLimited(l *util.Limiter) Middleware {
	return func(next Oracle) Oracle {
		if l == nil || l.Unlimited() {
			return next
		}
		return oracleFunc{name: next.Name(), fn: func(ctx context.Context, prompt string) (string, error) {
			if err := l.Wait(ctx, 1); err != nil {
				return "", err
			}
			return next.Generate(ctx, prompt)
		}}
	}
}

// WithTimeout bounds each call. d <= 0 leaves calls unbounded.
func WithTimeout(d time.Duration) Middleware {
	return func(next Oracle) Oracle {
		if d <= 0 {
			return next
		}
		return oracleFunc{name: next.Name(), fn: func(ctx context.Context, prompt string) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Generate(ctx, prompt)
		}}
	}
}

// Logged records request size and failures.
func Logged() Middleware {
	return func(next Oracle) Oracle {
		return oracleFunc{name: next.Name(), fn: func(ctx context.Context, prompt string) (string, error) {
			slog.Debug("oracle request", "oracle", next.Name(), "bytes", len(prompt))
			raw, err := next.Generate(ctx, prompt)
			if err != nil {
				slog.Warn("oracle request failed", "oracle", next.Name(), "error", err)
			}
			return raw, err
		}}
	}
}

// Instrumented counts calls by result and observes latency.
func Instrumented() Middleware {
	return func(next Oracle) Oracle {
		return oracleFunc{name: next.Name(), fn: func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			raw, err := next.Generate(ctx, prompt)
			observability.OracleLatency.Observe(time.Since(start).Seconds())
			result := "ok"
			if err != nil {
				result = "error"
			}
			observability.OracleRequestsTotal.WithLabelValues(result).Inc()
			return raw, err
		}}
	}
}
