package kit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Endpoint is one action of the service. HTTP handlers and MCP tools
// decode their input and call the same Endpoint.
type Endpoint func(ctx context.Context, request any) (response any, err error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares, first outermost:
// Chain(a, b, c)(e) == a(b(c(e))).
func Chain(outer Middleware, others ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(others) - 1; i >= 0; i-- {
			next = others[i](next)
		}
		return outer(next)
	}
}

// ErrRateLimited is returned when the limiter has no token left.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimit rejects calls beyond the token bucket of l. A nil limiter
// lets everything through.
func RateLimit(l *rate.Limiter) Middleware {
	return func(next Endpoint) Endpoint {
		if l == nil {
			return next
		}
		return func(ctx context.Context, request any) (any, error) {
			if !l.Allow() {
				return nil, ErrRateLimited
			}
			return next(ctx, request)
		}
	}
}

// Logging records each call with its duration and outcome.
func Logging(logger *slog.Logger, name string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, request)
			l := Logger(ctx, logger).With("endpoint", name, "duration", time.Since(start))
			if err != nil {
				l.Warn("endpoint failed", "error", err)
			} else {
				l.Debug("endpoint served")
			}
			return resp, err
		}
	}
}
