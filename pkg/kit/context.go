package kit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "kit_request_id"
	transportKey contextKey = "kit_transport"
)

const (
	TransportHTTP = "http"
	TransportMCP  = "mcp"
)

// WithRequestID stores id in ctx. An empty id is replaced by a new UUID.
func WithRequestID(ctx context.Context, id string) (context.Context, string) {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey, id), id
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, transportKey, t)
}

// Transport defaults to http.
func Transport(ctx context.Context) string {
	if v, ok := ctx.Value(transportKey).(string); ok {
		return v
	}
	return TransportHTTP
}

// Logger annotates base with the request id and transport carried by ctx.
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	l := base.With("transport", Transport(ctx))
	if id := RequestID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	return l
}
