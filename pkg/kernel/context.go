package kernel

import "context"

type ContextKey string

const (
	// RequestIDKey carries the inbound request id for log correlation.
	RequestIDKey ContextKey = "request_id"

	// ActorKey carries the id of the admin that triggered an operation.
	ActorKey ContextKey = "actor_id"
)

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFrom returns the request id stored in ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithActor returns a copy of ctx carrying the acting admin.
func WithActor(ctx context.Context, id UserID) context.Context {
	return context.WithValue(ctx, ActorKey, id)
}

// ActorFrom returns the acting admin stored in ctx, if any.
func ActorFrom(ctx context.Context) (UserID, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(ActorKey).(UserID)
	return id, ok && !id.IsEmpty()
}
