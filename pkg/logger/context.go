package logger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey int

const (
	requestKey contextKey = iota
	loggerKey
)

// request holds the per-request values attached to log records and events.
// It is copied on write, so contexts never share a mutable value.
type request struct {
	correlationID string
	userID        string
	userRole      string
}

func requestFrom(ctx context.Context) request {
	r, _ := ctx.Value(requestKey).(request)
	return r
}

func withRequest(ctx context.Context, update func(*request)) context.Context {
	r := requestFrom(ctx)
	update(&r)
	return context.WithValue(ctx, requestKey, r)
}

// WithCorrelationID returns a context carrying the request correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return withRequest(ctx, func(r *request) { r.correlationID = id })
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return requestFrom(ctx).correlationID
}

// WithUserID returns a context carrying the caller's user ID.
func WithUserID(ctx context.Context, id string) context.Context {
	return withRequest(ctx, func(r *request) { r.userID = id })
}

// UserIDFromContext returns the caller's user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	return requestFrom(ctx).userID
}

// WithUserRole returns a context carrying the caller's role.
func WithUserRole(ctx context.Context, role string) context.Context {
	return withRequest(ctx, func(r *request) { r.userRole = role })
}

// UserRoleFromContext returns the caller's role, or "".
func UserRoleFromContext(ctx context.Context) string {
	return requestFrom(ctx).userRole
}

// NewContext returns a context carrying l.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored by NewContext, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext returns l annotated with the request values and the active
// span of ctx. Empty values are left out.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	r := requestFrom(ctx)

	var attrs []any
	for _, f := range [...]struct{ key, value string }{
		{"correlation_id", r.correlationID},
		{"user_id", r.userID},
		{"user_role", r.userRole},
	} {
		if f.value != "" {
			attrs = append(attrs, slog.String(f.key, f.value))
		}
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}
