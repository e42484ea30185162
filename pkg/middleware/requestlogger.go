package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/brand-service/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context. The logger
// carries correlation_id, user_id, user_role, trace_id and span_id when they
// are known, so it must run after RequestLogging, Tracing and Identify.
// Handlers retrieve it with logger.FromContext.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
