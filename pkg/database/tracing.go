package database

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/brand-service/pkg/database"

// QueryTracer wraps repository statements in client spans and logs the ones
// slower than a threshold. A nil *QueryTracer only traces.
type QueryTracer struct {
	slowThreshold time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewQueryTracer creates a QueryTracer. A zero threshold or nil logger
// disables slow query logging.
func NewQueryTracer(slowThreshold time.Duration, logger *slog.Logger) *QueryTracer {
	return &QueryTracer{slowThreshold: slowThreshold, logger: logger, now: time.Now}
}

// Trace starts a span for a database operation. The returned function must
// be called with the operation's error when it completes:
//
//	ctx, end := qt.Trace(ctx, "FindBrandByID", query)
//	defer func() { end(err) }()
func (qt *QueryTracer) Trace(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	now := time.Now
	if qt != nil && qt.now != nil {
		now = qt.now
	}
	start := now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if qt == nil || qt.slowThreshold <= 0 || qt.logger == nil {
			return
		}
		elapsed := now().Sub(start)
		if elapsed < qt.slowThreshold {
			return
		}
		attrs := []slog.Attr{
			slog.String("operation", operation),
			slog.String("statement", statement),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		qt.logger.LogAttrs(ctx, slog.LevelWarn, "slow query detected", attrs...)
	}
}
