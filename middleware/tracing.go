package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/job"
)

// tracerName is the instrumentation scope name.
const tracerName = "github.com/xraph/freekiq"

// Tracing returns middleware that wraps job execution in a span from the
// global TracerProvider.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using tracer.
//
// A free retry ends the span with status Unset and the attribute
// freekiq.free_retry=true; any other failure records the error and sets
// status Error.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "freekiq.job.execute",
			trace.WithAttributes(
				attribute.String("freekiq.job.id", j.ID.String()),
				attribute.String("freekiq.job.name", j.Name),
				attribute.String("freekiq.queue", j.Queue),
				attribute.Int("freekiq.retry_count", j.RetryCount),
				attribute.Int("freekiq.free_retry_count", j.FreeRetryCount),
				attribute.String("freekiq.scope.app_id", j.ScopeAppID),
				attribute.String("freekiq.scope.org_id", j.ScopeOrgID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
		case freekiq.IsFreeRetry(err):
			span.SetAttributes(attribute.Bool("freekiq.free_retry", true))
		default:
			span.RecordError(err)
			span.SetAttributes(attribute.String("freekiq.error_class", freekiq.TypeName(err)))
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}
