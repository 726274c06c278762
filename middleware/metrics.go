package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/job"
)

// meterName is the instrumentation scope name.
const meterName = "github.com/xraph/freekiq"

// Status values recorded on the status attribute.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusFreeRetry = "free_retry"
)

// Metrics returns middleware that records execution metrics with the
// global MeterProvider.
//
// Instruments:
//   - freekiq.job.duration (Float64Histogram, seconds)
//   - freekiq.job.executions (Int64Counter)
//
// Both carry job_name, queue and status (ok, error or free_retry).
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// The API returns noop instruments alongside any error.
	duration, _ := meter.Float64Histogram(
		"freekiq.job.duration",
		metric.WithDescription("Duration of job execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"freekiq.job.executions",
		metric.WithDescription("Total number of job executions"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, j *job.Job, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		attrs := metric.WithAttributes(
			attribute.String("job_name", j.Name),
			attribute.String("queue", j.Queue),
			attribute.String("status", statusOf(err)),
		)
		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return err
	}
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case freekiq.IsFreeRetry(err):
		return StatusFreeRetry
	default:
		return StatusError
	}
}
