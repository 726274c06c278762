package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/job"
)

// Logging returns middleware that logs job start and outcome. Free retries
// are expected noise and log at info; other failures log at error.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		logger.InfoContext(ctx, "job started",
			slog.String("job_name", j.Name),
			slog.String("job_id", j.ID.String()),
			slog.String("queue", j.Queue),
			slog.Int("retry_count", j.RetryCount),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			logger.InfoContext(ctx, "job completed",
				slog.String("job_name", j.Name),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		case freekiq.IsFreeRetry(err):
			logger.InfoContext(ctx, "job failed, free retry",
				slog.String("job_name", j.Name),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.Int("free_retry_count", j.FreeRetryCount),
				slog.String("error", err.Error()),
			)
		default:
			logger.ErrorContext(ctx, "job failed",
				slog.String("job_name", j.Name),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error_class", freekiq.TypeName(err)),
				slog.String("error", err.Error()),
			)
		}
		return err
	}
}
