package middleware

import (
	"context"

	"github.com/xraph/freekiq/job"
)

// Timeout returns middleware that enforces the job's Timeout. The handler
// sees a context cancelled with context.DeadlineExceeded once it elapses.
func Timeout() Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if j.Timeout <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, j.Timeout)
		defer cancel()
		return next(ctx)
	}
}
