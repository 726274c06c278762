package middleware

import (
	"context"

	"github.com/xraph/freekiq/job"
	"github.com/xraph/freekiq/scope"
)

// Scope returns middleware that restores the forge scope captured at
// enqueue time, so handlers see the caller's app and org.
func Scope() Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		return next(scope.FromJob(ctx, j))
	}
}
