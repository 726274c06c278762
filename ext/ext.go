package ext

import (
	"context"
	"time"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/job"
)

// Extension is the base interface all extensions implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobEnqueued is called after a job is enqueued.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker begins executing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobRetrying is called when a failure consumed a charged retry and the job
// was rescheduled. attempt is the number of charged retries so far.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// JobFreeRetry is called when a failure was turned into a free retry and the
// job was rescheduled. attempt is the number of free retries so far.
type JobFreeRetry interface {
	OnJobFreeRetry(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// JobFailed is called when a job fails with no retries remaining.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobDLQ is called when a job is moved to the dead letter queue.
type JobDLQ interface {
	OnJobDLQ(ctx context.Context, j *job.Job, err error) error
}

// ──────────────────────────────────────────────────
// Free-retry decision hooks
// ──────────────────────────────────────────────────

// FreeRetryExhausted is called when an eligible failure has no free
// retries left and the original error goes on to the normal retry path.
type FreeRetryExhausted interface {
	OnFreeRetryExhausted(ctx context.Context, meta freekiq.JobMeta) error
}

// FreeRetryCallbackFailed is called when the free-retry callback failed.
type FreeRetryCallbackFailed interface {
	OnFreeRetryCallbackFailed(ctx context.Context, meta freekiq.JobMeta, err error) error
}

// ──────────────────────────────────────────────────
// Other hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
