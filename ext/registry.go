package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/job"
)

// entry pairs a hook with the extension name captured at registration.
type entry[H any] struct {
	name string
	hook H
}

// cache appends e to list when e implements H.
func cache[H any](list []entry[H], name string, e Extension) []entry[H] {
	if h, ok := e.(H); ok {
		return append(list, entry[H]{name: name, hook: h})
	}
	return list
}

// Registry holds registered extensions and fans lifecycle events out to
// them. Extensions are type-cached at registration so each emit iterates
// only over the extensions implementing that hook.
//
// Register is not safe to call concurrently with the emitters; register
// everything before the engine starts.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	jobEnqueued        []entry[JobEnqueued]
	jobStarted         []entry[JobStarted]
	jobCompleted       []entry[JobCompleted]
	jobRetrying        []entry[JobRetrying]
	jobFreeRetry       []entry[JobFreeRetry]
	jobFailed          []entry[JobFailed]
	jobDLQ             []entry[JobDLQ]
	freeRetryExhausted []entry[FreeRetryExhausted]
	callbackFailed     []entry[FreeRetryCallbackFailed]
	shutdown           []entry[Shutdown]
}

// NewRegistry creates an extension registry. A nil logger uses
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	r.jobEnqueued = cache(r.jobEnqueued, name, e)
	r.jobStarted = cache(r.jobStarted, name, e)
	r.jobCompleted = cache(r.jobCompleted, name, e)
	r.jobRetrying = cache(r.jobRetrying, name, e)
	r.jobFreeRetry = cache(r.jobFreeRetry, name, e)
	r.jobFailed = cache(r.jobFailed, name, e)
	r.jobDLQ = cache(r.jobDLQ, name, e)
	r.freeRetryExhausted = cache(r.freeRetryExhausted, name, e)
	r.callbackFailed = cache(r.callbackFailed, name, e)
	r.shutdown = cache(r.shutdown, name, e)
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Job event emitters
// ──────────────────────────────────────────────────

// EmitJobEnqueued notifies all JobEnqueued hooks.
func (r *Registry) EmitJobEnqueued(ctx context.Context, j *job.Job) {
	for _, e := range r.jobEnqueued {
		r.check(ctx, "OnJobEnqueued", e.name, e.hook.OnJobEnqueued(ctx, j))
	}
}

// EmitJobStarted notifies all JobStarted hooks.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobStarted {
		r.check(ctx, "OnJobStarted", e.name, e.hook.OnJobStarted(ctx, j))
	}
}

// EmitJobCompleted notifies all JobCompleted hooks.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		r.check(ctx, "OnJobCompleted", e.name, e.hook.OnJobCompleted(ctx, j, elapsed))
	}
}

// EmitJobRetrying notifies all JobRetrying hooks.
func (r *Registry) EmitJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) {
	for _, e := range r.jobRetrying {
		r.check(ctx, "OnJobRetrying", e.name, e.hook.OnJobRetrying(ctx, j, attempt, nextRunAt))
	}
}

// EmitJobFreeRetry notifies all JobFreeRetry hooks.
func (r *Registry) EmitJobFreeRetry(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) {
	for _, e := range r.jobFreeRetry {
		r.check(ctx, "OnJobFreeRetry", e.name, e.hook.OnJobFreeRetry(ctx, j, attempt, nextRunAt))
	}
}

// EmitJobFailed notifies all JobFailed hooks.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, jobErr error) {
	for _, e := range r.jobFailed {
		r.check(ctx, "OnJobFailed", e.name, e.hook.OnJobFailed(ctx, j, jobErr))
	}
}

// EmitJobDLQ notifies all JobDLQ hooks.
func (r *Registry) EmitJobDLQ(ctx context.Context, j *job.Job, jobErr error) {
	for _, e := range r.jobDLQ {
		r.check(ctx, "OnJobDLQ", e.name, e.hook.OnJobDLQ(ctx, j, jobErr))
	}
}

// ──────────────────────────────────────────────────
// Free-retry event emitters
// ──────────────────────────────────────────────────

// EmitFreeRetryExhausted notifies all FreeRetryExhausted hooks.
func (r *Registry) EmitFreeRetryExhausted(ctx context.Context, meta freekiq.JobMeta) {
	for _, e := range r.freeRetryExhausted {
		r.check(ctx, "OnFreeRetryExhausted", e.name, e.hook.OnFreeRetryExhausted(ctx, meta))
	}
}

// EmitFreeRetryCallbackFailed notifies all FreeRetryCallbackFailed hooks.
func (r *Registry) EmitFreeRetryCallbackFailed(ctx context.Context, meta freekiq.JobMeta, cbErr error) {
	for _, e := range r.callbackFailed {
		r.check(ctx, "OnFreeRetryCallbackFailed", e.name, e.hook.OnFreeRetryCallbackFailed(ctx, meta, cbErr))
	}
}

// EmitShutdown notifies all Shutdown hooks.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		r.check(ctx, "OnShutdown", e.name, e.hook.OnShutdown(ctx))
	}
}

// check logs a hook error. Hook errors never reach the pipeline.
func (r *Registry) check(ctx context.Context, hook, extName string, err error) {
	if err == nil {
		return
	}
	r.logger.WarnContext(ctx, "extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
