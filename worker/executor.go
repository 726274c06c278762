package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/backoff"
	"github.com/xraph/freekiq/dlq"
	"github.com/xraph/freekiq/ext"
	"github.com/xraph/freekiq/job"
	"github.com/xraph/freekiq/middleware"
)

// Executor runs a single job through middleware and the registered handler,
// then persists the outcome, schedules retries, and emits lifecycle events.
type Executor struct {
	registry   *job.Registry
	extensions *ext.Registry
	store      job.Store
	dlqService *dlq.Service
	backoff    backoff.Strategy
	freeDelay  backoff.Strategy
	mw         middleware.Middleware
	logger     *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBackoff sets the delay strategy for charged retries.
func WithBackoff(s backoff.Strategy) ExecutorOption {
	return func(e *Executor) { e.backoff = s }
}

// WithFreeRetryBackoff sets the delay strategy for free retries. It is
// called with the job's FreeRetryCount.
func WithFreeRetryBackoff(s backoff.Strategy) ExecutorOption {
	return func(e *Executor) { e.freeDelay = s }
}

// WithMiddleware sets the middleware chain, outermost first.
func WithMiddleware(mws ...middleware.Middleware) ExecutorOption {
	return func(e *Executor) { e.mw = middleware.Chain(mws...) }
}

// NewExecutor creates an Executor. dlqService may be nil, in which case
// terminally failed jobs are only marked failed.
func NewExecutor(
	registry *job.Registry,
	extensions *ext.Registry,
	store job.Store,
	dlqService *dlq.Service,
	logger *slog.Logger,
	opts ...ExecutorOption,
) *Executor {
	e := &Executor{
		registry:   registry,
		extensions: extensions,
		store:      store,
		dlqService: dlqService,
		backoff:    backoff.DefaultStrategy(),
		freeDelay:  backoff.DefaultFreeStrategy(),
		mw:         middleware.Chain(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs j and records the outcome. It returns nil on success and
// the (possibly wrapped) job error otherwise, whether or not a retry was
// scheduled.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	handler, ok := e.registry.Get(j.Name)
	if !ok {
		return fmt.Errorf("worker: no handler registered for job %q", j.Name)
	}

	start := time.Now()
	err := e.mw(ctx, j, func(ctx context.Context) error {
		return handler(ctx, j.Payload)
	})
	elapsed := time.Since(start)

	now := time.Now().UTC()
	j.UpdatedAt = now

	if err != nil {
		return e.handleFailure(ctx, j, err, now)
	}
	return e.handleSuccess(ctx, j, now, elapsed)
}

func (e *Executor) handleSuccess(ctx context.Context, j *job.Job, now time.Time, elapsed time.Duration) error {
	j.State = job.StateCompleted
	j.CompletedAt = &now

	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.ErrorContext(ctx, "failed to update job after success",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.String("error", err.Error()),
		)
		return err
	}

	e.extensions.EmitJobCompleted(ctx, j, elapsed)
	return nil
}

func (e *Executor) handleFailure(ctx context.Context, j *job.Job, jobErr error, now time.Time) error {
	j.RetryCount++
	j.LastError = jobErr.Error()
	j.LastErrorClass = freekiq.TypeName(jobErr)

	switch {
	case freekiq.IsFreeRetry(jobErr) && j.RetryEnabled():
		j.FreeRetryCount++
		return e.scheduleFreeRetry(ctx, j, jobErr, now)
	case j.RetryEnabled() && j.ChargedRetries() <= j.MaxRetries:
		return e.scheduleRetry(ctx, j, jobErr, now)
	default:
		return e.sendToDLQ(ctx, j, jobErr)
	}
}

func (e *Executor) reschedule(ctx context.Context, j *job.Job, at time.Time) error {
	j.RunAt = at
	j.State = job.StateRetrying
	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.ErrorContext(ctx, "failed to update job for retry",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

func (e *Executor) scheduleFreeRetry(ctx context.Context, j *job.Job, jobErr error, now time.Time) error {
	delay := e.freeDelay.Delay(j.FreeRetryCount)
	nextRunAt := now.Add(delay)
	if err := e.reschedule(ctx, j, nextRunAt); err != nil {
		return err
	}

	e.extensions.EmitJobFreeRetry(ctx, j, j.FreeRetryCount, nextRunAt)
	e.logger.InfoContext(ctx, "job scheduled for free retry",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.Int("free_retry_count", j.FreeRetryCount),
		slog.Duration("delay", delay),
	)
	return fmt.Errorf("job %s free retry %d: %w", j.Name, j.FreeRetryCount, jobErr)
}

func (e *Executor) scheduleRetry(ctx context.Context, j *job.Job, jobErr error, now time.Time) error {
	attempt := j.ChargedRetries()
	delay := e.backoff.Delay(attempt)
	nextRunAt := now.Add(delay)
	if err := e.reschedule(ctx, j, nextRunAt); err != nil {
		return err
	}

	e.extensions.EmitJobRetrying(ctx, j, attempt, nextRunAt)
	e.logger.InfoContext(ctx, "job scheduled for retry",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.Int("attempt", attempt),
		slog.Int("max_retries", j.MaxRetries),
		slog.Duration("delay", delay),
	)
	return fmt.Errorf("job %s retry %d/%d: %w", j.Name, attempt, j.MaxRetries, jobErr)
}

func (e *Executor) sendToDLQ(ctx context.Context, j *job.Job, jobErr error) error {
	j.State = job.StateFailed

	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.ErrorContext(ctx, "failed to update job as failed",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	e.extensions.EmitJobFailed(ctx, j, jobErr)

	if e.dlqService == nil {
		return jobErr
	}
	if err := e.dlqService.Push(ctx, j, jobErr); err != nil {
		e.logger.ErrorContext(ctx, "failed to push job to DLQ",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return jobErr
	}

	e.extensions.EmitJobDLQ(ctx, j, jobErr)
	e.logger.WarnContext(ctx, "job moved to DLQ",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.Int("retry_count", j.RetryCount),
		slog.Int("free_retry_count", j.FreeRetryCount),
		slog.String("error_class", j.LastErrorClass),
		slog.String("error", jobErr.Error()),
	)
	return jobErr
}
