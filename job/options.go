package job

import (
	"time"

	"github.com/xraph/freekiq"
)

// Options configures per-job behavior such as retries, queue and the
// free-retry policy.
type Options struct {
	// MaxRetries is the number of charged retries before the job is sent to
	// the DLQ. Zero disables retries, and with them free retries.
	MaxRetries int

	// Queue is the queue name this job should be enqueued to.
	Queue string

	// Priority determines dequeue ordering. Higher values are processed first.
	Priority int

	// Timeout is the maximum duration a job may run before being cancelled.
	Timeout time.Duration

	// RunAt schedules the job for future execution. Zero means immediate.
	RunAt time.Time

	// FreeRetry is the job-class free-retry policy.
	FreeRetry freekiq.Policy
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetries: 25,
		Queue:      "default",
		Timeout:    5 * time.Minute,
	}
}

// Option is a functional option for configuring a job definition.
type Option func(*Options)

// WithMaxRetries sets the number of charged retries.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithQueue sets the queue name for the job.
func WithQueue(q string) Option {
	return func(o *Options) { o.Queue = q }
}

// WithPriority sets the job priority. Higher values are processed first.
func WithPriority(p int) Option {
	return func(o *Options) { o.Priority = p }
}

// WithTimeout sets the maximum execution duration for the job.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithRunAt schedules the job for execution at a specific time.
func WithRunAt(t time.Time) Option {
	return func(o *Options) { o.RunAt = t }
}

// WithFreeRetries grants the job class n free retries, overriding the
// engine default.
func WithFreeRetries(n int) Option {
	return func(o *Options) { o.FreeRetry.Budget = freekiq.Limit(n) }
}

// WithoutFreeRetries disables free retries for the job class even when the
// engine has a default budget.
func WithoutFreeRetries() Option {
	return func(o *Options) { o.FreeRetry.Budget = freekiq.Disabled }
}

// WithFreeRetryFor restricts free retries to errors matching one of the
// matchers. Calling it with no matchers declares an empty whitelist.
func WithFreeRetryFor(matchers ...freekiq.ErrorMatcher) Option {
	return func(o *Options) { o.FreeRetry.EligibleErrors = freekiq.Only(matchers...) }
}
