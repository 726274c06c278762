package freekiq

import "errors"

// ErrFreekiq matches any [*FreekiqError] via errors.Is.
var ErrFreekiq = errors.New("freekiq: free retry")

var (
	// Store errors.
	ErrNoStore     = errors.New("freekiq: no store configured")
	ErrStoreClosed = errors.New("freekiq: store closed")

	// Not found errors.
	ErrJobNotFound = errors.New("freekiq: job not found")
	ErrDLQNotFound = errors.New("freekiq: dlq entry not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("freekiq: job already exists")
)

// FreekiqError replaces a job's original error while the job still has free
// retries left. It keeps the original message verbatim and drops the
// original type, so retry bookkeeping records it under its own error class.
type FreekiqError struct {
	Message string
}

// Error returns the original error's message.
func (e *FreekiqError) Error() string { return e.Message }

// Is reports whether target is [ErrFreekiq].
func (e *FreekiqError) Is(target error) bool { return target == ErrFreekiq }

// StrayFreeRetryError stands in for a [*FreekiqError] that reached the
// engine from a job body instead of from a decision. It keeps the message
// but no longer matches [ErrFreekiq], so only the engine grants free
// retries.
type StrayFreeRetryError struct {
	Message string
}

// Error returns the stray error's message.
func (e *StrayFreeRetryError) Error() string { return e.Message }

// IsFreeRetry reports whether err is, or wraps, a free-retry error.
func IsFreeRetry(err error) bool { return errors.Is(err, ErrFreekiq) }
