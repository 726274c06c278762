// Package middleware provides composable middleware for job execution.
//
// A [Middleware] wraps a job handler. [Chain] composes them; the first
// middleware in the list is the outermost wrapper.
//
//	// tracing → logging → free retry → recover → handler
//	chain := middleware.Chain(
//	    middleware.Tracing(),
//	    middleware.Logging(logger),
//	    middleware.FreeRetry(engine, registry),
//	    middleware.Recover(logger),
//	)
//
// # Built-in Middleware
//
//   - [FreeRetry]: classifies failures against the job's free-retry budget
//   - [Logging]: logs start and outcome, free retries at info level
//   - [Recover]: turns panics into [*PanicError]
//   - [Timeout]: cancels the job context after the job's Timeout
//   - [Tracing]: wraps execution in an OpenTelemetry span
//   - [Metrics]: records duration and outcome with OpenTelemetry metrics
//   - [Scope]: restores the forge app/org scope captured at enqueue
//
// Middleware placed inside FreeRetry (Recover, Timeout, user middleware)
// see the handler's original error. Middleware placed outside see the
// translated [freekiq.FreekiqError] whenever a free retry was granted.
package middleware
