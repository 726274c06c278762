// Package worker runs jobs: an [Executor] takes one job through the
// middleware chain and its handler and records the outcome, and a [Pool]
// keeps a fixed number of goroutines dequeuing and executing jobs.
//
// # Retry bookkeeping
//
// Every failed execution increments RetryCount and records LastError and
// LastErrorClass (the fully-qualified type name of the returned error). A
// failure that comes back as a free-retry error also increments
// FreeRetryCount and is rescheduled with the free-retry backoff. Other
// failures are retried while RetryCount-FreeRetryCount <= MaxRetries, so
// free retries never use up the job's normal allowance. After that the job
// is marked failed and pushed to the DLQ.
package worker
