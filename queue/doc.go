// Package queue limits how fast and how widely each named queue is worked.
//
// A [Manager] holds one token bucket (golang.org/x/time/rate) and one
// concurrency counter per configured queue. The worker pool asks it before
// running each dequeued job:
//
//	m := queue.NewManager(queue.Config{Name: "emails", RateLimit: 50, MaxConcurrency: 4})
//	if m.Acquire("emails") {
//	    defer m.Release("emails")
//	    // run the job
//	}
//
// Queues without a Config are unlimited. Free retries go through the same
// limiter as first executions, so a flapping dependency cannot flood a
// queue with retries.
package queue
