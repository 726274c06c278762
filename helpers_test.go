package freekiq_test

import (
	"context"
	"sync"

	"github.com/xraph/freekiq"
)

type standardError interface {
	error
	standard()
}

type argumentError struct{ msg string }

func (e *argumentError) Error() string { return e.msg }
func (e *argumentError) standard()     {}

type nonArgumentError struct{ msg string }

func (e *nonArgumentError) Error() string { return e.msg }
func (e *nonArgumentError) standard()     {}

const argumentErrorName = "github.com/xraph/freekiq_test.argumentError"

type recordingObserver struct {
	mu           sync.Mutex
	free         []freekiq.JobMeta
	exhausted    []freekiq.JobMeta
	callbackErrs []error
}

func (r *recordingObserver) OnFreeRetry(_ context.Context, meta freekiq.JobMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.free = append(r.free, meta)
}

func (r *recordingObserver) OnBudgetExhausted(_ context.Context, meta freekiq.JobMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted = append(r.exhausted, meta)
}

func (r *recordingObserver) OnCallbackFailed(_ context.Context, _ freekiq.JobMeta, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbackErrs = append(r.callbackErrs, err)
}

// simulate runs a failing job n times the way a retrying pipeline would:
// no retry count on the first execution, then 0, 1, 2...
func simulate(eng *freekiq.Engine, policy freekiq.Policy, jobErr error, n int) []error {
	var retryCount *int
	out := make([]error, 0, n)
	for range n {
		err := eng.Run(context.Background(),
			freekiq.JobMeta{ID: "job_1", Name: "TestDummyWorker", Queue: "default"},
			freekiq.Attempt{RetryEnabled: true, RetryCount: retryCount, Policy: policy},
			func(context.Context) error { return jobErr },
		)
		out = append(out, err)

		next := 0
		if retryCount != nil {
			next = *retryCount + 1
		}
		retryCount = &next
	}
	return out
}

func intPtr(n int) *int { return &n }
