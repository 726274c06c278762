package freekiq

import (
	"context"
	"sync/atomic"
)

// JobMeta identifies the failing job for callbacks and observers.
type JobMeta struct {
	// ID is the job instance identifier.
	ID string

	// Name is the job class name.
	Name string

	// Queue is the queue the job was pulled from.
	Queue string

	// ScopeAppID and ScopeOrgID are the forge scope stamped on the job at
	// enqueue time. Empty when the job was enqueued without a scope.
	ScopeAppID string
	ScopeOrgID string

	// RetryCount is the retry index the decision was made at (nil on the
	// first execution).
	RetryCount *int

	// Err is the original error returned by the job body.
	Err error
}

// Callback runs once for every failure that is granted a free retry. It is
// best effort: a returned error or a panic is reported and discarded.
//
// Callbacks run synchronously on the worker goroutine; timeouts are the
// callback's own business.
type Callback func(ctx context.Context, meta JobMeta) error

// CallbackSlot holds a Callback that may be replaced while jobs are running.
// It is safe for concurrent use.
type CallbackSlot struct {
	cb atomic.Pointer[Callback]
}

// NewCallbackSlot returns a slot holding cb, which may be nil.
func NewCallbackSlot(cb Callback) *CallbackSlot {
	s := &CallbackSlot{}
	s.Store(cb)
	return s
}

// Store replaces the callback. A nil callback clears the slot.
func (s *CallbackSlot) Store(cb Callback) {
	if cb == nil {
		s.cb.Store(nil)
		return
	}
	s.cb.Store(&cb)
}

// Load returns the current callback, or nil.
func (s *CallbackSlot) Load() Callback {
	p := s.cb.Load()
	if p == nil {
		return nil
	}
	return *p
}
