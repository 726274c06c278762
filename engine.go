package freekiq

import (
	"context"
	"fmt"
	"log/slog"
)

// Outcome names the branch a failure took through the decision pipeline.
type Outcome int

const (
	// OutcomeNone is the zero Outcome; Decide was given a nil error.
	OutcomeNone Outcome = iota
	// OutcomeNotRetryable means retries are disabled for the job.
	OutcomeNotRetryable
	// OutcomeBudgetDisabled means no budget applies to the job.
	OutcomeBudgetDisabled
	// OutcomeNotWhitelisted means the error is excluded by the whitelist.
	OutcomeNotWhitelisted
	// OutcomeWithinBudget means the failure gets a free retry.
	OutcomeWithinBudget
	// OutcomeBudgetExhausted means the budget is used up.
	OutcomeBudgetExhausted
)

var outcomeNames = map[Outcome]string{
	OutcomeNone:            "none",
	OutcomeNotRetryable:    "not_retryable",
	OutcomeBudgetDisabled:  "budget_disabled",
	OutcomeNotWhitelisted:  "not_whitelisted",
	OutcomeWithinBudget:    "within_budget",
	OutcomeBudgetExhausted: "budget_exhausted",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Decision is the result of classifying one failure. Err is either a
// [*FreekiqError] (OutcomeWithinBudget) or the original error.
type Decision struct {
	Outcome Outcome
	Err     error
}

// FreeRetry reports whether the decision grants a free retry.
func (d Decision) FreeRetry() bool { return d.Outcome == OutcomeWithinBudget }

// Attempt describes the job execution a failure belongs to. It is built by
// the pipeline for every execution and never modified by the engine.
type Attempt struct {
	// RetryEnabled is false when the pipeline will not retry the job at all.
	RetryEnabled bool

	// RetryCount is the pipeline's retry index; nil before the first retry.
	RetryCount *int

	// Policy is the job-class policy, already looked up by the caller.
	Policy Policy
}

// Engine classifies job failures against free-retry budgets.
//
// Engine holds no per-job state; one Engine serves every worker goroutine.
type Engine struct {
	defaults Defaults
	callback *CallbackSlot
	observer Observer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultBudget sets the budget used by job classes that declare none.
func WithDefaultBudget(b Budget) Option {
	return func(e *Engine) { e.defaults.Budget = b }
}

// WithDefaultEligibleErrors sets the whitelist used by job classes that
// declare none.
func WithDefaultEligibleErrors(matchers ...ErrorMatcher) Option {
	return func(e *Engine) { e.defaults.EligibleErrors = Only(matchers...) }
}

// WithCallback sets the callback invoked for each granted free retry.
func WithCallback(cb Callback) Option {
	return func(e *Engine) { e.callback.Store(cb) }
}

// WithCallbackSlot shares a callback slot between engines, or with code that
// reconfigures the callback out of band. It replaces any callback set before.
func WithCallbackSlot(s *CallbackSlot) Option {
	return func(e *Engine) {
		if s != nil {
			e.callback = s
		}
	}
}

// WithObserver sets the diagnostic sink. Defaults to a [LogObserver].
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger used by the default observer.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. With no options every job resolves to a disabled
// budget and failures pass through untouched.
func New(opts ...Option) *Engine {
	e := &Engine{
		callback: NewCallbackSlot(nil),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.observer == nil {
		e.observer = NewLogObserver(e.logger)
	}
	return e
}

// Defaults returns the engine-wide defaults.
func (e *Engine) Defaults() Defaults { return e.defaults }

// SetCallback replaces the callback. Safe to call while jobs are running.
func (e *Engine) SetCallback(cb Callback) { e.callback.Store(cb) }

// Callback returns the current callback, or nil.
func (e *Engine) Callback() Callback { return e.callback.Load() }

// Run executes body and classifies its failure. It returns nil when body
// succeeds, and otherwise exactly one of the original error or a
// [*FreekiqError] carrying its message.
func (e *Engine) Run(ctx context.Context, meta JobMeta, a Attempt, body func(ctx context.Context) error) error {
	err := body(ctx)
	if err == nil {
		return nil
	}
	return e.Decide(ctx, meta, a, err).Err
}

// Decide classifies a single failure.
func (e *Engine) Decide(ctx context.Context, meta JobMeta, a Attempt, err error) Decision {
	if err == nil {
		return Decision{}
	}
	if IsFreeRetry(err) {
		err = &StrayFreeRetryError{Message: err.Error()}
	}
	meta.Err = err
	meta.RetryCount = a.RetryCount

	if !a.RetryEnabled {
		return Decision{Outcome: OutcomeNotRetryable, Err: err}
	}

	eff := Resolve(a.Policy, e.defaults)
	if eff.Budget.IsDisabled() {
		return Decision{Outcome: OutcomeBudgetDisabled, Err: err}
	}

	if !Eligible(err, eff.EligibleErrors) {
		return Decision{Outcome: OutcomeNotWhitelisted, Err: err}
	}

	if !WithinBudget(a.RetryCount, eff.Budget) {
		e.observer.OnBudgetExhausted(ctx, meta)
		return Decision{Outcome: OutcomeBudgetExhausted, Err: err}
	}

	e.runCallback(ctx, meta)
	e.observer.OnFreeRetry(ctx, meta)

	return Decision{
		Outcome: OutcomeWithinBudget,
		Err:     &FreekiqError{Message: err.Error()},
	}
}

func (e *Engine) runCallback(ctx context.Context, meta JobMeta) {
	cb := e.callback.Load()
	if cb == nil {
		return
	}
	if err := safeCall(ctx, cb, meta); err != nil {
		e.observer.OnCallbackFailed(ctx, meta, err)
	}
}

func safeCall(ctx context.Context, cb Callback, meta JobMeta) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("freekiq: callback panicked: %v", r)
		}
	}()
	return cb(ctx, meta)
}
