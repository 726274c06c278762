// Package freekiq decides whether a failed background job execution should be
// treated as a free retry.
//
// A free retry is a failure that is retried without consuming the job's
// normal retry allowance. Instead of the original error, the pipeline sees a
// [*FreekiqError] carrying the original message, so the retry bookkeeping can
// record a distinct error class while operators still read the real message.
// Once the configured budget is spent the original error passes through
// unchanged.
//
// # Quick Start
//
//	eng := freekiq.New(
//	    freekiq.WithDefaultBudget(freekiq.Limit(2)),
//	    freekiq.WithCallback(func(ctx context.Context, m freekiq.JobMeta) error {
//	        return tracker.Ignore(m.ID)
//	    }),
//	)
//
//	err := eng.Run(ctx, meta, freekiq.Attempt{
//	    RetryEnabled: true,
//	    RetryCount:   retryCount,
//	    Policy:       freekiq.Policy{EligibleErrors: freekiq.Only(freekiq.MatchType[*net.OpError]())},
//	}, body)
//
// # Decision Pipeline
//
// Every failure goes through the same checks, each of which short-circuits
// to the original error:
//
//	retry enabled? → budget resolved? → error whitelisted? → budget remaining?
//
// Budgets and whitelists are resolved by [Resolve]: the job-class [Policy]
// wins over the engine [Defaults], and [Disabled] at the job-class level
// turns free retries off regardless of the defaults.
//
// # Matching Errors
//
// [MatchType] matches the error's type or anything it can be viewed as
// through errors.As (wrapped errors, interfaces it implements). [MatchName]
// compares the fully-qualified name of the error's own dynamic type and
// nothing else. The two matchers are deliberately asymmetric.
package freekiq
