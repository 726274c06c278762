// Package job defines the job entity, typed definitions, the handler
// registry and the store interface.
//
// # Job Entity
//
// A [Job] is one unit of work. It moves through:
//
//	pending → running → completed
//	pending → running → retrying → running → ...
//	pending → running → failed (→ dlq)
//
// RetryCount counts every failed execution. FreeRetryCount counts the
// failures that were granted a free retry; those do not eat into
// MaxRetries. [Job.RetryIndex] gives the zero-based retry index the
// free-retry engine compares against its budget.
//
// # Defining a Job
//
//	var SendEmail = job.NewDefinition("send_email",
//	    func(ctx context.Context, in EmailInput) error {
//	        return mailer.Send(ctx, in)
//	    },
//	    job.WithFreeRetries(2),
//	    job.WithFreeRetryFor(freekiq.MatchType[*smtp.TempError]()),
//	)
//
// # Registry
//
// [Registry] maps job names to type-erased handlers and to the free-retry
// [freekiq.Policy] declared on the definition.
package job
