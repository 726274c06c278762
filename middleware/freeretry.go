package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/job"
)

// PolicySource looks up the free-retry policy declared for a job class.
// *job.Registry implements it.
type PolicySource interface {
	Policy(name string) freekiq.Policy
}

// PolicyFunc adapts a function to a PolicySource.
type PolicyFunc func(name string) freekiq.Policy

// Policy calls f.
func (f PolicyFunc) Policy(name string) freekiq.Policy { return f(name) }

var _ PolicySource = (*job.Registry)(nil)

// FreeRetry returns middleware that runs the rest of the chain through
// eng. A failure within the job's free-retry budget comes back as a
// [*freekiq.FreekiqError]; every other failure is returned unchanged.
//
// A nil policies source gives every job the zero Policy, so only the
// engine defaults apply.
func FreeRetry(eng *freekiq.Engine, policies PolicySource) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		var policy freekiq.Policy
		if policies != nil {
			policy = policies.Policy(j.Name)
		}
		attempt := freekiq.Attempt{
			RetryEnabled: j.RetryEnabled(),
			RetryCount:   j.RetryIndex(),
			Policy:       policy,
		}

		err := eng.Run(ctx, metaFor(j), attempt, next)
		if err != nil && freekiq.IsFreeRetry(err) {
			trace.SpanFromContext(ctx).AddEvent("freekiq.free_retry",
				trace.WithAttributes(
					attribute.Int("freekiq.free_retry_count", j.FreeRetryCount+1),
					attribute.String("freekiq.job.name", j.Name),
				),
			)
		}
		return err
	}
}

func metaFor(j *job.Job) freekiq.JobMeta {
	return freekiq.JobMeta{
		ID:         j.ID.String(),
		Name:       j.Name,
		Queue:      j.Queue,
		ScopeAppID: j.ScopeAppID,
		ScopeOrgID: j.ScopeOrgID,
	}
}
