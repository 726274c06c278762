package ext

import (
	"context"

	"github.com/xraph/freekiq"
)

// Observer returns a [freekiq.Observer] that forwards decision events to
// the registry's free-retry hooks.
//
// OnFreeRetry is not forwarded: the executor emits JobFreeRetry once the
// rescheduled job is persisted, which carries the next run time.
func (r *Registry) Observer() freekiq.Observer {
	return registryObserver{r: r}
}

type registryObserver struct {
	r *Registry
}

var _ freekiq.Observer = registryObserver{}

func (o registryObserver) OnFreeRetry(context.Context, freekiq.JobMeta) {}

func (o registryObserver) OnBudgetExhausted(ctx context.Context, meta freekiq.JobMeta) {
	o.r.EmitFreeRetryExhausted(ctx, meta)
}

func (o registryObserver) OnCallbackFailed(ctx context.Context, meta freekiq.JobMeta, err error) {
	o.r.EmitFreeRetryCallbackFailed(ctx, meta, err)
}
