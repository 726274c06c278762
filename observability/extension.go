package observability

import (
	"context"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/ext"
	"github.com/xraph/freekiq/job"
)

var (
	_ ext.Extension               = (*MetricsExtension)(nil)
	_ ext.JobEnqueued             = (*MetricsExtension)(nil)
	_ ext.JobCompleted            = (*MetricsExtension)(nil)
	_ ext.JobFailed               = (*MetricsExtension)(nil)
	_ ext.JobRetrying             = (*MetricsExtension)(nil)
	_ ext.JobFreeRetry            = (*MetricsExtension)(nil)
	_ ext.JobDLQ                  = (*MetricsExtension)(nil)
	_ ext.FreeRetryExhausted      = (*MetricsExtension)(nil)
	_ ext.FreeRetryCallbackFailed = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle counters. Register it on
// the engine to track throughput and free-retry usage.
type MetricsExtension struct {
	JobEnqueued    gu.Counter
	JobCompleted   gu.Counter
	JobFailed      gu.Counter
	JobRetried     gu.Counter
	JobDLQ         gu.Counter
	FreeRetries    gu.Counter
	FreeExhausted  gu.Counter
	CallbackFailed gu.Counter
}

// NewMetricsExtension creates a MetricsExtension with a default collector.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithFactory(gu.NewMetricsCollector("freekiq/observability"))
}

// NewMetricsExtensionWithFactory creates a MetricsExtension with the given
// factory, e.g. fapp.Metrics() inside a forge app.
func NewMetricsExtensionWithFactory(factory gu.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		JobEnqueued:    factory.Counter("freekiq.job.enqueued"),
		JobCompleted:   factory.Counter("freekiq.job.completed"),
		JobFailed:      factory.Counter("freekiq.job.failed"),
		JobRetried:     factory.Counter("freekiq.job.retried"),
		JobDLQ:         factory.Counter("freekiq.job.dlq"),
		FreeRetries:    factory.Counter("freekiq.free_retry.granted"),
		FreeExhausted:  factory.Counter("freekiq.free_retry.exhausted"),
		CallbackFailed: factory.Counter("freekiq.free_retry.callback_failed"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobEnqueued implements ext.JobEnqueued.
func (m *MetricsExtension) OnJobEnqueued(context.Context, *job.Job) error {
	m.JobEnqueued.Inc()
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	m.JobCompleted.Inc()
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(context.Context, *job.Job, error) error {
	m.JobFailed.Inc()
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(context.Context, *job.Job, int, time.Time) error {
	m.JobRetried.Inc()
	return nil
}

// OnJobDLQ implements ext.JobDLQ.
func (m *MetricsExtension) OnJobDLQ(context.Context, *job.Job, error) error {
	m.JobDLQ.Inc()
	return nil
}

// ── Free-retry hooks ────────────────────────────────

// OnJobFreeRetry implements ext.JobFreeRetry.
func (m *MetricsExtension) OnJobFreeRetry(context.Context, *job.Job, int, time.Time) error {
	m.FreeRetries.Inc()
	return nil
}

// OnFreeRetryExhausted implements ext.FreeRetryExhausted.
func (m *MetricsExtension) OnFreeRetryExhausted(context.Context, freekiq.JobMeta) error {
	m.FreeExhausted.Inc()
	return nil
}

// OnFreeRetryCallbackFailed implements ext.FreeRetryCallbackFailed.
func (m *MetricsExtension) OnFreeRetryCallbackFailed(context.Context, freekiq.JobMeta, error) error {
	m.CallbackFailed.Inc()
	return nil
}
