package engine

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/backoff"
	"github.com/xraph/freekiq/ext"
	mw "github.com/xraph/freekiq/middleware"
	"github.com/xraph/freekiq/queue"
)

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the engine configuration. Options applied after it
// still take effect.
func WithConfig(cfg Config) Option {
	return func(eng *Engine) { eng.config = cfg }
}

// WithConcurrency sets the number of concurrent workers.
func WithConcurrency(n int) Option {
	return func(eng *Engine) { eng.config.Concurrency = n }
}

// WithQueues sets the queues the pool polls.
func WithQueues(queues ...string) Option {
	return func(eng *Engine) { eng.config.Queues = queues }
}

// WithPollInterval sets the idle poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(eng *Engine) { eng.config.PollInterval = d }
}

// WithShutdownTimeout sets the default graceful shutdown bound.
func WithShutdownTimeout(d time.Duration) Option {
	return func(eng *Engine) { eng.config.ShutdownTimeout = d }
}

// WithHeartbeat sets the heartbeat interval and the stale job threshold
// used by the reaper.
func WithHeartbeat(interval, staleAfter time.Duration) Option {
	return func(eng *Engine) {
		eng.config.HeartbeatInterval = interval
		eng.config.StaleJobThreshold = staleAfter
	}
}

// WithLogger sets the logger shared by every subsystem.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.pendingExts = append(eng.pendingExts, e) }
}

// WithMiddleware appends user middleware. It runs innermost, after the
// built-in stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithBackoff sets the delay strategy for charged retries.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithFreeRetryBackoff sets the delay strategy for free retries.
func WithFreeRetryBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.freeBo = b }
}

// WithQueueConfig registers queue-level rate limiting and concurrency
// configurations. Queues not listed have no limits.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) {
		eng.config.QueueLimits = append(eng.config.QueueLimits, configs...)
	}
}

// ── Free retries ────────────────────────────────────

// WithDefaultFreeRetries sets the engine-wide free-retry budget used by
// job classes that declare none.
func WithDefaultFreeRetries(n int) Option {
	return func(eng *Engine) { eng.config.FreeRetry.FreeRetries = freekiq.Limit(n) }
}

// WithFreeRetryFor sets the engine-wide whitelist of errors eligible for
// free retries. Typed matchers may be mixed with name matchers.
func WithFreeRetryFor(matchers ...freekiq.ErrorMatcher) Option {
	return func(eng *Engine) {
		eng.coreOpts = append(eng.coreOpts, freekiq.WithDefaultEligibleErrors(matchers...))
	}
}

// WithFreeRetryCallback sets the callback invoked whenever a free retry is
// granted. Its failures are reported but never change the outcome.
func WithFreeRetryCallback(cb freekiq.Callback) Option {
	return func(eng *Engine) {
		eng.coreOpts = append(eng.coreOpts, freekiq.WithCallback(cb))
	}
}

// WithFreeRetryObserver adds a diagnostic sink next to the engine's log
// observer and extension hooks.
func WithFreeRetryObserver(o freekiq.Observer) Option {
	return func(eng *Engine) { eng.observers = append(eng.observers, o) }
}

// ── Telemetry ───────────────────────────────────────

// WithTracerProvider sets a custom OTel TracerProvider for the tracing
// middleware. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the metrics
// middleware. If not set, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// WithMetricFactory sets the factory backing the lifecycle counters of the
// observability extension.
func WithMetricFactory(f gu.MetricFactory) Option {
	return func(eng *Engine) { eng.metricFactory = f }
}
