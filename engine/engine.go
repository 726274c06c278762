package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/backoff"
	"github.com/xraph/freekiq/dlq"
	"github.com/xraph/freekiq/ext"
	"github.com/xraph/freekiq/id"
	"github.com/xraph/freekiq/job"
	mw "github.com/xraph/freekiq/middleware"
	"github.com/xraph/freekiq/observability"
	"github.com/xraph/freekiq/queue"
	"github.com/xraph/freekiq/scope"
	"github.com/xraph/freekiq/store"
	"github.com/xraph/freekiq/worker"
)

const instrumentationName = "github.com/xraph/freekiq"

// Engine owns the job registry, extension hooks, free-retry engine,
// executor and worker pool.
type Engine struct {
	config     Config
	store      store.Store
	extensions *ext.Registry
	registry   *job.Registry
	freeRetry  *freekiq.Engine
	dlqService *dlq.Service
	pool       *worker.Pool
	logger     *slog.Logger

	queueManager *queue.Manager
	metrics      *observability.MetricsExtension

	// Collected by options, consumed by New.
	bo          backoff.Strategy
	freeBo      backoff.Strategy
	mws         []mw.Middleware
	pendingExts []ext.Extension
	coreOpts    []freekiq.Option
	observers   []freekiq.Observer

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricFactory  gu.MetricFactory
}

// New builds an Engine on top of s.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, freekiq.ErrNoStore
	}

	eng := &Engine{
		config:   DefaultConfig(),
		store:    s,
		registry: job.NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	logger := eng.logger
	eng.extensions = ext.NewRegistry(logger)

	if eng.metricFactory != nil {
		eng.metrics = observability.NewMetricsExtensionWithFactory(eng.metricFactory)
	} else {
		eng.metrics = observability.NewMetricsExtension()
	}
	eng.extensions.Register(eng.metrics)
	for _, e := range eng.pendingExts {
		eng.extensions.Register(e)
	}

	// Budget exhaustion and callback failures are logged and fanned out
	// to extensions.
	observers := append([]freekiq.Observer{
		freekiq.NewLogObserver(logger),
		eng.extensions.Observer(),
	}, eng.observers...)
	coreOpts := append(eng.config.FreeRetry.Options(), eng.coreOpts...)
	coreOpts = append(coreOpts,
		freekiq.WithObserver(freekiq.Observers(observers...)),
		freekiq.WithLogger(logger),
	)
	eng.freeRetry = freekiq.New(coreOpts...)

	eng.dlqService = dlq.NewService(s, s)

	executor := worker.NewExecutor(
		eng.registry,
		eng.extensions,
		s,
		eng.dlqService,
		logger,
		eng.executorOptions()...,
	)

	poolOpts := []worker.PoolOption{
		worker.WithPoolConcurrency(eng.config.Concurrency),
		worker.WithPoolQueues(eng.config.Queues),
		worker.WithPollInterval(eng.config.PollInterval),
		worker.WithHeartbeatInterval(eng.config.HeartbeatInterval),
		worker.WithStaleJobThreshold(eng.config.StaleJobThreshold),
	}
	if len(eng.config.QueueLimits) > 0 {
		eng.queueManager = queue.NewManager(eng.config.QueueLimits...)
		poolOpts = append(poolOpts, worker.WithQueueManager(eng.queueManager))
	}
	eng.pool = worker.NewPool(s, executor, eng.extensions, logger, poolOpts...)

	return eng, nil
}

// executorOptions assembles the middleware stack, outermost first:
// tracing → metrics → logging → scope → free retry → recover → timeout →
// user. Scope wraps FreeRetry so callbacks and observers see the job's app
// and org. Recover sits inside FreeRetry so a panic is classified like any
// other failure.
func (eng *Engine) executorOptions() []worker.ExecutorOption {
	tracingMw := mw.Tracing()
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	}
	metricsMw := mw.Metrics()
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	}

	stack := make([]mw.Middleware, 0, 7+len(eng.mws))
	stack = append(stack,
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Scope(),
		mw.FreeRetry(eng.freeRetry, eng.registry),
		mw.Recover(eng.logger),
		mw.Timeout(),
	)
	stack = append(stack, eng.mws...)

	opts := []worker.ExecutorOption{worker.WithMiddleware(stack...)}
	if eng.bo != nil {
		opts = append(opts, worker.WithBackoff(eng.bo))
	}
	if eng.freeBo != nil {
		opts = append(opts, worker.WithFreeRetryBackoff(eng.freeBo))
	}
	return opts
}

// Register registers a typed job definition with the engine.
func Register[T any](eng *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(eng.registry, def)
}

// Enqueue marshals payload to JSON and enqueues a job.
func Enqueue[T any](ctx context.Context, eng *Engine, name string, payload T, opts ...job.Option) (*job.Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for job %q: %w", name, err)
	}
	return eng.EnqueueRaw(ctx, name, data, opts...)
}

// EnqueueRaw enqueues a job with a pre-serialized payload. The options
// declared on the job's definition are the base; opts override them for
// this job only. The free-retry policy always comes from the definition.
func (eng *Engine) EnqueueRaw(ctx context.Context, name string, payload []byte, opts ...job.Option) (*job.Job, error) {
	jobOpts, ok := eng.registry.Options(name)
	if !ok {
		jobOpts = job.DefaultOptions()
	}
	for _, opt := range opts {
		opt(&jobOpts)
	}

	now := time.Now().UTC()
	j := &job.Job{
		ID:         id.NewJobID(),
		Name:       name,
		Queue:      jobOpts.Queue,
		Payload:    payload,
		State:      job.StatePending,
		Priority:   jobOpts.Priority,
		MaxRetries: jobOpts.MaxRetries,
		Timeout:    jobOpts.Timeout,
		RunAt:      now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if !jobOpts.RunAt.IsZero() {
		j.RunAt = jobOpts.RunAt
	}
	scope.Stamp(ctx, j)

	if err := eng.store.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}
	eng.extensions.EmitJobEnqueued(ctx, j)
	return j, nil
}

// Start verifies the store and starts the worker pool.
func (eng *Engine) Start(ctx context.Context) error {
	if err := eng.store.Ping(ctx); err != nil {
		return fmt.Errorf("freekiq: store ping: %w", err)
	}
	return eng.pool.Start(ctx)
}

// Stop drains the worker pool and notifies extensions. Without a deadline
// on ctx, Config.ShutdownTimeout bounds the drain.
func (eng *Engine) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && eng.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eng.config.ShutdownTimeout)
		defer cancel()
	}

	err := eng.pool.Stop(ctx)
	eng.extensions.EmitShutdown(ctx)
	if err != nil {
		eng.logger.Error("worker pool stop error", slog.String("error", err.Error()))
	}
	return err
}

// SetFreeRetryCallback replaces the free-retry callback while running.
func (eng *Engine) SetFreeRetryCallback(cb freekiq.Callback) { eng.freeRetry.SetCallback(cb) }

// FreeRetry returns the free-retry decision engine.
func (eng *Engine) FreeRetry() *freekiq.Engine { return eng.freeRetry }

// Config returns the effective configuration.
func (eng *Engine) Config() Config { return eng.config }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Registry returns the job registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Metrics returns the built-in lifecycle counters.
func (eng *Engine) Metrics() *observability.MetricsExtension { return eng.metrics }

// DLQService returns the engine's DLQ service for replay and inspection.
func (eng *Engine) DLQService() *dlq.Service { return eng.dlqService }

// QueueManager returns the queue manager, or nil if no queue limits were
// configured.
func (eng *Engine) QueueManager() *queue.Manager { return eng.queueManager }

// WorkerID returns the pool's identifier.
func (eng *Engine) WorkerID() id.WorkerID { return eng.pool.WorkerID() }
