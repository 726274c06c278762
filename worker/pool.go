package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/freekiq/ext"
	"github.com/xraph/freekiq/id"
	"github.com/xraph/freekiq/job"
)

// QueueManager gates job execution per queue. *queue.Manager implements it.
type QueueManager interface {
	// Acquire reports whether a job from queue may run now.
	Acquire(queue string) bool
	// Release frees the slot taken by a successful Acquire.
	Release(queue string)
}

// Pool runs a fixed number of goroutines that dequeue and execute jobs.
type Pool struct {
	store        job.Store
	executor     *Executor
	extensions   *ext.Registry
	concurrency  int
	queues       []string
	pollInterval time.Duration
	workerID     id.WorkerID
	queueManager QueueManager
	logger       *slog.Logger

	heartbeatInterval time.Duration
	staleJobThreshold time.Duration

	activeMu sync.Mutex
	active   map[string]id.JobID

	mu        sync.Mutex
	running   bool
	stopLoops      context.CancelFunc
	stopJobs       context.CancelFunc
	stopBackground context.CancelFunc
	group          *errgroup.Group
	background     *errgroup.Group
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithPoolQueues sets the queues the pool polls.
func WithPoolQueues(queues []string) PoolOption {
	return func(p *Pool) { p.queues = queues }
}

// WithPollInterval sets how long an idle worker waits before polling again.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithQueueManager sets the per-queue limiter.
func WithQueueManager(m QueueManager) PoolOption {
	return func(p *Pool) { p.queueManager = m }
}

// WithHeartbeatInterval sets how often running jobs are heartbeated.
// Zero disables heartbeats.
func WithHeartbeatInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.heartbeatInterval = d }
}

// WithStaleJobThreshold sets how old a running job's heartbeat may get
// before the reaper requeues it. Zero disables the reaper.
func WithStaleJobThreshold(d time.Duration) PoolOption {
	return func(p *Pool) { p.staleJobThreshold = d }
}

// NewPool creates a worker pool.
func NewPool(
	store job.Store,
	executor *Executor,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	p := &Pool{
		store:        store,
		executor:     executor,
		extensions:   extensions,
		concurrency:  10,
		queues:       []string{"default"},
		pollInterval: time.Second,
		workerID:     id.NewWorkerID(),
		logger:       logger,

		heartbeatInterval: 10 * time.Second,
		staleJobThreshold: 30 * time.Second,
		active:            make(map[string]id.JobID),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerID returns the pool's identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Start launches the worker goroutines, the heartbeat loop and the stale
// job reaper, and returns immediately. Starting a running pool is a no-op.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	// Jobs get their own context so a graceful stop lets them finish.
	loopCtx, stopLoops := context.WithCancel(context.Background())
	jobCtx, stopJobs := context.WithCancel(context.Background())
	bgCtx, stopBackground := context.WithCancel(context.Background())
	p.stopLoops, p.stopJobs, p.stopBackground = stopLoops, stopJobs, stopBackground

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
		slog.Any("queues", p.queues),
	)

	p.group = &errgroup.Group{}
	for range p.concurrency {
		p.group.Go(func() error {
			p.loop(loopCtx, jobCtx)
			return nil
		})
	}

	// Heartbeats continue while running jobs drain.
	p.background = &errgroup.Group{}
	if p.heartbeatInterval > 0 {
		p.background.Go(func() error {
			p.every(bgCtx, p.heartbeatInterval, p.sendHeartbeats)
			return nil
		})
	}
	if p.staleJobThreshold > 0 {
		p.background.Go(func() error {
			p.every(loopCtx, p.staleJobThreshold, p.reapStaleJobs)
			return nil
		})
	}
	return nil
}

// Stop stops dequeuing and waits for running jobs. When ctx expires first,
// running jobs are cancelled and Stop waits for them to return.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	g, bg := p.group, p.background
	stopLoops, stopJobs, stopBackground := p.stopLoops, p.stopJobs, p.stopBackground
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID.String()))
	stopLoops()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	var err error
	select {
	case err = <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active jobs")
		stopJobs()
		err = <-done
	}
	stopJobs()
	stopBackground()
	if bgErr := bg.Wait(); err == nil {
		err = bgErr
	}
	return err
}

func (p *Pool) loop(loopCtx, jobCtx context.Context) {
	for loopCtx.Err() == nil {
		jobs, err := p.store.DequeueJobs(loopCtx, p.queues, 1)
		if err != nil {
			if loopCtx.Err() == nil {
				p.logger.Error("dequeue error", slog.String("error", err.Error()))
			}
			p.sleep(loopCtx)
			continue
		}
		if len(jobs) == 0 {
			p.sleep(loopCtx)
			continue
		}
		p.run(jobCtx, jobs[0])
	}
}

func (p *Pool) run(ctx context.Context, j *job.Job) {
	if p.queueManager != nil {
		if !p.queueManager.Acquire(j.Queue) {
			p.deferJob(ctx, j)
			return
		}
		defer p.queueManager.Release(j.Queue)
	}

	j.WorkerID = p.workerID
	p.track(j)
	defer p.untrack(j)
	p.extensions.EmitJobStarted(ctx, j)

	if err := p.executor.Execute(ctx, j); err != nil {
		p.logger.Debug("job execution failed",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.String("error", err.Error()),
		)
	}
}

// deferJob puts a rate-limited job back without counting an attempt.
func (p *Pool) deferJob(ctx context.Context, j *job.Job) {
	j.State = job.StatePending
	j.RunAt = time.Now().UTC().Add(p.pollInterval)
	if err := p.store.UpdateJob(ctx, j); err != nil {
		p.logger.Error("failed to re-enqueue rate-limited job",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pool) track(j *job.Job) {
	p.activeMu.Lock()
	p.active[j.ID.String()] = j.ID
	p.activeMu.Unlock()
}

func (p *Pool) untrack(j *job.Job) {
	p.activeMu.Lock()
	delete(p.active, j.ID.String())
	p.activeMu.Unlock()
}

func (p *Pool) isActive(j *job.Job) bool {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	_, ok := p.active[j.ID.String()]
	return ok
}

// ActiveJobs returns the number of jobs this pool is executing.
func (p *Pool) ActiveJobs() int {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	return len(p.active)
}

// every runs fn on each tick of interval until ctx is done.
func (p *Pool) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (p *Pool) sendHeartbeats(ctx context.Context) {
	p.activeMu.Lock()
	ids := make([]id.JobID, 0, len(p.active))
	for _, jobID := range p.active {
		ids = append(ids, jobID)
	}
	p.activeMu.Unlock()

	for _, jobID := range ids {
		if err := p.store.HeartbeatJob(ctx, jobID, p.workerID); err != nil && ctx.Err() == nil {
			p.logger.Warn("heartbeat failed",
				slog.String("job_id", jobID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// reapStaleJobs requeues running jobs whose owner stopped heartbeating,
// e.g. after a crash or a shutdown that timed out. Retry and free-retry
// counters are kept, so the job resumes its budget where it left off.
func (p *Pool) reapStaleJobs(ctx context.Context) {
	stale, err := p.store.ReapStaleJobs(ctx, p.staleJobThreshold)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("reap stale jobs error", slog.String("error", err.Error()))
		}
		return
	}

	for _, j := range stale {
		if p.isActive(j) {
			continue
		}
		j.State = job.StatePending
		j.RunAt = time.Now().UTC()
		j.WorkerID = id.Nil
		j.HeartbeatAt = nil
		j.StartedAt = nil

		if err := p.store.UpdateJob(ctx, j); err != nil {
			p.logger.Error("reap: failed to reset stale job",
				slog.String("job_id", j.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.logger.Info("reaped stale job",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.Int("retry_count", j.RetryCount),
			slog.Int("free_retry_count", j.FreeRetryCount),
		)
	}
}

func (p *Pool) sleep(ctx context.Context) {
	t := time.NewTimer(p.pollInterval)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
