package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/backoff"
	"github.com/xraph/freekiq/dlq"
	"github.com/xraph/freekiq/ext"
	"github.com/xraph/freekiq/id"
	"github.com/xraph/freekiq/job"
	"github.com/xraph/freekiq/middleware"
	"github.com/xraph/freekiq/store/memory"
	"github.com/xraph/freekiq/worker"
)

type executorFixture struct {
	store    *memory.Store
	registry *job.Registry
	exec     *worker.Executor
	tracker  *trackingExt
}

func newExecutorFixture(t *testing.T, eng *freekiq.Engine) *executorFixture {
	t.Helper()
	logger := slog.Default()
	s := memory.New()
	reg := job.NewRegistry()
	extensions := ext.NewRegistry(logger)
	tracker := &trackingExt{}
	extensions.Register(tracker)

	exec := worker.NewExecutor(reg, extensions, s, dlq.NewService(s, s), logger,
		worker.WithBackoff(backoff.NewConstant(time.Minute)),
		worker.WithFreeRetryBackoff(backoff.NewConstant(time.Second)),
		worker.WithMiddleware(
			middleware.FreeRetry(eng, reg),
			middleware.Recover(logger),
		),
	)
	return &executorFixture{store: s, registry: reg, exec: exec, tracker: tracker}
}

func (f *executorFixture) enqueue(t *testing.T, name string, maxRetries int) *job.Job {
	t.Helper()
	now := time.Now().UTC()
	j := &job.Job{
		ID:         id.NewJobID(),
		Name:       name,
		Queue:      "default",
		State:      job.StatePending,
		MaxRetries: maxRetries,
		RunAt:      now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.store.EnqueueJob(context.Background(), j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return j
}

func TestExecutor_FreeRetriesDoNotConsumeAllowance(t *testing.T) {
	f := newExecutorFixture(t, freekiq.New())
	jobErr := errors.New("connection reset")
	job.RegisterDefinition(f.registry, job.NewDefinition("sync",
		func(context.Context, struct{}) error { return jobErr },
		job.WithFreeRetries(2),
	))

	j := f.enqueue(t, "sync", 1)
	ctx := context.Background()

	type step struct {
		state          job.State
		retryCount     int
		freeRetryCount int
		errorClass     string
	}
	freeClass := "github.com/xraph/freekiq.FreekiqError"
	steps := []step{
		{job.StateRetrying, 1, 1, freeClass},
		{job.StateRetrying, 2, 2, freeClass},
		{job.StateRetrying, 3, 2, "errors.errorString"},
		{job.StateFailed, 4, 2, "errors.errorString"},
	}

	for i, want := range steps {
		err := f.exec.Execute(ctx, j)
		if err == nil {
			t.Fatalf("execution %d: expected error", i)
		}
		if want.errorClass == freeClass && !freekiq.IsFreeRetry(err) {
			t.Errorf("execution %d: expected free retry, got %v", i, err)
		}
		if want.errorClass != freeClass && !errors.Is(err, jobErr) {
			t.Errorf("execution %d: expected original error, got %v", i, err)
		}

		got, getErr := f.store.GetJob(ctx, j.ID)
		if getErr != nil {
			t.Fatalf("GetJob: %v", getErr)
		}
		if got.State != want.state || got.RetryCount != want.retryCount || got.FreeRetryCount != want.freeRetryCount {
			t.Errorf("execution %d: state=%s retry=%d free=%d, want %s/%d/%d",
				i, got.State, got.RetryCount, got.FreeRetryCount,
				want.state, want.retryCount, want.freeRetryCount)
		}
		if got.LastErrorClass != want.errorClass {
			t.Errorf("execution %d: LastErrorClass = %q, want %q", i, got.LastErrorClass, want.errorClass)
		}
		if got.LastError != "connection reset" {
			t.Errorf("execution %d: LastError = %q", i, got.LastError)
		}
		j = got
	}

	entries, err := f.store.ListDLQ(ctx, dlq.ListOpts{})
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 DLQ entry, got %d (%v)", len(entries), err)
	}
	if entries[0].FreeRetryCount != 2 || entries[0].ErrorClass != "errors.errorString" {
		t.Errorf("DLQ entry = %+v", entries[0])
	}

	if n := f.tracker.count("free_retry"); n != 2 {
		t.Errorf("OnJobFreeRetry fired %d times, want 2", n)
	}
	if n := f.tracker.count("retrying"); n != 1 {
		t.Errorf("OnJobRetrying fired %d times, want 1", n)
	}
	if n := f.tracker.count("dlq"); n != 1 {
		t.Errorf("OnJobDLQ fired %d times, want 1", n)
	}
}

func TestExecutor_FreeRetryBackoff(t *testing.T) {
	f := newExecutorFixture(t, freekiq.New(freekiq.WithDefaultBudget(freekiq.Limit(1))))
	job.RegisterDefinition(f.registry, job.NewDefinition("flaky",
		func(context.Context, struct{}) error { return errors.New("x") }))

	j := f.enqueue(t, "flaky", 3)
	before := time.Now().UTC()
	_ = f.exec.Execute(context.Background(), j)

	got, _ := f.store.GetJob(context.Background(), j.ID)
	delay := got.RunAt.Sub(before)
	if delay < time.Second || delay > 30*time.Second {
		t.Errorf("free retry delay = %v, want about 1s", delay)
	}

	// Second execution is charged and uses the normal backoff.
	before = time.Now().UTC()
	_ = f.exec.Execute(context.Background(), got)
	got, _ = f.store.GetJob(context.Background(), j.ID)
	if delay := got.RunAt.Sub(before); delay < time.Minute {
		t.Errorf("charged retry delay = %v, want about 1m", delay)
	}
}

func TestExecutor_RetriesDisabledGoesToDLQ(t *testing.T) {
	f := newExecutorFixture(t, freekiq.New(freekiq.WithDefaultBudget(freekiq.Limit(5))))
	job.RegisterDefinition(f.registry, job.NewDefinition("once",
		func(context.Context, struct{}) error { return errors.New("x") }))

	j := f.enqueue(t, "once", 0)
	if err := f.exec.Execute(context.Background(), j); freekiq.IsFreeRetry(err) {
		t.Fatal("retries disabled must not produce free retries")
	}

	got, _ := f.store.GetJob(context.Background(), j.ID)
	if got.State != job.StateFailed || got.FreeRetryCount != 0 {
		t.Errorf("state=%s free=%d, want failed/0", got.State, got.FreeRetryCount)
	}
}

func TestExecutor_Success(t *testing.T) {
	f := newExecutorFixture(t, freekiq.New())
	job.RegisterDefinition(f.registry, job.NewDefinition("ok",
		func(context.Context, struct{}) error { return nil }))

	j := f.enqueue(t, "ok", 3)
	if err := f.exec.Execute(context.Background(), j); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := f.store.GetJob(context.Background(), j.ID)
	if got.State != job.StateCompleted || got.CompletedAt == nil {
		t.Errorf("state=%s completedAt=%v", got.State, got.CompletedAt)
	}
	if f.tracker.count("completed") != 1 {
		t.Error("expected OnJobCompleted to fire")
	}
}

func TestExecutor_UnknownJob(t *testing.T) {
	f := newExecutorFixture(t, freekiq.New())
	if err := f.exec.Execute(context.Background(), &job.Job{ID: id.NewJobID(), Name: "missing"}); err == nil {
		t.Fatal("expected error for unregistered job")
	}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// trackingExt counts which hooks fired.
type trackingExt struct {
	mu    sync.Mutex
	calls map[string]int
}

func (e *trackingExt) Name() string { return "tracker" }

func (e *trackingExt) inc(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[name]++
	return nil
}

func (e *trackingExt) count(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[name]
}

func (e *trackingExt) OnJobStarted(context.Context, *job.Job) error { return e.inc("started") }

func (e *trackingExt) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	return e.inc("completed")
}

func (e *trackingExt) OnJobRetrying(context.Context, *job.Job, int, time.Time) error {
	return e.inc("retrying")
}

func (e *trackingExt) OnJobFreeRetry(context.Context, *job.Job, int, time.Time) error {
	return e.inc("free_retry")
}

func (e *trackingExt) OnJobFailed(context.Context, *job.Job, error) error { return e.inc("failed") }

func (e *trackingExt) OnJobDLQ(context.Context, *job.Job, error) error { return e.inc("dlq") }

func TestExecutor_ReturnedFreeRetryErrorRespectsRetryEnabled(t *testing.T) {
	logger := slog.Default()
	s := memory.New()
	reg := job.NewRegistry()
	job.RegisterDefinition(reg, job.NewDefinition("raw",
		func(context.Context, struct{}) error { return &freekiq.FreekiqError{Message: "again"} }))

	// No FreeRetry middleware: the handler's error reaches the executor as is.
	exec := worker.NewExecutor(reg, ext.NewRegistry(logger), s, dlq.NewService(s, s), logger)

	now := time.Now().UTC()
	j := &job.Job{
		ID:        id.NewJobID(),
		Name:      "raw",
		Queue:     "default",
		State:     job.StatePending,
		RunAt:     now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.EnqueueJob(context.Background(), j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	_ = exec.Execute(context.Background(), j)

	got, _ := s.GetJob(context.Background(), j.ID)
	if got.State != job.StateFailed || got.FreeRetryCount != 0 {
		t.Errorf("state=%s free=%d, want failed/0", got.State, got.FreeRetryCount)
	}
	if n, _ := s.CountDLQ(context.Background()); n != 1 {
		t.Errorf("CountDLQ = %d, want 1", n)
	}
}
