package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/id"
	"github.com/xraph/freekiq/job"
	"github.com/xraph/freekiq/middleware"
)

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string
	wrap := func(name string) middleware.Middleware {
		return func(ctx context.Context, _ *job.Job, next middleware.Handler) error {
			order = append(order, name+"-before")
			err := next(ctx)
			order = append(order, name+"-after")
			return err
		}
	}

	chain := middleware.Chain(wrap("mw1"), wrap("mw2"))
	err := chain(context.Background(), &job.Job{Name: "test", ID: id.NewJobID()}, func(context.Context) error {
		order = append(order, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, want := range expected {
		if order[i] != want {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want)
		}
	}
}

func TestChain_EmptyCallsHandler(t *testing.T) {
	called := false
	err := middleware.Chain()(context.Background(), &job.Job{ID: id.NewJobID()}, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}

func TestChain_PropagatesError(t *testing.T) {
	pass := func(ctx context.Context, _ *job.Job, next middleware.Handler) error { return next(ctx) }
	want := errors.New("handler error")

	err := middleware.Chain(pass, pass)(context.Background(), &job.Job{ID: id.NewJobID()}, func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	mw := middleware.Recover(slog.Default())
	j := &job.Job{Name: "panicky", ID: id.NewJobID()}

	err := mw(context.Background(), j, func(context.Context) error {
		panic("test panic")
	})

	var pe *middleware.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %T", err)
	}
	if got := err.Error(); got != "panic in job panicky: test panic" {
		t.Errorf("unexpected error message: %q", got)
	}
	if len(pe.Stack) == 0 {
		t.Error("expected stack to be captured")
	}
	if freekiq.TypeName(err) != "github.com/xraph/freekiq/middleware.PanicError" {
		t.Errorf("TypeName = %q", freekiq.TypeName(err))
	}
}

func TestRecover_UnwrapsErrorPanics(t *testing.T) {
	mw := middleware.Recover(slog.Default())
	cause := errors.New("nil map write")

	err := mw(context.Background(), &job.Job{Name: "p", ID: id.NewJobID()}, func(context.Context) error {
		panic(cause)
	})
	if !errors.Is(err, cause) {
		t.Fatalf("expected panic value in chain, got %v", err)
	}
}

func TestLogging_PassesErrorsThrough(t *testing.T) {
	mw := middleware.Logging(slog.Default())
	j := &job.Job{Name: "log-test", ID: id.NewJobID(), Queue: "default"}

	if err := mw(context.Background(), j, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := errors.New("fail")
	if err := mw(context.Background(), j, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}

	free := &freekiq.FreekiqError{Message: "fail"}
	if err := mw(context.Background(), j, func(context.Context) error { return free }); err != free {
		t.Fatalf("expected free retry error unchanged, got %v", err)
	}
}

func TestTimeout_CancelsContext(t *testing.T) {
	mw := middleware.Timeout()
	j := &job.Job{Name: "slow", ID: id.NewJobID(), Timeout: 10 * time.Millisecond}

	err := mw(context.Background(), j, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestTimeout_ZeroLeavesContext(t *testing.T) {
	mw := middleware.Timeout()
	err := mw(context.Background(), &job.Job{ID: id.NewJobID()}, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Error("expected no deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScope_RestoresFromJob(t *testing.T) {
	mw := middleware.Scope()
	j := &job.Job{
		Name:       "scoped",
		ID:         id.NewJobID(),
		ScopeAppID: "app_test123",
		ScopeOrgID: "org_test456",
	}

	err := mw(context.Background(), j, func(ctx context.Context) error {
		s, ok := forge.ScopeFrom(ctx)
		if !ok {
			t.Fatal("expected scope in context")
		}
		if s.AppID() != "app_test123" || s.OrgID() != "org_test456" {
			t.Errorf("scope = %q/%q", s.AppID(), s.OrgID())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScope_NoOpWhenEmpty(t *testing.T) {
	mw := middleware.Scope()
	err := mw(context.Background(), &job.Job{Name: "unscoped", ID: id.NewJobID()}, func(ctx context.Context) error {
		if _, ok := forge.ScopeFrom(ctx); ok {
			t.Fatal("expected no scope in context for unscoped job")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
