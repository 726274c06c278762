package scope_test

import (
	"context"
	"testing"

	"github.com/xraph/forge"

	"github.com/xraph/freekiq/job"
	"github.com/xraph/freekiq/scope"
)

func TestStampAndRestore_Org(t *testing.T) {
	ctx := forge.WithScope(context.Background(), forge.NewOrgScope("app_1", "org_2"))
	j := &job.Job{}
	scope.Stamp(ctx, j)
	if j.ScopeAppID != "app_1" || j.ScopeOrgID != "org_2" {
		t.Fatalf("Stamp: app=%q org=%q", j.ScopeAppID, j.ScopeOrgID)
	}

	app, org := scope.Capture(scope.FromJob(context.Background(), j))
	if app != "app_1" || org != "org_2" {
		t.Errorf("FromJob: app=%q org=%q", app, org)
	}
}

func TestRestore_AppOnly(t *testing.T) {
	ctx := scope.Restore(context.Background(), "app_only", "")
	app, org := scope.Capture(ctx)
	if app != "app_only" || org != "" {
		t.Errorf("app=%q org=%q", app, org)
	}
}

func TestRestore_EmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	if got := scope.Restore(ctx, "", ""); got != ctx {
		t.Error("expected the same context back")
	}
	if _, ok := forge.ScopeFrom(scope.FromJob(ctx, &job.Job{})); ok {
		t.Error("expected no scope")
	}
}
