// Package scope carries forge multi-tenant identity (app and org) across the
// queue: it is stamped on the job at enqueue time and restored into the
// handler's context at execution time, including on every free or charged
// retry of the same job.
package scope

import (
	"context"

	"github.com/xraph/forge"

	"github.com/xraph/freekiq/job"
)

// Capture extracts the app and org identifiers from the context.
// Returns empty strings if no scope is present.
func Capture(ctx context.Context) (appID, orgID string) {
	s, ok := forge.ScopeFrom(ctx)
	if !ok {
		return "", ""
	}
	return s.AppID(), s.OrgID()
}

// Restore attaches a scope built from appID and orgID. With both empty the
// context is returned unchanged.
func Restore(ctx context.Context, appID, orgID string) context.Context {
	if appID == "" && orgID == "" {
		return ctx
	}
	if orgID != "" {
		return forge.WithScope(ctx, forge.NewOrgScope(appID, orgID))
	}
	return forge.WithScope(ctx, forge.NewAppScope(appID))
}

// Stamp copies the caller's scope onto j.
func Stamp(ctx context.Context, j *job.Job) {
	j.ScopeAppID, j.ScopeOrgID = Capture(ctx)
}

// FromJob returns ctx carrying the scope stamped on j.
func FromJob(ctx context.Context, j *job.Job) context.Context {
	return Restore(ctx, j.ScopeAppID, j.ScopeOrgID)
}
