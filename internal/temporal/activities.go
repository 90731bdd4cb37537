package temporal

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/webforge/internal/orchestrator"
)

// Activities bridges Temporal's activity-calling convention onto the
// already-built orchestrator.Multi/SessionStore, the same seam
// internal/orchestrator exposes to its HTTP layer. Grounded on the
// teacher's own Activities{Store, Tiers, DAG} struct in
// internal/temporal/activities.go: a thin struct of already-constructed
// collaborators, one method per unit of durable work.
type Activities struct {
	Multi    *orchestrator.Multi
	Sessions *orchestrator.SessionStore
}

// NewActivities wires an Activities from its collaborators.
func NewActivities(multi *orchestrator.Multi, sessions *orchestrator.SessionStore) *Activities {
	return &Activities{Multi: multi, Sessions: sessions}
}

// RunBuildActivity runs a session's full multi-page build to completion
// (or cancellation) and reports the outcome. BuildWorkflow runs it with a
// RetryPolicy of one attempt. StreamProgress regenerates every page of the
// session on each run, including pages an earlier run already completed.
func (a *Activities) RunBuildActivity(ctx context.Context, req BuildWorkflowRequest) (BuildWorkflowResult, error) {
	sess, err := a.Sessions.MustGet(req.SessionID)
	if err != nil {
		return BuildWorkflowResult{}, fmt.Errorf("temporal: run build: %w", err)
	}
	a.Multi.StreamProgress(ctx, sess)
	return summarize(sess), nil
}

// CancelBuildActivity flags a running session's build for cancellation.
func (a *Activities) CancelBuildActivity(ctx context.Context, sessionID string) error {
	sess, err := a.Sessions.MustGet(sessionID)
	if err != nil {
		return fmt.Errorf("temporal: cancel build: %w", err)
	}
	a.Multi.CancelBuild(sess)
	return nil
}

// RetryPageActivity re-runs one page of an existing session.
func (a *Activities) RetryPageActivity(ctx context.Context, req RetryPageRequest) (BuildWorkflowResult, error) {
	sess, err := a.Sessions.MustGet(req.SessionID)
	if err != nil {
		return BuildWorkflowResult{}, fmt.Errorf("temporal: retry page: %w", err)
	}
	a.Multi.RetryPage(ctx, sess, req.PageID)
	return summarize(sess), nil
}
