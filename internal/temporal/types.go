// Package temporal wraps internal/orchestrator's multi-page build loop
// (Multi.StreamProgress) for durable execution, grounded on the teacher
// repo's own internal/temporal package (CortexAgentWorkflow's
// ActivityOptions/ExecuteActivity/signal idiom) since original_source has
// no durable-workflow equivalent to port from — the Python backend runs
// the build loop as a plain asyncio task.
package temporal

import (
	"github.com/antigravity-dev/webforge/internal/buildstate"
	"github.com/antigravity-dev/webforge/internal/orchestrator"
)

// CancelSignal is the workflow signal name a client sends to request a
// running build stop at the next page boundary.
const CancelSignal = "cancel-build"

// BuildWorkflowRequest starts a durable multi-page build. The session
// referenced by SessionID must already be registered in the worker's
// orchestrator.SessionStore — RunBuildActivity looks it up by ID rather
// than reconstructing it from this request, so the in-flight draft HTML,
// retry counts, and plan state survive exactly as they would a plain
// in-process StreamProgress call. Pages/ProductDoc are carried here only
// so a workflow caller can confirm what it started without a second
// round-trip to the store.
type BuildWorkflowRequest struct {
	SessionID  string
	ProjectID  string
	UserID     string
	Pages      []buildstate.PageSpec
	ProductDoc orchestrator.ProductDoc
}

// BuildWorkflowResult summarizes a completed (or cancelled) build.
type BuildWorkflowResult struct {
	SessionID            string
	PagesCompleted       []string
	PagesFailed          []string
	Cancelled            bool
	LinkValidationFailed bool
}

// RetryPageRequest re-runs one page of an existing session.
type RetryPageRequest struct {
	SessionID string
	PageID    string
}

func summarize(sess *orchestrator.Session) BuildWorkflowResult {
	result := BuildWorkflowResult{
		SessionID:            sess.ID,
		Cancelled:            sess.IsCancelled,
		LinkValidationFailed: sess.FinalChecksFailed,
	}
	for _, p := range sess.Pages {
		if sess.Completed[p.ID] {
			result.PagesCompleted = append(result.PagesCompleted, p.ID)
		}
		if sess.Failed[p.ID] {
			result.PagesFailed = append(result.PagesFailed, p.ID)
		}
	}
	return result
}
