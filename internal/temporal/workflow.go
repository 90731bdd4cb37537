package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BuildWorkflow durably runs a multi-page build:
//
//  1. RUN    — RunBuildActivity drives Multi.StreamProgress to completion.
//  2. CANCEL — a concurrent signal listener can request cancellation at
//     any point while RUN is in flight; it fires CancelBuildActivity,
//     which flags the session so StreamProgress halts at its next page
//     boundary and RUN returns normally.
//
// Unlike CortexAgentWorkflow's DoD retry loop, RUN is not retried at the
// workflow level beyond Temporal's own activity RetryPolicy: page-level
// retry is already Multi's job (MaxPageRetries), so a second workflow-level
// retry loop here would just duplicate it.
func BuildWorkflow(ctx workflow.Context, req BuildWorkflowRequest) (BuildWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	var a *Activities

	runOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 20 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	controlOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}

	runCtx := workflow.WithActivityOptions(ctx, runOpts)
	future := workflow.ExecuteActivity(runCtx, a.RunBuildActivity, req)

	cancelChan := workflow.GetSignalChannel(ctx, CancelSignal)
	selector := workflow.NewSelector(ctx)

	var result BuildWorkflowResult
	var runErr error
	done := false

	selector.AddFuture(future, func(f workflow.Future) {
		runErr = f.Get(ctx, &result)
		done = true
	})
	selector.AddReceive(cancelChan, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, nil)
		logger.Info("Build cancel signal received", "SessionID", req.SessionID)
		cancelCtx := workflow.WithActivityOptions(ctx, controlOpts)
		if err := workflow.ExecuteActivity(cancelCtx, a.CancelBuildActivity, req.SessionID).Get(ctx, nil); err != nil {
			logger.Warn("Cancel activity failed", "SessionID", req.SessionID, "error", err)
		}
	})

	for !done {
		selector.Select(ctx)
	}
	if runErr != nil {
		return BuildWorkflowResult{}, runErr
	}

	logger.Info("Build finished",
		"SessionID", req.SessionID,
		"Completed", len(result.PagesCompleted),
		"Failed", len(result.PagesFailed),
		"Cancelled", result.Cancelled,
	)
	return result, nil
}

// RetryPageWorkflow durably re-runs one failed page. Separate from
// BuildWorkflow since a retry is typically issued after the owning build
// run has already completed, against the same long-lived session held in
// the worker's SessionStore.
func RetryPageWorkflow(ctx workflow.Context, req RetryPageRequest) (BuildWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	var a *Activities

	opts := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	ctx = workflow.WithActivityOptions(ctx, opts)

	var result BuildWorkflowResult
	if err := workflow.ExecuteActivity(ctx, a.RetryPageActivity, req).Get(ctx, &result); err != nil {
		logger.Warn("Retry page activity failed", "SessionID", req.SessionID, "PageID", req.PageID, "error", err)
		return BuildWorkflowResult{}, err
	}
	return result, nil
}
