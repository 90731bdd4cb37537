package temporal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

func TestBuildWorkflowReturnsActivityResult(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	req := BuildWorkflowRequest{SessionID: "sess-1", ProjectID: "proj-1"}
	want := BuildWorkflowResult{SessionID: "sess-1", PagesCompleted: []string{"home", "about"}}

	env.OnActivity(a.RunBuildActivity, mock.Anything, mock.Anything).Return(&want, nil)

	env.ExecuteWorkflow(BuildWorkflow, req)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var got BuildWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&got))
	require.Equal(t, want, got)
}

func TestBuildWorkflowFiresCancelActivityOnSignal(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	req := BuildWorkflowRequest{SessionID: "sess-2", ProjectID: "proj-1"}
	cancelled := BuildWorkflowResult{SessionID: "sess-2", Cancelled: true}

	env.OnActivity(a.RunBuildActivity, mock.Anything, mock.Anything).Return(&cancelled, nil)
	env.OnActivity(a.CancelBuildActivity, mock.Anything, mock.Anything).Return(nil)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(CancelSignal, nil)
	}, 0)

	env.ExecuteWorkflow(BuildWorkflow, req)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestBuildWorkflowPropagatesActivityError(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	req := BuildWorkflowRequest{SessionID: "sess-3"}
	env.OnActivity(a.RunBuildActivity, mock.Anything, mock.Anything).Return(nil, errors.New("session not found"))

	env.ExecuteWorkflow(BuildWorkflow, req)

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}

func TestRetryPageWorkflowReturnsActivityResult(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	req := RetryPageRequest{SessionID: "sess-1", PageID: "about"}
	want := BuildWorkflowResult{SessionID: "sess-1", PagesCompleted: []string{"home", "about"}}

	env.OnActivity(a.RetryPageActivity, mock.Anything, mock.Anything).Return(&want, nil)

	env.ExecuteWorkflow(RetryPageWorkflow, req)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var got BuildWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&got))
	require.Equal(t, want, got)
}
