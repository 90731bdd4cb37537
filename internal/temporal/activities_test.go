package temporal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/webforge/internal/buildstate"
	"github.com/antigravity-dev/webforge/internal/eventbus"
	"github.com/antigravity-dev/webforge/internal/orchestrator"
	"github.com/antigravity-dev/webforge/internal/ports/fakes"
)

type stubGenerator struct {
	responses map[string]string
}

func (g stubGenerator) GeneratePage(_ context.Context, prompt string) (string, error) {
	for name, resp := range g.responses {
		if strings.Contains(prompt, name) {
			return resp, nil
		}
	}
	return "", errors.New("stubGenerator: no response configured")
}

const activityHomeHTML = "```html\n<!DOCTYPE html><html><body><a href=\"/\">Home</a></body></html>\n```"

func newTestSession(t *testing.T) (*orchestrator.Multi, *orchestrator.SessionStore, string) {
	t.Helper()
	pages := []buildstate.PageSpec{{ID: "home", Name: "Home", Path: "/", IsMain: true}}
	sess := orchestrator.NewSession("sess-1", "proj-1", "user-1", pages, orchestrator.ProductDoc{Overview: "A landing site"})

	sessions := orchestrator.NewSessionStore()
	sessions.Put(sess)

	multi := orchestrator.NewMulti(
		stubGenerator{responses: map[string]string{"Home": activityHomeHTML}},
		fakes.NewBlobStore(),
		eventbus.New(),
		nil,
		nil,
		3,
	)
	return multi, sessions, sess.ID
}

func TestRunBuildActivityCompletesSession(t *testing.T) {
	multi, sessions, sessionID := newTestSession(t)
	acts := NewActivities(multi, sessions)

	result, err := acts.RunBuildActivity(context.Background(), BuildWorkflowRequest{SessionID: sessionID})
	require.NoError(t, err)
	require.Equal(t, sessionID, result.SessionID)
	require.Equal(t, []string{"home"}, result.PagesCompleted)
	require.Empty(t, result.PagesFailed)
}

func TestRunBuildActivityUnknownSessionErrors(t *testing.T) {
	multi, sessions, _ := newTestSession(t)
	acts := NewActivities(multi, sessions)

	_, err := acts.RunBuildActivity(context.Background(), BuildWorkflowRequest{SessionID: "missing"})
	require.Error(t, err)
}

func TestCancelBuildActivityFlagsSession(t *testing.T) {
	multi, sessions, sessionID := newTestSession(t)
	acts := NewActivities(multi, sessions)

	require.NoError(t, acts.CancelBuildActivity(context.Background(), sessionID))

	sess, ok := sessions.Get(sessionID)
	require.True(t, ok)
	require.True(t, sess.IsCancelled)
}

func TestRetryPageActivityReportsUnknownPage(t *testing.T) {
	multi, sessions, sessionID := newTestSession(t)
	acts := NewActivities(multi, sessions)

	result, err := acts.RetryPageActivity(context.Background(), RetryPageRequest{SessionID: sessionID, PageID: "nope"})
	require.NoError(t, err)
	require.Empty(t, result.PagesCompleted)
}
