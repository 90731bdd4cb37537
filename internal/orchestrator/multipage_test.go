package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/antigravity-dev/webforge/internal/buildstate"
	"github.com/antigravity-dev/webforge/internal/eventbus"
	"github.com/antigravity-dev/webforge/internal/ports/fakes"
)

type scriptedGenerator struct {
	responses map[string]string
	calls     []string
}

func (g *scriptedGenerator) GeneratePage(_ context.Context, prompt string) (string, error) {
	g.calls = append(g.calls, prompt)
	for name, resp := range g.responses {
		if containsName(prompt, name) {
			return resp, nil
		}
	}
	return "", errors.New("scriptedGenerator: no response configured for prompt")
}

func containsName(haystack, needle string) bool {
	return len(needle) > 0 && indexOf(haystack, needle) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

type recordingVersions struct {
	created []string
	failed  [][]string
}

func (r *recordingVersions) CreateVersion(_ context.Context, projectID string, tasksCompleted []string) (string, error) {
	r.created = append(r.created, projectID)
	return "version-1", nil
}

func (r *recordingVersions) RecordFailedAttempt(_ context.Context, projectID string, diagnostics []string) error {
	r.failed = append(r.failed, diagnostics)
	return nil
}

type countingThumbnails struct {
	enqueued []string
	fail     bool
}

func (c *countingThumbnails) EnqueueThumbnail(_ context.Context, projectID, pageID string) error {
	c.enqueued = append(c.enqueued, pageID)
	if c.fail {
		return errors.New("capture backend unavailable")
	}
	return nil
}

func twoPageSession() (*Session, []buildstate.PageSpec) {
	pages := []buildstate.PageSpec{
		{ID: "home", Name: "Home", Path: "/", IsMain: true},
		{ID: "about", Name: "About", Path: "/about"},
	}
	sess := NewSession("sess-1", "proj-1", "user-1", pages, ProductDoc{Overview: "A landing site"})
	return sess, pages
}

const homeHTML = "```html\n<!DOCTYPE html><html><body><a href=\"/\">Home</a><a href=\"/about\">About</a></body></html>\n```"
const aboutHTML = "```html\n<!DOCTYPE html><html><body><a href=\"/\">Home</a><a href=\"/about\">About</a></body></html>\n```"

func TestStreamProgressGeneratesAllPagesAndCreatesVersion(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{
		"Name: Home":  homeHTML,
		"Name: About": aboutHTML,
	}}
	blobs := fakes.NewBlobStore()
	versions := &recordingVersions{}
	thumbs := &countingThumbnails{}
	bus := eventbus.New()
	ch, unsub := bus.Subscribe("sess-1")
	defer unsub()

	m := NewMulti(gen, blobs, bus, versions, thumbs, 3)
	sess, _ := twoPageSession()

	m.StreamProgress(context.Background(), sess)

	if len(sess.Failed) != 0 {
		t.Fatalf("expected no failed pages, got %v", sess.Failed)
	}
	if len(versions.created) != 1 {
		t.Fatalf("expected one version created, got %d", len(versions.created))
	}
	if len(thumbs.enqueued) != 2 {
		t.Fatalf("expected thumbnails enqueued for both pages, got %v", thumbs.enqueued)
	}
	if sess.Plan.find("project-final").Status != PlanDone {
		t.Fatalf("expected project-final done, got %s", sess.Plan.find("project-final").Status)
	}

	var sawBuildComplete bool
	for {
		select {
		case ev := <-ch:
			if ev.Kind == eventbus.KindBuildComplete {
				sawBuildComplete = true
			}
		default:
			if !sawBuildComplete {
				t.Fatal("expected a build_complete event")
			}
			return
		}
	}
}

func TestStreamProgressFailsBuildWhenPageGenerationEmpty(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{
		"Name: Home":  "   ",
		"Name: About": aboutHTML,
	}}
	versions := &recordingVersions{}
	m := NewMulti(gen, fakes.NewBlobStore(), eventbus.New(), versions, &countingThumbnails{}, 3)
	sess, _ := twoPageSession()

	m.StreamProgress(context.Background(), sess)

	if !sess.Failed["home"] {
		t.Fatal("expected home page marked failed")
	}
	if sess.Plan.find("project-links").Status != PlanSkipped {
		t.Fatalf("expected project-links skipped, got %s", sess.Plan.find("project-links").Status)
	}
	if len(versions.failed) != 1 {
		t.Fatalf("expected one failed version attempt recorded, got %d", len(versions.failed))
	}
}

func TestStreamProgressFlagsMissingCrossPageLinks(t *testing.T) {
	noLinkHTML := "```html\n<!DOCTYPE html><html><body>no links here</body></html>\n```"
	gen := &scriptedGenerator{responses: map[string]string{
		"Name: Home":  noLinkHTML,
		"Name: About": noLinkHTML,
	}}
	m := NewMulti(gen, fakes.NewBlobStore(), eventbus.New(), &recordingVersions{}, &countingThumbnails{}, 3)
	sess, _ := twoPageSession()

	m.StreamProgress(context.Background(), sess)

	if len(sess.Failed) != 0 {
		t.Fatalf("expected no page-level failures, got %v", sess.Failed)
	}
	if !sess.FinalChecksFailed {
		t.Fatal("expected FinalChecksFailed true when cross-page links are missing")
	}
	if sess.Plan.find("project-links").Status != PlanFailed {
		t.Fatalf("expected project-links failed, got %s", sess.Plan.find("project-links").Status)
	}
}

func TestStreamProgressHaltsAtPageBoundaryWhenCancelled(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{
		"Name: Home":  homeHTML,
		"Name: About": aboutHTML,
	}}
	m := NewMulti(gen, fakes.NewBlobStore(), eventbus.New(), &recordingVersions{}, &countingThumbnails{}, 3)
	sess, _ := twoPageSession()
	sess.IsCancelled = true

	m.StreamProgress(context.Background(), sess)

	if len(sess.Completed) != 0 {
		t.Fatalf("expected no pages generated once cancelled, got %v", sess.Completed)
	}
	if sess.Plan.Status != PlanCancelled {
		t.Fatalf("expected plan status cancelled, got %s", sess.Plan.Status)
	}
}

func TestRetryPageStopsAfterMaxRetries(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{
		"Name: Home": "```html\n\n```",
	}}
	m := NewMulti(gen, fakes.NewBlobStore(), eventbus.New(), &recordingVersions{}, &countingThumbnails{}, 2)
	sess, _ := twoPageSession()
	sess.Failed["home"] = true

	m.RetryPage(context.Background(), sess, "home")
	m.RetryPage(context.Background(), sess, "home")
	m.RetryPage(context.Background(), sess, "home")

	if sess.RetryCounts["home"] != 3 {
		t.Fatalf("expected retry counter to reach 3, got %d", sess.RetryCounts["home"])
	}
}

func TestRetryPageClearingFailureRunsFinalChecks(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{
		"Name: Home":  homeHTML,
		"Name: About": aboutHTML,
	}}
	versions := &recordingVersions{}
	m := NewMulti(gen, fakes.NewBlobStore(), eventbus.New(), versions, &countingThumbnails{}, 3)
	sess, _ := twoPageSession()
	sess.Failed["home"] = true
	sess.DraftHTML["about"] = aboutHTML

	m.RetryPage(context.Background(), sess, "home")

	if len(sess.Failed) != 0 {
		t.Fatalf("expected home recovered, got failed=%v", sess.Failed)
	}
	if len(versions.created) != 1 {
		t.Fatalf("expected a version created after the clean retry, got %d", len(versions.created))
	}
}

func TestSessionStorePutGetRemove(t *testing.T) {
	store := NewSessionStore()
	sess, _ := twoPageSession()
	store.Put(sess)

	got, ok := store.Get(sess.ID)
	if !ok || got != sess {
		t.Fatal("expected to retrieve the stored session")
	}

	store.Remove(sess.ID)
	if _, ok := store.Get(sess.ID); ok {
		t.Fatal("expected session removed")
	}
}

func TestSessionStoreRetireIfCleanKeepsFailedSessions(t *testing.T) {
	store := NewSessionStore()
	sess, _ := twoPageSession()
	sess.Failed["home"] = true
	store.Put(sess)

	store.RetireIfClean(sess.ID)
	if _, ok := store.Get(sess.ID); !ok {
		t.Fatal("expected a session with a failed page to be retained")
	}

	delete(sess.Failed, "home")
	store.RetireIfClean(sess.ID)
	if _, ok := store.Get(sess.ID); ok {
		t.Fatal("expected a clean session to be retired")
	}
}
