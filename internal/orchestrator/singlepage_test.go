package orchestrator

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/antigravity-dev/webforge/internal/agentbridge"
	"github.com/antigravity-dev/webforge/internal/buildstate"
	"github.com/antigravity-dev/webforge/internal/eventbus"
	"github.com/antigravity-dev/webforge/internal/patch"
	"github.com/antigravity-dev/webforge/internal/ports"
	"github.com/antigravity-dev/webforge/internal/ports/fakes"
	"github.com/antigravity-dev/webforge/internal/task"
)

func newSingleTestStore(t *testing.T) *buildstate.Store {
	t.Helper()
	store, err := buildstate.Open(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleInterview() ports.InterviewArtifact {
	return ports.InterviewArtifact{
		Brief:     "a one-page portfolio site",
		BuildPlan: []string{"hero section", "contact footer"},
		ProductDoc: ports.InterviewProductDoc{
			Overview: "A single-page portfolio",
			Sections: []ports.InterviewPageSection{
				{Name: "Hero", Description: "Bold intro", Priority: "high"},
			},
			DesignRequirements: ports.InterviewDesignRequirements{Style: "modern"},
		},
	}
}

func TestSingleStartRejectsMissingProductDoc(t *testing.T) {
	s := NewSingle(newSingleTestStore(t), nil, t.TempDir(), patch.CheckConfig{}, nil)
	if _, err := s.Start(context.Background(), ports.InterviewArtifact{}); err == nil {
		t.Fatal("expected an error for a missing product_doc")
	}
}

func TestSingleStartPersistsInterviewAndPlanningPhase(t *testing.T) {
	s := NewSingle(newSingleTestStore(t), nil, t.TempDir(), patch.CheckConfig{}, nil)
	interview := sampleInterview()

	state, err := s.Start(context.Background(), interview)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if state.Phase != buildstate.PhasePlanning {
		t.Fatalf("expected planning phase, got %s", state.Phase)
	}
	if state.Interview.Brief != interview.Brief {
		t.Fatalf("expected interview carried onto state, got %+v", state.Interview)
	}

	loaded, err := s.Store.Load(context.Background(), state.BuildID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Interview.ProductDoc.Overview != interview.ProductDoc.Overview {
		t.Fatalf("expected persisted interview, got %+v", loaded.Interview)
	}
}

func plannerResponse(t *testing.T, tasks ...task.Task) ports.ChatResponse {
	t.Helper()
	b, err := json.Marshal(task.Graph{Tasks: tasks})
	if err != nil {
		t.Fatalf("marshal graph: %v", err)
	}
	return ports.ChatResponse{Content: string(b)}
}

func implementerResponse(t *testing.T, ps buildstate.PatchSet) ports.ChatResponse {
	t.Helper()
	b, err := json.Marshal(ps)
	if err != nil {
		t.Fatalf("marshal patchset: %v", err)
	}
	return ports.ChatResponse{Content: string(b)}
}

func reviewerResponse(t *testing.T, rr buildstate.ReviewReport) ports.ChatResponse {
	t.Helper()
	b, err := json.Marshal(rr)
	if err != nil {
		t.Fatalf("marshal review: %v", err)
	}
	return ports.ChatResponse{Content: string(b)}
}

func TestSinglePlanStepCreatesGraphAndEmitsCardBuildPlan(t *testing.T) {
	transport := fakes.NewTransport(plannerResponse(t, task.Task{
		ID: "task_001", Title: "Hero", Status: task.StatusTodo,
	}))
	bridge := agentbridge.NewBridge(transport, "demo-model", 0, 3)
	bus := eventbus.New()
	s := NewSingle(newSingleTestStore(t), bridge, t.TempDir(), patch.CheckConfig{}, bus)

	state, err := s.Start(context.Background(), sampleInterview())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ch, unsub := bus.Subscribe(state.BuildID)
	defer unsub()

	state, err = s.Step(context.Background(), state.BuildID, "", ModePlanOnly)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(state.Graph.Tasks) != 1 {
		t.Fatalf("expected one planned task, got %d", len(state.Graph.Tasks))
	}
	if state.Phase != buildstate.PhaseImplementing {
		t.Fatalf("expected implementing phase, got %s", state.Phase)
	}

	var sawBuildPlan, sawTaskStarted bool
	for i := 0; i < 2; i++ {
		select {
		case ev := <-ch:
			switch ev.Kind {
			case eventbus.KindCardBuildPlan:
				sawBuildPlan = true
			case eventbus.KindTaskStarted:
				sawTaskStarted = true
			}
		default:
		}
	}
	if !sawBuildPlan {
		t.Fatal("expected a card_build_plan event when a fresh BuildGraph is created")
	}
	if !sawTaskStarted {
		t.Fatal("expected a task_started event for the selected task")
	}
}

func TestSingleAutoStepDrivesHappyPathToReady(t *testing.T) {
	root := t.TempDir()
	transport := fakes.NewTransport(
		plannerResponse(t, task.Task{
			ID: "task_001", Title: "Hero", Status: task.StatusTodo,
			FilesExpected: []string{"index.html"},
		}),
		implementerResponse(t, buildstate.PatchSet{
			ID: "ps_001", TaskID: "task_001",
			Diff: "diff --git a/index.html b/index.html\n" +
				"--- /dev/null\n" +
				"+++ b/index.html\n" +
				"@@ -0,0 +1,1 @@\n" +
				"+<h1>Hero</h1>\n",
			TouchedFiles: []string{"index.html"},
		}),
		reviewerResponse(t, buildstate.ReviewReport{Decision: buildstate.ReviewApprove}),
	)
	bridge := agentbridge.NewBridge(transport, "demo-model", 0, 3)
	bus := eventbus.New()
	s := NewSingle(newSingleTestStore(t), bridge, root, patch.CheckConfig{}, bus)

	state, err := s.Start(context.Background(), sampleInterview())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 10 && !state.Phase.Terminal(); i++ {
		state, err = s.Step(context.Background(), state.BuildID, "", ModeAuto)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if state.Phase != buildstate.PhaseReady {
		t.Fatalf("expected ready phase, got %s (history: %+v)", state.Phase, state.History)
	}
	if state.Check == nil || !state.Check.OK {
		t.Fatalf("expected checks to pass (empty CheckConfig skips all), got %+v", state.Check)
	}
}

func TestSingleAbortTransitionsToTerminal(t *testing.T) {
	s := NewSingle(newSingleTestStore(t), nil, t.TempDir(), patch.CheckConfig{}, nil)
	state, err := s.Start(context.Background(), sampleInterview())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	aborted, err := s.Abort(context.Background(), state.BuildID)
	if err != nil {
		t.Fatalf("abort: %v", err)
	}
	if aborted.Phase != buildstate.PhaseAborted {
		t.Fatalf("expected aborted phase, got %s", aborted.Phase)
	}
	if aborted.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}

	again, err := s.Step(context.Background(), state.BuildID, "", ModeAuto)
	if err != nil {
		t.Fatalf("step after abort: %v", err)
	}
	if again.Phase != buildstate.PhaseAborted {
		t.Fatalf("expected step on a terminal build to be a no-op, got %s", again.Phase)
	}
}
