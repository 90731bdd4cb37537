package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/antigravity-dev/webforge/internal/agentbridge"
	"github.com/antigravity-dev/webforge/internal/buildstate"
	"github.com/antigravity-dev/webforge/internal/eventbus"
	"github.com/antigravity-dev/webforge/internal/orchestrator"
	"github.com/antigravity-dev/webforge/internal/patch"
	"github.com/antigravity-dev/webforge/internal/ports"
	"github.com/antigravity-dev/webforge/internal/ports/fakes"
	"github.com/antigravity-dev/webforge/internal/task"
)

func singlePageInterview() ports.InterviewArtifact {
	return ports.InterviewArtifact{
		Brief:     "a one-page portfolio site for a freelance illustrator",
		BuildPlan: []string{"hero section with name and tagline", "contact footer"},
		ProductDoc: ports.InterviewProductDoc{
			Overview: "A single-page portfolio site",
			Sections: []ports.InterviewPageSection{
				{Name: "Hero", Description: "Name, tagline, and call to action", Priority: "high"},
			},
			DesignRequirements: ports.InterviewDesignRequirements{Style: "minimal", Mood: "calm"},
		},
	}
}

// scriptedSingleTransport queues exactly the three LLM responses one
// Planner -> Implementer -> Reviewer pass through orchestrator.Single
// consumes, in call order.
func scriptedSingleTransport() *fakes.Transport {
	graph, _ := json.Marshal(task.Graph{Tasks: []task.Task{
		{ID: "task_001", Title: "Hero section", Status: task.StatusTodo, FilesExpected: []string{"index.html"}},
	}})
	patchSet, _ := json.Marshal(buildstate.PatchSet{
		ID:     "ps_001",
		TaskID: "task_001",
		Diff: "diff --git a/index.html b/index.html\n" +
			"--- /dev/null\n" +
			"+++ b/index.html\n" +
			"@@ -0,0 +1,1 @@\n" +
			"+<h1>Hero</h1>\n",
		TouchedFiles: []string{"index.html"},
	})
	review, _ := json.Marshal(buildstate.ReviewReport{Decision: buildstate.ReviewApprove})
	return fakes.NewTransport(
		ports.ChatResponse{Content: string(graph)},
		ports.ChatResponse{Content: string(patchSet)},
		ports.ChatResponse{Content: string(review)},
	)
}

func drainEvents(events <-chan eventbus.Event) {
	for {
		select {
		case ev := <-events:
			if err := eventbus.WriteSSE(os.Stdout, ev); err != nil {
				return
			}
		default:
			return
		}
	}
}

// runSinglePageDemo drives orchestrator.Single through one build to
// completion against scripted Planner/Implementer/Reviewer responses,
// the single-page counterpart to main's Multi-driven demo.
func runSinglePageDemo(ctx context.Context, logger *slog.Logger, stateDir string) error {
	store, err := buildstate.Open(ctx, filepath.Join(stateDir, "singlebuild.db"))
	if err != nil {
		return fmt.Errorf("open single-page build store: %w", err)
	}
	defer store.Close()

	projectRoot, err := os.MkdirTemp("", "buildrtdemo-single-")
	if err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	defer os.RemoveAll(projectRoot)

	bridge := agentbridge.NewBridge(scriptedSingleTransport(), "demo-model", 0, 3)
	bus := eventbus.New()
	single := orchestrator.NewSingle(store, bridge, projectRoot, patch.CheckConfig{}, bus)

	state, err := single.Start(ctx, singlePageInterview())
	if err != nil {
		return fmt.Errorf("start single-page build: %w", err)
	}
	events, unsubscribe := bus.Subscribe(state.BuildID)
	defer unsubscribe()

	fmt.Printf("\nsingle-page demo: build %s started\n", state.BuildID)
	for i := 0; i < 10 && !state.Phase.Terminal(); i++ {
		state, err = single.Step(ctx, state.BuildID, "", orchestrator.ModeAuto)
		if err != nil {
			return fmt.Errorf("step single-page build: %w", err)
		}
		drainEvents(events)
	}
	fmt.Printf("single-page demo: build %s finished in phase %s\n", state.BuildID, state.Phase)
	return nil
}
