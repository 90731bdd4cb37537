package agentbridge

import (
	"context"
	"testing"

	"github.com/antigravity-dev/webforge/internal/ports"
	"github.com/antigravity-dev/webforge/internal/ports/fakes"
)

func TestBridgeRunPlannerHappyPath(t *testing.T) {
	transport := fakes.NewTransport(ports.ChatResponse{
		Content: `{"tasks":[{"id":"task_001","title":"Hero","goal":"build hero","acceptance":["has heading"],"depends_on":[],"files_expected":["index.html"],"status":"todo"}]}`,
	})
	bridge := NewBridge(transport, "glm-4.7", 0, 3)

	res, err := bridge.Run(context.Background(), PlannerAgent{}, map[string]any{
		"brief":       map[string]string{"goal": "landing page"},
		"build_plan":  map[string]string{},
		"product_doc": map[string]string{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Output) == 0 {
		t.Fatal("expected non-empty output")
	}
}

func TestBridgeRunRetriesOnParseFailureThenSucceeds(t *testing.T) {
	transport := fakes.NewTransport(
		ports.ChatResponse{Content: "not json"},
		ports.ChatResponse{Content: `{"tasks":[]}`},
	)
	bridge := NewBridge(transport, "glm-4.7", 0, 3)

	res, err := bridge.Run(context.Background(), PlannerAgent{}, map[string]any{})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if len(transport.Calls) != 2 {
		t.Fatalf("expected 2 transport calls, got %d", len(transport.Calls))
	}
	_ = res
}

func TestBridgeRunFailsAfterMaxRetries(t *testing.T) {
	transport := fakes.NewTransport(
		ports.ChatResponse{Content: "not json"},
		ports.ChatResponse{Content: "still not json"},
		ports.ChatResponse{Content: "nope"},
	)
	bridge := NewBridge(transport, "glm-4.7", 0, 3)

	if _, err := bridge.Run(context.Background(), PlannerAgent{}, map[string]any{}); err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
}

func TestPlannerValidateRejectsTooManyTasks(t *testing.T) {
	tasks := make([]byte, 0)
	tasks = append(tasks, []byte(`{"tasks":[`)...)
	for i := 0; i < 16; i++ {
		if i > 0 {
			tasks = append(tasks, ',')
		}
		tasks = append(tasks, []byte(`{"id":"t","status":"todo"}`)...)
	}
	tasks = append(tasks, []byte(`]}`)...)

	if _, err := (PlannerAgent{}).Validate(tasks); err == nil {
		t.Fatal("expected rejection of a 16-task plan")
	}
}
