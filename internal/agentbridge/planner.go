package agentbridge

import (
	"encoding/json"
	"fmt"

	"github.com/antigravity-dev/webforge/internal/task"
)

// PlannerAgent produces a BuildGraph from a build brief. System prompt
// generalized from agents.py's PlannerAgent, carried forward from the
// Chinese-app-specific "Zaoya" wording to the website-build domain terms
// spec.md already uses (mobile-first, Tailwind-class styling, no
// fetch/XHR/storage/eval).
type PlannerAgent struct{}

func (PlannerAgent) Temperature() float64 { return 0.3 }

func (PlannerAgent) SystemPrompt() string {
	return "You are the build runtime's Planner agent. Create a BuildGraph from the brief.\n\n" +
		"Output JSON:\n" +
		"{\n" +
		`  "tasks": [{"id": "task_001", "title": "...", "goal": "...", ` +
		`"acceptance": [...], "depends_on": [], "files_expected": [...], ` +
		`"status": "todo"}]` + "\n" +
		"}\n\n" +
		"Rules: at most 15 tasks, at most 5 files per task, clear acceptance " +
		"criteria, mobile-first responsive layout with Tailwind-style utility " +
		"classes, no fetch/XHR/storage/eval in generated JS.\n\n" +
		"Output ONLY valid JSON."
}

func (PlannerAgent) BuildUserMessage(inputs map[string]any) string {
	brief, _ := json.MarshalIndent(inputs["brief"], "", "  ")
	buildPlan, _ := json.MarshalIndent(inputs["build_plan"], "", "  ")
	productDoc, _ := json.MarshalIndent(inputs["product_doc"], "", "  ")
	return fmt.Sprintf("# Brief\n%s\n\n# Build Plan\n%s\n\n# Product Doc\n%s\n\nCreate BuildGraph:",
		brief, buildPlan, productDoc)
}

func (PlannerAgent) Validate(raw []byte) (json.RawMessage, error) {
	var graph task.Graph
	if err := json.Unmarshal(raw, &graph); err != nil {
		return nil, fmt.Errorf("planner output does not match BuildGraph: %w", err)
	}
	if len(graph.Tasks) > 15 {
		return nil, fmt.Errorf("planner output exceeds 15-task limit: got %d", len(graph.Tasks))
	}
	for _, t := range graph.Tasks {
		if len(t.FilesExpected) > 5 {
			return nil, fmt.Errorf("task %s exceeds 5-file limit: got %d", t.ID, len(t.FilesExpected))
		}
	}
	out, err := json.Marshal(graph)
	if err != nil {
		return nil, err
	}
	return out, nil
}
