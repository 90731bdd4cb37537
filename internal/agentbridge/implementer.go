package agentbridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antigravity-dev/webforge/internal/buildstate"
)

// ImplementerAgent turns one task into a PatchSet (a unified diff).
// Grounded on agents.py's ImplementerAgent; temperature 0.2 is carried
// over from the source's lower-temperature override for code generation.
type ImplementerAgent struct{}

func (ImplementerAgent) Temperature() float64 { return 0.2 }

func (ImplementerAgent) SystemPrompt() string {
	return "You are the build runtime's Implementer agent. Generate a unified diff.\n\n" +
		"Output JSON:\n" +
		"{\n" +
		`  "id": "ps_001", "task_id": "task_001", "diff": "...", ` +
		`"touched_files": [...], "notes": "..."` + "\n" +
		"}\n\n" +
		"Rules: output ONLY valid JSON, proper unified diff format, at most 5 " +
		"touched files, mobile-first responsive layout with Tailwind-style " +
		"utility classes, no fetch/XHR/storage/eval in generated JS."
}

func (ImplementerAgent) BuildUserMessage(inputs map[string]any) string {
	task, _ := json.MarshalIndent(inputs["task"], "", "  ")
	var msg strings.Builder
	fmt.Fprintf(&msg, "# Task\n%s\n\n# Acceptance\n", task)

	acceptance, _ := inputs["acceptance"].([]string)
	if len(acceptance) == 0 {
		msg.WriteString("- None")
	} else {
		for _, item := range acceptance {
			fmt.Fprintf(&msg, "- %s\n", item)
		}
	}

	if state, ok := inputs["state"]; ok && state != nil {
		b, _ := json.MarshalIndent(state, "", "  ")
		fmt.Fprintf(&msg, "\n\n# Build State\n%s", b)
	}
	if context, ok := inputs["context"]; ok && context != nil {
		b, _ := json.MarshalIndent(context, "", "  ")
		fmt.Fprintf(&msg, "\n\n# Context\n%s", b)
	}

	if files, ok := inputs["relevant_files"].(map[string]string); ok {
		for path, content := range files {
			snippet := content
			if len(snippet) > 500 {
				snippet = snippet[:500]
			}
			fmt.Fprintf(&msg, "\n\n## %s\n```\n%s\n```\n", path, snippet)
		}
	}

	return msg.String()
}

func (ImplementerAgent) Validate(raw []byte) (json.RawMessage, error) {
	var ps buildstate.PatchSet
	if err := json.Unmarshal(raw, &ps); err != nil {
		return nil, fmt.Errorf("implementer output does not match PatchSet: %w", err)
	}
	if len(ps.TouchedFiles) > 5 {
		return nil, fmt.Errorf("patch touches more than 5 files: got %d", len(ps.TouchedFiles))
	}
	return json.Marshal(ps)
}
