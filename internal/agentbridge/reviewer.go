package agentbridge

import (
	"encoding/json"
	"fmt"

	"github.com/antigravity-dev/webforge/internal/buildstate"
)

// ReviewerAgent reviews a patch against its task's acceptance criteria,
// validation, and check results. Grounded on agents.py's ReviewerAgent.
type ReviewerAgent struct{}

func (ReviewerAgent) Temperature() float64 { return 0.3 }

func (ReviewerAgent) SystemPrompt() string {
	return "You are the build runtime's Reviewer agent. Review the patch.\n\n" +
		"Output JSON:\n" +
		"{\n" +
		`  "decision": "approve" | "request_changes",` + "\n" +
		`  "reasons": [...],` + "\n" +
		`  "required_fixes": [...]` + "\n" +
		"}\n\n" +
		"APPROVE if: all acceptance criteria are met, validation passed, " +
		"checks passed, no security issues.\n" +
		"REQUEST_CHANGES otherwise. No fetch/XHR/storage/eval.\n\n" +
		"Output ONLY valid JSON."
}

func (ReviewerAgent) BuildUserMessage(inputs map[string]any) string {
	task, _ := json.MarshalIndent(inputs["task"], "", "  ")
	patchset, _ := json.MarshalIndent(inputs["patchset"], "", "  ")
	validation, _ := json.MarshalIndent(inputs["validation_report"], "", "  ")
	check, _ := json.MarshalIndent(inputs["check_report"], "", "  ")
	return fmt.Sprintf("# Task\n%s\n\n# Patch\n%s\n\n# Validation\n%s\n\n# Checks\n%s\n\nReview:",
		task, patchset, validation, check)
}

func (ReviewerAgent) Validate(raw []byte) (json.RawMessage, error) {
	var rr buildstate.ReviewReport
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("reviewer output does not match ReviewReport: %w", err)
	}
	if rr.Decision != buildstate.ReviewApprove && rr.Decision != buildstate.ReviewRequestChanges {
		return nil, fmt.Errorf("reviewer output has invalid decision: %q", rr.Decision)
	}
	return json.Marshal(rr)
}
