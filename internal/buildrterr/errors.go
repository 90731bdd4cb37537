// Package buildrterr defines the typed error kinds the build runtime
// surfaces at the edge of the core, per the error-handling policy table.
package buildrterr

import "fmt"

// ValidationFailed wraps a failed Validator pass (HTML/JS rule diagnostics).
type ValidationFailed struct {
	Errors []string
}

func (e *ValidationFailed) Error() string {
	return fmt.Sprintf("validation failed: %d error(s)", len(e.Errors))
}

// AgentParseFailed wraps an agent output that could not be repaired into
// valid JSON after the fixed three-step repair pipeline.
type AgentParseFailed struct {
	Agent string
	Cause error
}

func (e *AgentParseFailed) Error() string {
	return fmt.Sprintf("%s: agent output parse failed: %v", e.Agent, e.Cause)
}

func (e *AgentParseFailed) Unwrap() error { return e.Cause }

// Transport wraps an LLM transport error that survived all retries.
type Transport struct {
	Model string
	Cause error
}

func (e *Transport) Error() string {
	return fmt.Sprintf("llm transport error (model=%s): %v", e.Model, e.Cause)
}

func (e *Transport) Unwrap() error { return e.Cause }

// PatchApply wraps a structural failure applying a PatchSet's unified diff.
type PatchApply struct {
	TaskID string
	Cause  error
}

func (e *PatchApply) Error() string {
	return fmt.Sprintf("task %s: patch application failed: %v", e.TaskID, e.Cause)
}

func (e *PatchApply) Unwrap() error { return e.Cause }

// CrossPageLink wraps a cross-page link invariant violation.
type CrossPageLink struct {
	Missing []string
}

func (e *CrossPageLink) Error() string {
	return fmt.Sprintf("cross-page link check failed: %d missing link(s)", len(e.Missing))
}

// ThumbnailFailed wraps a thumbnail job's terminal failure after exhausting
// its retry budget.
type ThumbnailFailed struct {
	JobID string
	Cause error
}

func (e *ThumbnailFailed) Error() string {
	return fmt.Sprintf("thumbnail job %s exhausted retries: %v", e.JobID, e.Cause)
}

func (e *ThumbnailFailed) Unwrap() error { return e.Cause }

// VersionLimitExceeded wraps a pin-cap / branch-cap / subscription-limit
// rejection.
type VersionLimitExceeded struct {
	Kind  string // "pin", "branch", "version"
	Limit int
}

func (e *VersionLimitExceeded) Error() string {
	return fmt.Sprintf("%s limit of %d exceeded", e.Kind, e.Limit)
}

// NotFound wraps an edge-of-core not-found condition.
type NotFound struct {
	Kind string
	ID   string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Forbidden wraps an edge-of-core ownership/authorization mismatch.
type Forbidden struct {
	Kind string
	ID   string
}

func (e *Forbidden) Error() string {
	return fmt.Sprintf("%s %q not accessible", e.Kind, e.ID)
}
