// Package eventbus ports events.py's BuildEvent/BuildEventType tagged
// union and the SSE multiplexer that fans events out to build/session
// subscribers. Grounded on events.py (the event shapes and factory
// functions) and, for the bounded non-blocking channel pattern, on the
// teacher's general channel/select idiom — no direct pub/sub precedent
// exists in the teacher, so the channel mechanics follow the same
// buffered-channel-plus-select-drop shape the teacher uses for its own
// fan-out points.
package eventbus

import (
	"time"

	"github.com/antigravity-dev/webforge/internal/buildstate"
)

// Kind is one event's taxonomy tag, mirroring events.py's BuildEventType.
type Kind string

const (
	KindTaskStarted    Kind = "task_started"
	KindTaskDone       Kind = "task_done"
	KindTaskFailed     Kind = "task_failed"
	KindAgentThinking  Kind = "agent_thinking"
	KindToolCall       Kind = "tool_call"
	KindBuildComplete  Kind = "build_complete"
	KindCardPage       Kind = "card_page"
	KindCardValidation Kind = "card_validation"
	KindCardBuildPlan  Kind = "card_build_plan"
	KindCardVersion    Kind = "card_version"
	KindPlanUpdate     Kind = "plan_update"
	KindPreviewUpdate  Kind = "preview_update"
)

// Event is the tagged union every event kind is carried in. Fields beyond
// the common envelope are populated per-kind; zero value means "not set
// for this kind", matching events.py's single dataclass-with-optionals
// shape.
type Event struct {
	Kind      Kind      `json:"kind"`
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id,omitempty"`
	ProjectID string    `json:"project_id,omitempty"`
	BuildID   string    `json:"build_id,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Status    string    `json:"status,omitempty"`

	// Validator-flavoured cards additionally carry these.
	PageID     string                             `json:"page_id,omitempty"`
	RetryCount int                                `json:"retry_count,omitempty"`
	Errors     []buildstate.ValidationErrorDetail `json:"errors,omitempty"`

	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func newEvent(kind Kind) Event {
	return Event{Kind: kind, At: time.Now()}
}

// TaskStarted mirrors BuildEvent.task_started.
func TaskStarted(buildID, taskID string) Event {
	e := newEvent(KindTaskStarted)
	e.BuildID, e.TaskID = buildID, taskID
	return e
}

// TaskDone mirrors BuildEvent.task_done.
func TaskDone(buildID, taskID string) Event {
	e := newEvent(KindTaskDone)
	e.BuildID, e.TaskID = buildID, taskID
	return e
}

// TaskFailed mirrors BuildEvent.task_failed.
func TaskFailed(buildID, taskID, message string) Event {
	e := newEvent(KindTaskFailed)
	e.BuildID, e.TaskID, e.Message = buildID, taskID, message
	return e
}

// AgentThinking mirrors BuildEvent.agent_thinking.
func AgentThinking(buildID, taskID, message string) Event {
	e := newEvent(KindAgentThinking)
	e.BuildID, e.TaskID, e.Message = buildID, taskID, message
	return e
}

// ToolCall mirrors BuildEvent.tool_call.
func ToolCall(buildID, taskID, message string) Event {
	e := newEvent(KindToolCall)
	e.BuildID, e.TaskID, e.Message = buildID, taskID, message
	return e
}

// BuildComplete mirrors BuildEvent.build_complete.
func BuildComplete(buildID, status string) Event {
	e := newEvent(KindBuildComplete)
	e.BuildID, e.Status = buildID, status
	return e
}

// CardBuildPlan announces a freshly planned BuildGraph, mirroring
// spec.md §4.4 phase 1's "emit a build_plan card" step.
func CardBuildPlan(buildID string, payload any) Event {
	e := newEvent(KindCardBuildPlan)
	e.BuildID, e.Payload = buildID, payload
	return e
}

// CardValidation mirrors the validation card, carrying the page's
// diagnostics and current retry count.
func CardValidation(sessionID, pageID string, retryCount int, errs []buildstate.ValidationErrorDetail) Event {
	e := newEvent(KindCardValidation)
	e.SessionID, e.PageID, e.RetryCount, e.Errors = sessionID, pageID, retryCount, errs
	return e
}

// CardPage announces a completed page.
func CardPage(sessionID, pageID string) Event {
	e := newEvent(KindCardPage)
	e.SessionID, e.PageID = sessionID, pageID
	return e
}

// CardVersion announces a newly created version.
func CardVersion(sessionID, projectID string, payload any) Event {
	e := newEvent(KindCardVersion)
	e.SessionID, e.ProjectID, e.Payload = sessionID, projectID, payload
	return e
}

// PlanUpdate mirrors the plan_update event.
func PlanUpdate(sessionID string, payload any) Event {
	e := newEvent(KindPlanUpdate)
	e.SessionID, e.Payload = sessionID, payload
	return e
}

// PreviewUpdate mirrors the preview_update event.
func PreviewUpdate(sessionID, pageID string, payload any) Event {
	e := newEvent(KindPreviewUpdate)
	e.SessionID, e.PageID, e.Payload = sessionID, pageID, payload
	return e
}
