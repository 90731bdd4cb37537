// Package buildstate defines the single-page build's persisted state shape
// (BuildState, its Phase machine, and the artifacts attached at each phase)
// plus the multi-page BuildSession's in-memory shape. Grounded on
// original_source/backend/app/services/build_runtime/models.py's prose
// (the file itself was truncated in the retrieval pack to its import
// header; field shapes are recovered from spec.md §3 and from how
// orchestrator.py/multi_task_orchestrator.py construct and read these
// values).
package buildstate

import (
	"time"

	"github.com/antigravity-dev/webforge/internal/ports"
	"github.com/antigravity-dev/webforge/internal/task"
	"github.com/antigravity-dev/webforge/internal/validator"
)

// BuildPhase is one BuildState's lifecycle phase.
type BuildPhase string

const (
	PhasePlanning     BuildPhase = "planning"
	PhaseImplementing BuildPhase = "implementing"
	PhaseVerifying    BuildPhase = "verifying"
	PhaseReviewing    BuildPhase = "reviewing"
	PhaseIterating    BuildPhase = "iterating"
	PhaseReady        BuildPhase = "ready"
	PhaseError        BuildPhase = "error"
	PhaseAborted      BuildPhase = "aborted"
)

// Terminal reports whether p is one of the build's terminal phases.
func (p BuildPhase) Terminal() bool {
	return p == PhaseReady || p == PhaseError || p == PhaseAborted
}

// HistoryEntry is one appended record of a phase transition.
type HistoryEntry struct {
	At     time.Time
	Phase  BuildPhase
	TaskID string
	Note   string
}

// PatchSet is one Implementer output: a unified diff touching at most 5
// files for one task.
type PatchSet struct {
	ID           string   `json:"id"`
	TaskID       string   `json:"task_id"`
	Diff         string   `json:"diff"`
	TouchedFiles []string `json:"touched_files"`
	Notes        string   `json:"notes"`
}

// ValidationReport is the Validator's combined HTML+JS verdict for one
// task's patch.
type ValidationReport struct {
	OK             bool
	Errors         []string
	Warnings       []string
	ErrorDetails   []validator.Detail
	NormalizedHTML *string
	JSValid        bool
}

// CheckResult is one named check's (typecheck/lint/unit) outcome.
type CheckResult struct {
	OK      bool
	Output  string
	Skipped bool
}

// CheckReport folds all configured checks for one task's patch.
type CheckReport struct {
	OK      bool
	Results map[string]CheckResult
}

// ReviewDecision is the Reviewer agent's verdict.
type ReviewDecision string

const (
	ReviewApprove        ReviewDecision = "approve"
	ReviewRequestChanges ReviewDecision = "request_changes"
)

// ReviewReport is one Reviewer output.
type ReviewReport struct {
	Decision      ReviewDecision `json:"decision"`
	Reasons       []string       `json:"reasons"`
	RequiredFixes []string       `json:"required_fixes"`
}

// BuildState is the single durable row backing one build_id's single-page
// orchestration run.
type BuildState struct {
	BuildID         string
	Phase           BuildPhase
	Interview       ports.InterviewArtifact
	CurrentTaskID   string
	Graph           task.Graph
	History         []HistoryEntry
	CumulativeUsage map[string]ports.TokenUsage
	LastUsage       map[string]ports.TokenUsage
	LastPatch       *PatchSet
	Validation      *ValidationReport
	Check           *CheckReport
	Review          *ReviewReport
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// PageSpec is one page slot in a multi-page build, immutable for the life
// of a session.
type PageSpec struct {
	ID       string
	Name     string
	Path     string
	Sections []string
	IsMain   bool
}

// ValidationErrorDetail is an alias kept for spec parity; the concrete
// shape lives in internal/validator as Detail and is reused directly
// rather than duplicated.
type ValidationErrorDetail = validator.Detail

// BuildSession is one multi-page build's in-memory coordination state,
// owned by internal/orchestrator's session store.
type BuildSession struct {
	ID                string
	ProjectID         string
	UserID            string
	Pages             []PageSpec
	Completed         map[string]bool
	Failed            map[string]bool
	DraftHTML         map[string]string
	DraftJS           map[string]string
	RetryCounts       map[string]int
	LastErrors        map[string][]ValidationErrorDetail
	IsCancelled       bool
	FinalChecksFailed bool
	PlanID            string
}

// NewBuildSession returns a BuildSession with every map initialized, ready
// for use by the multi-page orchestrator.
func NewBuildSession(id, projectID, userID string, pages []PageSpec, planID string) *BuildSession {
	return &BuildSession{
		ID:          id,
		ProjectID:   projectID,
		UserID:      userID,
		Pages:       pages,
		PlanID:      planID,
		Completed:   map[string]bool{},
		Failed:      map[string]bool{},
		DraftHTML:   map[string]string{},
		DraftJS:     map[string]string{},
		RetryCounts: map[string]int{},
		LastErrors:  map[string][]ValidationErrorDetail{},
	}
}
