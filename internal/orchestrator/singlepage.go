// Package orchestrator drives the single-page build state machine and the
// multi-page build session on top of it. Grounded on
// original_source/backend/app/services/build_runtime/orchestrator.py
// (BuildOrchestrator) and multi_task_orchestrator.py (MultiTaskOrchestrator).
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/antigravity-dev/webforge/internal/agentbridge"
	"github.com/antigravity-dev/webforge/internal/buildstate"
	"github.com/antigravity-dev/webforge/internal/eventbus"
	"github.com/antigravity-dev/webforge/internal/patch"
	"github.com/antigravity-dev/webforge/internal/ports"
	"github.com/antigravity-dev/webforge/internal/task"
	"github.com/antigravity-dev/webforge/internal/validator"
)

// Mode selects which single step of the state machine Step advances.
type Mode string

const (
	ModeAuto          Mode = "auto"
	ModePlanOnly      Mode = "plan_only"
	ModeImplementOnly Mode = "implement_only"
	ModeVerifyOnly    Mode = "verify_only"
)

// Single is the single-page build's deterministic state machine, one step
// per call. Grounded on orchestrator.py's BuildOrchestrator.
type Single struct {
	Store       *buildstate.Store
	Bridge      *agentbridge.Bridge
	ProjectRoot string
	CheckConfig patch.CheckConfig
	Bus         *eventbus.Bus

	Planner     agentbridge.Agent
	Implementer agentbridge.Agent
	Reviewer    agentbridge.Agent

	Snapshot *patch.SnapshotTools
}

// NewSingle builds a Single orchestrator with the three default agents.
func NewSingle(store *buildstate.Store, bridge *agentbridge.Bridge, projectRoot string, checkCfg patch.CheckConfig, bus *eventbus.Bus) *Single {
	return &Single{
		Store:       store,
		Bridge:      bridge,
		ProjectRoot: projectRoot,
		CheckConfig: checkCfg,
		Bus:         bus,
		Planner:     agentbridge.PlannerAgent{},
		Implementer: agentbridge.ImplementerAgent{},
		Reviewer:    agentbridge.ReviewerAgent{},
	}
}

func (s *Single) emit(buildID string, ev eventbus.Event) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(buildID, ev)
}

func (s *Single) appendHistory(state *buildstate.BuildState, action, note string) {
	state.History = append(state.History, buildstate.HistoryEntry{
		At:     time.Now(),
		Phase:  state.Phase,
		TaskID: state.CurrentTaskID,
		Note:   fmt.Sprintf("%s: %s", action, note),
	})
}

// Start creates a fresh BuildState in the planning phase from the
// interview's brief/build_plan/product_doc triple and persists it. Per
// spec.md §6, a missing product_doc is a hard error at this handoff.
func (s *Single) Start(ctx context.Context, interview ports.InterviewArtifact) (*buildstate.BuildState, error) {
	if interview.ProductDoc.Overview == "" && len(interview.ProductDoc.Sections) == 0 {
		return nil, fmt.Errorf("orchestrator: missing product_doc for build interview")
	}
	state := &buildstate.BuildState{
		BuildID:   uuid.NewString(),
		Phase:     buildstate.PhasePlanning,
		Interview: interview,
	}
	s.appendHistory(state, "build_started", state.BuildID)
	if err := s.Store.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Abort transitions buildID's state to aborted, regardless of phase.
func (s *Single) Abort(ctx context.Context, buildID string) (*buildstate.BuildState, error) {
	state, err := s.Store.Load(ctx, buildID)
	if err != nil {
		return nil, fmt.Errorf("build %s not found: %w", buildID, err)
	}
	state.Phase = buildstate.PhaseAborted
	now := time.Now()
	state.CompletedAt = &now
	s.appendHistory(state, "build_aborted", "")
	if err := s.Store.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Step advances buildID's state machine by exactly one step.
func (s *Single) Step(ctx context.Context, buildID, userMessage string, mode Mode) (*buildstate.BuildState, error) {
	state, err := s.Store.Load(ctx, buildID)
	if err != nil {
		return nil, fmt.Errorf("build %s not found: %w", buildID, err)
	}
	if state.Phase.Terminal() {
		return state, nil
	}

	switch mode {
	case ModePlanOnly:
		return s.planStep(ctx, state)
	case ModeImplementOnly:
		return s.implementStep(ctx, state, userMessage)
	case ModeVerifyOnly:
		return s.verifyStep(ctx, state)
	default:
		return s.autoStep(ctx, state, userMessage)
	}
}

func (s *Single) autoStep(ctx context.Context, state *buildstate.BuildState, userMessage string) (*buildstate.BuildState, error) {
	switch state.Phase {
	case buildstate.PhasePlanning:
		return s.planStep(ctx, state)
	case buildstate.PhaseImplementing:
		return s.implementStep(ctx, state, userMessage)
	case buildstate.PhaseVerifying:
		return s.verifyStep(ctx, state)
	case buildstate.PhaseReviewing:
		return s.reviewStep(ctx, state)
	case buildstate.PhaseIterating:
		return s.iterateStep(ctx, state, userMessage)
	default:
		return state, nil
	}
}

func (s *Single) planStep(ctx context.Context, state *buildstate.BuildState) (*buildstate.BuildState, error) {
	if len(state.Graph.Tasks) == 0 {
		s.emit(state.BuildID, eventbus.AgentThinking(state.BuildID, "", "PlannerAgent: analyzing requirements"))
		res, err := s.Bridge.Run(ctx, s.Planner, map[string]any{
			"brief":       state.Interview.Brief,
			"build_plan":  state.Interview.BuildPlan,
			"product_doc": state.Interview.ProductDoc,
		})
		if err != nil {
			state.Phase = buildstate.PhaseError
			s.appendHistory(state, "planner_failed", err.Error())
			return state, s.Store.Save(ctx, state)
		}
		var graph task.Graph
		if err := unmarshalInto(res.Output, &graph); err != nil {
			state.Phase = buildstate.PhaseError
			s.appendHistory(state, "planner_failed", err.Error())
			return state, s.Store.Save(ctx, state)
		}
		state.Graph = graph
		s.appendHistory(state, "build_graph_created", fmt.Sprintf("%d tasks", len(graph.Tasks)))
		s.emit(state.BuildID, eventbus.CardBuildPlan(state.BuildID, graph))
	}

	next := state.Graph.NextRunnable()
	if next != nil {
		state.CurrentTaskID = next.ID
		next.Status = task.StatusDoing
		state.Phase = buildstate.PhaseImplementing
		s.emit(state.BuildID, eventbus.TaskStarted(state.BuildID, next.ID))
		s.appendHistory(state, "task_selected", next.ID)
	} else {
		state.Phase = buildstate.PhaseReady
		now := time.Now()
		state.CompletedAt = &now
		s.emit(state.BuildID, eventbus.BuildComplete(state.BuildID, "ready"))
		s.appendHistory(state, "no_more_tasks", "")
	}

	return state, s.Store.Save(ctx, state)
}

func (s *Single) currentTask(state *buildstate.BuildState) *task.Task {
	if state.CurrentTaskID == "" {
		return nil
	}
	return state.Graph.Find(state.CurrentTaskID)
}

func (s *Single) relevantFiles(t *task.Task) map[string]string {
	files := map[string]string{}
	paths := t.FilesExpected
	if len(paths) > 5 {
		paths = paths[:5]
	}
	for _, p := range paths {
		full := filepath.Join(s.ProjectRoot, p)
		content, err := os.ReadFile(full)
		if err != nil {
			files[p] = ""
			continue
		}
		files[p] = string(content)
	}
	return files
}

func (s *Single) implementStep(ctx context.Context, state *buildstate.BuildState, userMessage string) (*buildstate.BuildState, error) {
	t := s.currentTask(state)
	if t == nil {
		state.Phase = buildstate.PhaseReady
		now := time.Now()
		state.CompletedAt = &now
		return state, s.Store.Save(ctx, state)
	}

	feedbackCtx := map[string]any{}
	if userMessage != "" {
		feedbackCtx["reviewer_feedback"] = userMessage
	}

	s.emit(state.BuildID, eventbus.AgentThinking(state.BuildID, t.ID, fmt.Sprintf("ImplementerAgent: %s", t.Title)))
	res, err := s.Bridge.Run(ctx, s.Implementer, map[string]any{
		"task":           t,
		"state":          state,
		"relevant_files": s.relevantFiles(t),
		"context":        feedbackCtx,
		"acceptance":     t.Acceptance,
	})
	if err != nil {
		s.emit(state.BuildID, eventbus.TaskFailed(state.BuildID, t.ID, err.Error()))
		t.Status = task.StatusBlocked
		state.Phase = buildstate.PhaseError
		now := time.Now()
		state.CompletedAt = &now
		s.appendHistory(state, "implementer_failed", err.Error())
		return state, s.Store.Save(ctx, state)
	}

	var ps buildstate.PatchSet
	if err := unmarshalInto(res.Output, &ps); err != nil {
		s.emit(state.BuildID, eventbus.TaskFailed(state.BuildID, t.ID, err.Error()))
		t.Status = task.StatusBlocked
		state.Phase = buildstate.PhaseError
		now := time.Now()
		state.CompletedAt = &now
		s.appendHistory(state, "implementer_failed", err.Error())
		return state, s.Store.Save(ctx, state)
	}
	ps.TaskID = t.ID
	state.LastPatch = &ps
	s.appendHistory(state, "patch_generated", fmt.Sprintf("task=%s files=%v", t.ID, ps.TouchedFiles))

	applyResult := patch.ApplyPatch(s.ProjectRoot, ps.Diff)
	if applyResult.Applied {
		s.appendHistory(state, "patch_applied", fmt.Sprintf("%v", applyResult.Touched))
		if s.Snapshot != nil {
			_, _ = s.Snapshot.Create(ctx, fmt.Sprintf("After task %s: %s", t.ID, t.Title), map[string]any{"patch_id": ps.ID})
		}
		state.Phase = buildstate.PhaseVerifying
	} else {
		// spec.md §7: a structural patch-application failure transitions
		// Phase -> error and the task -> blocked unconditionally, unlike
		// the source's softer append-to-history-only behavior.
		t.Status = task.StatusBlocked
		state.Phase = buildstate.PhaseError
		now := time.Now()
		state.CompletedAt = &now
		s.appendHistory(state, "patch_failed", fmt.Sprintf("%v", applyResult.Errors))
	}

	return state, s.Store.Save(ctx, state)
}

// verifyStep runs the Validator against every HTML/JS file the last patch
// touched, and CheckTools.All, concurrently.
func (s *Single) verifyStep(ctx context.Context, state *buildstate.BuildState) (*buildstate.BuildState, error) {
	type validated struct {
		report buildstate.ValidationReport
	}
	validationCh := make(chan validated, 1)
	go func() {
		validationCh <- validated{report: s.validateTouchedFiles(state)}
	}()

	ct := patch.NewCheckTools(s.ProjectRoot, s.CheckConfig)
	checkReport := ct.All(ctx)

	v := <-validationCh
	state.Validation = &v.report
	s.appendHistory(state, "validation_complete", fmt.Sprintf("ok=%v errors=%d", v.report.OK, len(v.report.Errors)))
	if !v.report.OK {
		s.emit(state.BuildID, eventbus.CardValidation(state.BuildID, "", 0, v.report.ErrorDetails))
	}

	state.Check = &buildstate.CheckReport{
		OK: checkReport.OK,
		Results: map[string]buildstate.CheckResult{
			"typecheck": {OK: checkReport.TypecheckOK},
			"lint":      {OK: checkReport.LintOK},
			"unit":      {OK: checkReport.UnitOK},
		},
	}
	s.appendHistory(state, "checks_complete", fmt.Sprintf("ok=%v", checkReport.OK))

	state.Phase = buildstate.PhaseReviewing
	return state, s.Store.Save(ctx, state)
}

func (s *Single) validateTouchedFiles(state *buildstate.BuildState) buildstate.ValidationReport {
	if state.LastPatch == nil || len(state.LastPatch.TouchedFiles) == 0 {
		return buildstate.ValidationReport{OK: true, JSValid: true}
	}

	var errs, warnings []string
	var details []validator.Detail
	jsValid := true
	var normalized *string

	for _, path := range state.LastPatch.TouchedFiles {
		content, err := os.ReadFile(filepath.Join(s.ProjectRoot, path))
		if err != nil {
			continue
		}
		switch {
		case strings.HasSuffix(path, ".html"):
			res := validator.ValidateHTML(string(content), path)
			errs = append(errs, res.Errors...)
			warnings = append(warnings, res.Warnings...)
			details = append(details, res.ErrorDetails...)
			if normalized == nil {
				normalized = &res.NormalizedHTML
			}
		case strings.HasSuffix(path, ".js"):
			res := validator.ValidateJS(string(content), path)
			errs = append(errs, res.Errors...)
			details = append(details, res.ErrorDetails...)
			jsValid = jsValid && res.OK
		}
	}

	return buildstate.ValidationReport{
		OK:             len(errs) == 0,
		Errors:         errs,
		Warnings:       warnings,
		ErrorDetails:   details,
		NormalizedHTML: normalized,
		JSValid:        jsValid,
	}
}

func (s *Single) reviewStep(ctx context.Context, state *buildstate.BuildState) (*buildstate.BuildState, error) {
	t := s.currentTask(state)
	if t == nil {
		state.Phase = buildstate.PhaseReady
		now := time.Now()
		state.CompletedAt = &now
		return state, s.Store.Save(ctx, state)
	}

	s.emit(state.BuildID, eventbus.AgentThinking(state.BuildID, t.ID, "ReviewerAgent: reviewing changes"))
	res, err := s.Bridge.Run(ctx, s.Reviewer, map[string]any{
		"task":              t,
		"patchset":          state.LastPatch,
		"validation_report": state.Validation,
		"check_report":      state.Check,
	})

	var review buildstate.ReviewReport
	if err != nil {
		review = buildstate.ReviewReport{
			Decision:      buildstate.ReviewRequestChanges,
			Reasons:       []string{fmt.Sprintf("reviewer error: %v", err)},
			RequiredFixes: []string{"retry review"},
		}
	} else if uErr := unmarshalInto(res.Output, &review); uErr != nil {
		review = buildstate.ReviewReport{
			Decision:      buildstate.ReviewRequestChanges,
			Reasons:       []string{fmt.Sprintf("reviewer output error: %v", uErr)},
			RequiredFixes: []string{"retry review"},
		}
	}
	state.Review = &review
	s.appendHistory(state, string(review.Decision), t.ID)

	if review.Decision == buildstate.ReviewApprove {
		t.Status = task.StatusDone
		s.emit(state.BuildID, eventbus.TaskDone(state.BuildID, t.ID))

		if state.Graph.AllDone() {
			state.Phase = buildstate.PhaseReady
			now := time.Now()
			state.CompletedAt = &now
			s.emit(state.BuildID, eventbus.BuildComplete(state.BuildID, "ready"))
			s.appendHistory(state, "build_complete", fmt.Sprintf("%d tasks", len(state.Graph.Tasks)))
		} else {
			state.CurrentTaskID = ""
			state.Phase = buildstate.PhasePlanning
		}
	} else {
		state.Phase = buildstate.PhaseIterating
	}

	return state, s.Store.Save(ctx, state)
}

func (s *Single) iterateStep(ctx context.Context, state *buildstate.BuildState, userMessage string) (*buildstate.BuildState, error) {
	var feedback []string
	if state.Review != nil {
		feedback = append(feedback, "Reviewer feedback:")
		for _, r := range state.Review.Reasons {
			feedback = append(feedback, "- "+r)
		}
		if len(state.Review.RequiredFixes) > 0 {
			feedback = append(feedback, "Required fixes:")
			for _, f := range state.Review.RequiredFixes {
				feedback = append(feedback, "- "+f)
			}
		}
	}
	if userMessage != "" {
		feedback = append(feedback, "\nUser message: "+userMessage)
	}

	s.appendHistory(state, "iteration_started", fmt.Sprintf("feedback_provided=%v", len(feedback) > 0))
	state.Phase = buildstate.PhaseImplementing
	if err := s.Store.Save(ctx, state); err != nil {
		return nil, err
	}
	return s.implementStep(ctx, state, strings.Join(feedback, "\n"))
}
