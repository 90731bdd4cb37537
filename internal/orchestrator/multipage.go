package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/antigravity-dev/webforge/internal/buildstate"
	"github.com/antigravity-dev/webforge/internal/eventbus"
	"github.com/antigravity-dev/webforge/internal/ports"
	"github.com/antigravity-dev/webforge/internal/validator"
)

// PlanStatus is one BuildPlan micro/project task's status.
type PlanStatus string

const (
	PlanTodo      PlanStatus = "todo"
	PlanRunning   PlanStatus = "running"
	PlanDone      PlanStatus = "done"
	PlanFailed    PlanStatus = "failed"
	PlanSkipped   PlanStatus = "skipped"
	PlanCancelled PlanStatus = "cancelled"
)

// PlanTask is one row of a BuildPlan: a UI-facing mirror of task progress,
// distinct from task.Graph's scheduling DAG used by the single-page build.
type PlanTask struct {
	ID     string     `json:"id"`
	Status PlanStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// BuildPlan previews a multi-page build: six fixed micro-tasks per page
// (page-*, style-*, validate-*, secure-*, save-*, thumb-*) plus four
// project-level tasks. Grounded on multi_task_orchestrator.py's
// create_build_plan/_mark_plan_task(s).
type BuildPlan struct {
	Tasks  []PlanTask `json:"tasks"`
	Status PlanStatus `json:"status"`
}

var pageTaskSuffixes = []string{"page", "style", "validate", "secure", "save", "thumb"}

func pageTaskKeys(pageID string) []string {
	keys := make([]string, len(pageTaskSuffixes))
	for i, suffix := range pageTaskSuffixes {
		keys[i] = fmt.Sprintf("%s-%s", suffix, pageID)
	}
	return keys
}

// NewBuildPlan expands pages into the fixed micro-task set plus the four
// project-level tasks; project-plan and project-doc start done since the
// caller has already produced the BuildSession and product doc by the time
// a plan exists.
func NewBuildPlan(pages []buildstate.PageSpec) *BuildPlan {
	plan := &BuildPlan{Status: PlanRunning}
	plan.Tasks = append(plan.Tasks,
		PlanTask{ID: "project-plan", Status: PlanDone},
		PlanTask{ID: "project-doc", Status: PlanDone},
	)
	for _, p := range pages {
		for _, key := range pageTaskKeys(p.ID) {
			plan.Tasks = append(plan.Tasks, PlanTask{ID: key, Status: PlanTodo})
		}
	}
	plan.Tasks = append(plan.Tasks,
		PlanTask{ID: "project-links", Status: PlanTodo},
		PlanTask{ID: "project-final", Status: PlanTodo},
	)
	return plan
}

func (p *BuildPlan) find(id string) *PlanTask {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// mark sets id's status (and optional error), reporting whether id existed.
func (p *BuildPlan) mark(id string, status PlanStatus, errMsg string) bool {
	t := p.find(id)
	if t == nil {
		return false
	}
	t.Status = status
	t.Error = errMsg
	return true
}

func (p *BuildPlan) markMany(ids []string, status PlanStatus, errMsg string) {
	for _, id := range ids {
		p.mark(id, status, errMsg)
	}
}

// Session pairs a BuildSession with the BuildPlan that mirrors its progress
// for the UI, and the product doc the pages are generated against. Owned by
// the multi-page orchestrator's caller (internal/orchestrator's session
// store keys sessions by session id).
type Session struct {
	*buildstate.BuildSession
	Plan       *BuildPlan
	ProductDoc ProductDoc
}

// ProductDoc is the subset of the interview artifact _build_page_prompt
// reads. Concrete product-doc shapes upstream of this package marshal into
// this structure.
type ProductDoc struct {
	Overview           string
	Sections           []PageSection
	DesignRequirements DesignRequirements
}

// PageSection is one content-structure section from the product doc.
type PageSection struct {
	Name        string
	Description string
	Priority    string
}

// DesignRequirements mirrors the product doc's design_requirements map.
type DesignRequirements struct {
	Style      string
	Colors     []string
	Typography string
	Mood       string
}

// NewSession builds a fresh multi-page Session: a BuildSession plus its
// mirrored BuildPlan.
func NewSession(id, projectID, userID string, pages []buildstate.PageSpec, productDoc ProductDoc) *Session {
	return &Session{
		BuildSession: buildstate.NewBuildSession(id, projectID, userID, pages, ""),
		Plan:         NewBuildPlan(pages),
		ProductDoc:   productDoc,
	}
}

// VersionRecorder is the seam into the version store: a successful build
// captures a Version, a failed one records a VersionAttempt. Satisfied by
// internal/versionstore.Store.
type VersionRecorder interface {
	CreateVersion(ctx context.Context, projectID string, tasksCompleted []string) (string, error)
	RecordFailedAttempt(ctx context.Context, projectID string, diagnostics []string) error
}

// ThumbnailEnqueuer is the seam into the thumbnail job queue. Satisfied by
// internal/thumbnail.Queue.
type ThumbnailEnqueuer interface {
	EnqueueThumbnail(ctx context.Context, projectID, pageID string) error
}

// PageGenerator is the seam a multi-page build calls once per page to get
// back raw HTML/optional-JS model output. Satisfied by an
// internal/agentbridge-backed adapter in production, or a fake in tests.
type PageGenerator interface {
	GeneratePage(ctx context.Context, prompt string) (string, error)
}

// Multi is the multi-page build orchestrator: it sequences per-page
// generation, enforces the cross-page link invariant, and records versions.
// Grounded on multi_task_orchestrator.py's MultiTaskOrchestrator, with all
// SQLAlchemy/BuildPlan-DB-row/Chinese-substring-matching apparatus dropped
// per spec.md §4.5's own English task-key naming.
type Multi struct {
	Generator      PageGenerator
	Blobs          ports.BlobStore
	Bus            *eventbus.Bus
	Versions       VersionRecorder
	Thumbnails     ThumbnailEnqueuer
	MaxPageRetries int
}

const defaultMaxPageRetries = 3

// NewMulti builds a Multi orchestrator. maxPageRetries <= 0 defaults to 3.
func NewMulti(gen PageGenerator, blobs ports.BlobStore, bus *eventbus.Bus, versions VersionRecorder, thumbs ThumbnailEnqueuer, maxPageRetries int) *Multi {
	if maxPageRetries <= 0 {
		maxPageRetries = defaultMaxPageRetries
	}
	return &Multi{Generator: gen, Blobs: blobs, Bus: bus, Versions: versions, Thumbnails: thumbs, MaxPageRetries: maxPageRetries}
}

func (m *Multi) emit(sessionID string, ev eventbus.Event) {
	if m.Bus == nil {
		return
	}
	m.Bus.Publish(sessionID, ev)
}

func (m *Multi) emitPlanUpdate(sess *Session) {
	m.emit(sess.ID, eventbus.PlanUpdate(sess.ID, sess.Plan))
}

// orderedPages returns sess.Pages with the main page (or path "/") first,
// preserving relative order otherwise.
func orderedPages(pages []buildstate.PageSpec) []buildstate.PageSpec {
	out := make([]buildstate.PageSpec, len(pages))
	copy(out, pages)
	sort.SliceStable(out, func(i, j int) bool {
		mainI := out[i].IsMain || out[i].Path == "/"
		mainJ := out[j].IsMain || out[j].Path == "/"
		return mainI && !mainJ
	})
	return out
}

// StreamProgress runs the full multi-page build: generate every page
// (main first), then — unless any page failed — the cross-page link
// validator, then records a Version or a failed VersionAttempt.
func (m *Multi) StreamProgress(ctx context.Context, sess *Session) {
	for _, page := range orderedPages(sess.Pages) {
		if sess.IsCancelled {
			m.emit(sess.ID, eventbus.BuildComplete(sess.ID, "Build cancelled"))
			sess.Plan.Status = PlanCancelled
			return
		}
		m.generatePage(ctx, sess, page)
	}

	if len(sess.Failed) > 0 {
		sess.Plan.markMany([]string{"project-links", "project-final"}, PlanSkipped, "")
		m.emitPlanUpdate(sess)
		m.recordFailure(ctx, sess)
		m.emit(sess.ID, eventbus.BuildComplete(sess.ID, fmt.Sprintf("Build completed with %d failed page(s)", len(sess.Failed))))
		return
	}

	m.finalizeLinksAndVersion(ctx, sess)
}

// finalizeLinksAndVersion runs the cross-page link validator and, on
// success, creates a Version; on failure, records a failed VersionAttempt.
// Shared by StreamProgress's tail and a clean RetryPage.
func (m *Multi) finalizeLinksAndVersion(ctx context.Context, sess *Session) {
	ok, errs := validateCrossPageLinks(sess.DraftHTML, sess.Pages)
	if !ok {
		sess.FinalChecksFailed = true
		sess.Plan.mark("project-links", PlanFailed, fmt.Sprintf("%d link errors", len(errs)))
		sess.Plan.mark("project-final", PlanSkipped, "")
		m.emitPlanUpdate(sess)
		details := make([]validator.Detail, 0, len(errs))
		for _, e := range errs {
			details = append(details, buildLinkErrorDetail(e))
		}
		m.emit(sess.ID, eventbus.CardValidation(sess.ID, "", 0, details))
		m.recordFailure(ctx, sess)
		m.emit(sess.ID, eventbus.BuildComplete(sess.ID, "Build completed with validation errors"))
		return
	}

	sess.Plan.mark("project-links", PlanDone, "")
	sess.Plan.mark("project-final", PlanDone, "")
	m.emitPlanUpdate(sess)

	tasksCompleted := make([]string, 0, len(sess.Pages))
	for _, p := range sess.Pages {
		tasksCompleted = append(tasksCompleted, "Generated "+p.Name)
	}
	if m.Versions != nil {
		versionID, err := m.Versions.CreateVersion(ctx, sess.ProjectID, tasksCompleted)
		if err == nil {
			m.emit(sess.ID, eventbus.CardVersion(sess.ID, sess.ProjectID, map[string]string{"version_id": versionID}))
		}
	}
	m.emit(sess.ID, eventbus.BuildComplete(sess.ID, fmt.Sprintf("All %d pages generated", len(sess.Pages))))
}

func (m *Multi) recordFailure(ctx context.Context, sess *Session) {
	if m.Versions == nil {
		return
	}
	diagnostics := make([]string, 0, len(sess.LastErrors))
	for pageID, details := range sess.LastErrors {
		for _, d := range details {
			diagnostics = append(diagnostics, fmt.Sprintf("%s: %s", pageID, d.Message))
		}
	}
	_ = m.Versions.RecordFailedAttempt(ctx, sess.ProjectID, diagnostics)
}

// generatePage runs one page through prompt->generate->extract->validate->
// persist->enqueue-thumbnail. Any failing step marks the page failed,
// skips its remaining micro-tasks, and returns without touching the
// session's cancel/link-validation logic (the caller decides what happens
// next).
func (m *Multi) generatePage(ctx context.Context, sess *Session, page buildstate.PageSpec) {
	generateKey := "page-" + page.ID
	m.emit(sess.ID, eventbus.TaskStarted(sess.ID, generateKey))
	sess.Plan.mark(generateKey, PlanRunning, "")
	m.emitPlanUpdate(sess)

	prompt := buildPagePrompt(page, sess.ProductDoc, sess.BuildSession)
	response, err := m.Generator.GeneratePage(ctx, prompt)
	if err != nil {
		m.failPage(sess, page, generateKey, "generation failed: "+err.Error(), pageTaskKeys(page.ID)[1:])
		return
	}

	html, js := extractHTMLJS(response)
	if html == "" {
		m.failPage(sess, page, generateKey, page.Name+" generation empty", pageTaskKeys(page.ID)[1:])
		return
	}

	m.emit(sess.ID, eventbus.TaskDone(sess.ID, generateKey))
	sess.Plan.mark(generateKey, PlanDone, "")

	// style-<id> is a no-op placeholder reserved for future design-system
	// transforms (spec.md §4.5 step 1c / Open Question (c)).
	styleKey := "style-" + page.ID
	m.emit(sess.ID, eventbus.TaskStarted(sess.ID, styleKey))
	sess.Plan.mark(styleKey, PlanRunning, "")
	styledHTML := html
	m.emit(sess.ID, eventbus.TaskDone(sess.ID, styleKey))
	sess.Plan.mark(styleKey, PlanDone, "")
	m.emitPlanUpdate(sess)

	validateKey := "validate-" + page.ID
	m.emit(sess.ID, eventbus.TaskStarted(sess.ID, validateKey))
	sess.Plan.mark(validateKey, PlanRunning, "")
	m.emitPlanUpdate(sess)

	slug := slugify(page.Name)
	htmlPath := fmt.Sprintf("pages/%s.html", slug)
	jsPath := fmt.Sprintf("pages/%s.js", slug)

	htmlResult := validator.ValidateHTML(styledHTML, htmlPath)
	if !htmlResult.OK {
		sess.LastErrors[page.ID] = htmlResult.ErrorDetails
		m.emit(sess.ID, eventbus.CardValidation(sess.ID, page.ID, sess.RetryCounts[page.ID], htmlResult.ErrorDetails))
		m.failPage(sess, page, validateKey, page.Name+" validation failed", []string{"secure-" + page.ID, "save-" + page.ID, "thumb-" + page.ID})
		return
	}
	sanitizedHTML := htmlResult.NormalizedHTML

	m.emit(sess.ID, eventbus.TaskDone(sess.ID, validateKey))
	sess.Plan.mark(validateKey, PlanDone, "")

	secureKey := "secure-" + page.ID
	m.emit(sess.ID, eventbus.TaskStarted(sess.ID, secureKey))
	sess.Plan.mark(secureKey, PlanRunning, "")
	m.emitPlanUpdate(sess)

	if js != "" {
		jsResult := validator.ValidateJS(js, jsPath)
		if !jsResult.OK {
			sess.LastErrors[page.ID] = jsResult.ErrorDetails
			m.emit(sess.ID, eventbus.CardValidation(sess.ID, page.ID, sess.RetryCounts[page.ID], jsResult.ErrorDetails))
			m.failPage(sess, page, secureKey, page.Name+" security check failed", []string{"save-" + page.ID, "thumb-" + page.ID})
			return
		}
	}
	m.emit(sess.ID, eventbus.TaskDone(sess.ID, secureKey))
	sess.Plan.mark(secureKey, PlanDone, "")

	saveKey := "save-" + page.ID
	m.emit(sess.ID, eventbus.TaskStarted(sess.ID, saveKey))
	sess.Plan.mark(saveKey, PlanRunning, "")
	m.emitPlanUpdate(sess)

	if m.Blobs != nil {
		if err := m.Blobs.Put(ctx, htmlPath, []byte(sanitizedHTML), "text/html"); err != nil {
			m.failPage(sess, page, saveKey, page.Name+" save failed: "+err.Error(), []string{"thumb-" + page.ID})
			return
		}
		if js != "" {
			_ = m.Blobs.Put(ctx, jsPath, []byte(js), "application/javascript")
		}
	}
	m.emit(sess.ID, eventbus.TaskDone(sess.ID, saveKey))
	sess.Plan.mark(saveKey, PlanDone, "")

	thumbKey := "thumb-" + page.ID
	m.emit(sess.ID, eventbus.TaskStarted(sess.ID, thumbKey))
	sess.Plan.mark(thumbKey, PlanRunning, "")
	m.emitPlanUpdate(sess)

	if m.Thumbnails != nil {
		if err := m.Thumbnails.EnqueueThumbnail(ctx, sess.ProjectID, page.ID); err != nil {
			// Thumbnail failures downgrade the micro-task to skipped but do
			// not fail the page (spec.md §4.5 step 1f).
			m.emit(sess.ID, eventbus.TaskDone(sess.ID, thumbKey))
			sess.Plan.mark(thumbKey, PlanSkipped, err.Error())
		} else {
			m.emit(sess.ID, eventbus.TaskDone(sess.ID, thumbKey))
			sess.Plan.mark(thumbKey, PlanDone, "")
		}
	} else {
		sess.Plan.mark(thumbKey, PlanSkipped, "no thumbnail queue configured")
	}
	m.emitPlanUpdate(sess)

	sess.Completed[page.ID] = true
	sess.DraftHTML[page.ID] = sanitizedHTML
	sess.DraftJS[page.ID] = js
	delete(sess.LastErrors, page.ID)

	m.emit(sess.ID, eventbus.CardPage(sess.ID, page.ID))
	m.emit(sess.ID, eventbus.PreviewUpdate(sess.ID, page.ID, nil))
}

func (m *Multi) failPage(sess *Session, page buildstate.PageSpec, key, message string, skipKeys []string) {
	m.emit(sess.ID, eventbus.TaskFailed(sess.ID, key, message))
	sess.Plan.mark(key, PlanFailed, message)
	if len(skipKeys) > 0 {
		sess.Plan.markMany(skipKeys, PlanSkipped, "upstream step failed")
	}
	m.emitPlanUpdate(sess)
	sess.Failed[page.ID] = true
}

// RetryPage re-runs steps 1a-1f for one page. Cap is MaxPageRetries; the
// retry beyond the cap is a no-op task_failed (spec.md §4.5's "Retry one
// page").
func (m *Multi) RetryPage(ctx context.Context, sess *Session, pageID string) {
	var page *buildstate.PageSpec
	for i := range sess.Pages {
		if sess.Pages[i].ID == pageID {
			page = &sess.Pages[i]
			break
		}
	}
	if page == nil {
		m.emit(sess.ID, eventbus.TaskFailed(sess.ID, "retry", "Page not found"))
		return
	}

	sess.RetryCounts[pageID]++
	if sess.RetryCounts[pageID] > m.MaxPageRetries {
		m.emit(sess.ID, eventbus.TaskFailed(sess.ID, "page-"+pageID, fmt.Sprintf("Retry limit reached (%d)", m.MaxPageRetries)))
		return
	}

	delete(sess.Failed, pageID)
	m.generatePage(ctx, sess, *page)

	if len(sess.Failed) == 0 {
		m.finalizeLinksAndVersion(ctx, sess)
	} else {
		m.recordFailure(ctx, sess)
	}
}

// CancelBuild sets the session's cancel flag; StreamProgress halts at the
// next page boundary.
func (m *Multi) CancelBuild(sess *Session) {
	sess.IsCancelled = true
}
