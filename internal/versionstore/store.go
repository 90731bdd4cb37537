// Package versionstore: SQLite-backed persistence. Grounded on
// buildstate.Store's single-JSON-blob-per-row pattern (itself generalized
// from the teacher's multi-table SQLite schema), applied here across five
// tables — branches, versions, version_snapshots, version_diffs,
// version_attempts — matching SPEC_FULL.md §6's named relational tables
// while keeping each row's nested data (page lists, change summaries) as
// an opaque JSON column, since none of that nesting has a natural
// relational decomposition spec.md requires.
package versionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	// FullSnapshotWindow is how many of a branch's most recent non-failed
	// versions keep an inline snapshot regardless of pin state. Ported
	// from version_service.py's FULL_SNAPSHOT_WINDOW.
	FullSnapshotWindow = 3
	// MaxPinnedVersions caps how many versions per project can be pinned
	// at once. Ported from version_service.py's MAX_PINNED_VERSIONS.
	MaxPinnedVersions = 3
	// MaxBranchesPerProject caps how many branches a project may have.
	// Ported from project_versions.py's MAX_BRANCHES_PER_PROJECT.
	MaxBranchesPerProject = 3
)

var (
	errPatchFailed     = errors.New("versionstore: patch failed to apply")
	errPinLimit        = fmt.Errorf("versionstore: at most %d versions may be pinned per project", MaxPinnedVersions)
	errBranchLimit     = fmt.Errorf("versionstore: at most %d branches per project", MaxBranchesPerProject)
	errBranchNameTaken = errors.New("versionstore: a branch with that name already exists")
)

// Store persists branches, versions, snapshots, diffs and failed attempts
// in SQLite.
//
// PruneLimit bounds how many non-failed, non-pinned versions a branch may
// retain before the oldest are pruned (version_service.py's
// _prune_versions_to_limit, called with a per-subscription-tier limit
// from SubscriptionService.get_version_quota). This repo has no
// subscription/billing concept anywhere in scope, so PruneLimit is a
// plain configured int rather than a quota lookup; -1 means unlimited,
// matching the source's own sentinel for "no cap enforced".
type Store struct {
	db         *sql.DB
	PruneLimit int
}

// Open opens (creating if absent) a SQLite-backed Store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("versionstore: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("versionstore: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, PruneLimit: -1}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS branches (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			data       BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS version_snapshots (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			data       BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS versions (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			branch_id  TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			is_pinned  INTEGER NOT NULL DEFAULT 0,
			data       BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS version_diffs (
			id              TEXT PRIMARY KEY,
			project_id      TEXT NOT NULL,
			version_id      TEXT NOT NULL UNIQUE,
			base_version_id TEXT NOT NULL,
			diff_text       TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS version_attempts (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			branch_id  TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			data       BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_versions_branch ON versions(branch_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("versionstore: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- branches ---------------------------------------------------------

// EnsureDefaultBranch returns projectID's default branch, creating a
// "main" branch if none exists yet. Grounded on
// VersionService._ensure_default_branch.
func (s *Store) EnsureDefaultBranch(ctx context.Context, projectID string) (*Branch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM branches WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var b Branch
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		if b.IsDefault {
			return &b, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	b := &Branch{ID: uuid.NewString(), ProjectID: projectID, Name: "main", Label: "Main", IsDefault: true}
	if err := s.saveBranch(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) saveBranch(ctx context.Context, b *Branch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO branches (id, project_id, name, data) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET data = excluded.data
`, b.ID, b.ProjectID, b.Name, data)
	return err
}

// GetBranch returns the branch with the given id.
func (s *Store) GetBranch(ctx context.Context, branchID string) (*Branch, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM branches WHERE id = ?`, branchID).Scan(&data)
	if err != nil {
		return nil, err
	}
	var b Branch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) branchCount(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM branches WHERE project_id = ?`, projectID).Scan(&n)
	return n, err
}

func (s *Store) branchNameTaken(ctx context.Context, projectID, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM branches WHERE project_id = ? AND name = ?`, projectID, name,
	).Scan(&n)
	return n > 0, err
}

// CreateBranch clones fromVersion's snapshot into a new branch named
// name, up to MaxBranchesPerProject per project, and records an initial
// version on it. Grounded on project_versions.py's
// create_branch_from_version — the clone-pages-into-a-new-branch step has
// no service-layer counterpart in the source (it lives directly in the
// route handler), ported here as a Store method since this repo has no
// separate API-route layer for it to live in.
func (s *Store) CreateBranch(ctx context.Context, projectID, name, label, fromVersionID string) (*Branch, *Version, error) {
	count, err := s.branchCount(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if count >= MaxBranchesPerProject {
		return nil, nil, errBranchLimit
	}
	taken, err := s.branchNameTaken(ctx, projectID, name)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		return nil, nil, errBranchNameTaken
	}

	source, err := s.Get(ctx, fromVersionID)
	if err != nil {
		return nil, nil, fmt.Errorf("versionstore: source version: %w", err)
	}
	snapshot, err := s.GetSnapshot(ctx, fromVersionID)
	if err != nil {
		return nil, nil, fmt.Errorf("versionstore: source snapshot: %w", err)
	}

	branch := &Branch{
		ID:                   uuid.NewString(),
		ProjectID:            projectID,
		Name:                 name,
		Label:                label,
		ParentBranchID:       source.BranchID,
		CreatedFromVersionID: fromVersionID,
	}
	if err := s.saveBranch(ctx, branch); err != nil {
		return nil, nil, err
	}

	pages := make([]PageRecord, len(snapshot.Pages))
	copy(pages, snapshot.Pages)
	if len(pages) > 0 {
		hasHome := false
		for _, p := range pages {
			if p.IsHome {
				hasHome = true
				break
			}
		}
		if !hasHome {
			pages[0].IsHome = true
		}
	}

	version, err := s.CreateVersion(ctx, projectID, branch.ID, pages,
		[]string{"Branched from " + fromVersionID}, fmt.Sprintf("Branched from %s", fromVersionID))
	if err != nil {
		return nil, nil, err
	}
	version.ParentVersionID = fromVersionID
	return branch, version, nil
}

// --- versions -----------------------------------------------------------

func fileMapFromSnapshot(snap Snapshot) map[string]string {
	files := map[string]string{}
	for _, p := range snap.Pages {
		slug := p.Slug
		if slug == "" {
			slug = slugify(p.Name)
		}
		files["pages/"+slug+".html"] = p.HTML
		if p.JS != "" {
			files["pages/"+slug+".js"] = p.JS
		}
	}
	return files
}

func calculateChangeSummary(prev, curr map[string]string, tasksCompleted []string, description string) ChangeSummary {
	paths := map[string]bool{}
	for p := range prev {
		paths[p] = true
	}
	for p := range curr {
		paths[p] = true
	}

	summary := ChangeSummary{TasksCompleted: tasksCompleted, Description: description}
	for path := range paths {
		before, after := prev[path], curr[path]
		if before == after {
			continue
		}
		summary.FilesChanged++
		added, deleted := countLineChanges(before, after)
		summary.LinesAdded += added
		summary.LinesDeleted += deleted
	}
	return summary
}

// latestVersion returns branchID's most recent version, excluding failed
// ones unless includeFailed is set. Grounded on
// VersionService._get_latest_version.
func (s *Store) latestVersion(ctx context.Context, branchID string, includeFailed bool) (*Version, error) {
	query := `SELECT data FROM versions WHERE branch_id = ?`
	args := []any{branchID}
	if !includeFailed {
		query += ` AND json_extract(data, '$.validation_status') != 'failed'`
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) saveVersion(ctx context.Context, v *Version) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO versions (id, project_id, branch_id, created_at, is_pinned, data)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	is_pinned = excluded.is_pinned,
	data = excluded.data
`, v.ID, v.ProjectID, v.BranchID, v.CreatedAt, v.IsPinned, data)
	return err
}

func (s *Store) saveSnapshot(ctx context.Context, projectID string, snap Snapshot) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO version_snapshots (id, project_id, data) VALUES (?, ?, ?)`, id, projectID, data)
	if err != nil {
		return "", err
	}
	return id, nil
}

// CreateVersion snapshots pages onto branchID, computing a change summary
// against the branch's current latest version, then enforces the
// snapshot-window invariant and prunes old versions beyond PruneLimit.
// Grounded on VersionService.create_version_from_project.
func (s *Store) CreateVersion(ctx context.Context, projectID, branchID string, pages []PageRecord, tasksCompleted []string, description string) (*Version, error) {
	snapshot := Snapshot{CapturedAt: time.Now(), Pages: pages}

	parent, err := s.latestVersion(ctx, branchID, false)
	if err != nil {
		return nil, err
	}
	prevFiles := map[string]string{}
	var parentID string
	if parent != nil {
		parentID = parent.ID
		parentSnap, err := s.GetSnapshot(ctx, parent.ID)
		if err != nil {
			return nil, fmt.Errorf("versionstore: parent snapshot: %w", err)
		}
		prevFiles = fileMapFromSnapshot(parentSnap)
	}
	summary := calculateChangeSummary(prevFiles, fileMapFromSnapshot(snapshot), tasksCompleted, description)

	snapshotID, err := s.saveSnapshot(ctx, projectID, snapshot)
	if err != nil {
		return nil, err
	}

	v := &Version{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		BranchID:         branchID,
		ParentVersionID:  parentID,
		SnapshotID:       snapshotID,
		ChangeSummary:    summary,
		ValidationStatus: "passed",
		CreatedAt:        time.Now(),
	}
	if err := s.saveVersion(ctx, v); err != nil {
		return nil, err
	}

	if err := s.enforceSnapshotWindow(ctx, projectID, branchID); err != nil {
		return nil, err
	}
	if err := s.pruneVersionsToLimit(ctx, projectID, branchID); err != nil {
		return nil, err
	}
	return v, nil
}

// RecordFailedAttempt records a failed build's snapshot and diagnostics
// without creating a real version. Grounded on
// VersionService.record_failed_version.
func (s *Store) RecordFailedAttempt(ctx context.Context, projectID, branchID string, pages []PageRecord, diagnostics []string, errMessage string) (*VersionAttempt, error) {
	parent, err := s.latestVersion(ctx, branchID, false)
	if err != nil {
		return nil, err
	}
	var parentID string
	if parent != nil {
		parentID = parent.ID
	}

	attempt := &VersionAttempt{
		ID:              uuid.NewString(),
		ProjectID:       projectID,
		BranchID:        branchID,
		ParentVersionID: parentID,
		SnapshotData:    Snapshot{CapturedAt: time.Now(), Pages: pages},
		Diagnostics:     diagnostics,
		ErrorMessage:    errMessage,
		CreatedAt:       time.Now(),
	}
	data, err := json.Marshal(attempt)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO version_attempts (id, project_id, branch_id, created_at, data) VALUES (?, ?, ?, ?, ?)
`, attempt.ID, projectID, branchID, attempt.CreatedAt, data)
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// List returns branchID's versions ordered newest-first.
func (s *Store) List(ctx context.Context, branchID string, includeFailed bool) ([]Version, error) {
	query := `SELECT data FROM versions WHERE branch_id = ?`
	if !includeFailed {
		query += ` AND json_extract(data, '$.validation_status') != 'failed'`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v Version
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Get returns the version with the given id.
func (s *Store) Get(ctx context.Context, versionID string) (*Version, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM versions WHERE id = ?`, versionID).Scan(&data)
	if err != nil {
		return nil, err
	}
	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) loadSnapshotRow(ctx context.Context, snapshotID string) (Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM version_snapshots WHERE id = ?`, snapshotID).Scan(&data)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) loadDiffRow(ctx context.Context, versionID string) (*VersionDiffRow, error) {
	var row VersionDiffRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, version_id, base_version_id, diff_text FROM version_diffs WHERE version_id = ?`,
		versionID,
	).Scan(&row.ID, &row.ProjectID, &row.VersionID, &row.BaseVersionID, &row.DiffText)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// VersionDiffRow is the raw persisted form of a VersionDiff.
type VersionDiffRow struct {
	ID            string
	ProjectID     string
	VersionID     string
	BaseVersionID string
	DiffText      string
}

func snapshotToText(snap Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetSnapshot reconstructs versionID's full page snapshot, either
// directly (if it holds an inline snapshot) or by applying its diff
// against its base version's (recursively reconstructed) snapshot.
// Grounded on VersionService._load_version_snapshot_data.
func (s *Store) GetSnapshot(ctx context.Context, versionID string) (Snapshot, error) {
	v, err := s.Get(ctx, versionID)
	if err != nil {
		return Snapshot{}, err
	}
	if v.SnapshotID != "" {
		return s.loadSnapshotRow(ctx, v.SnapshotID)
	}

	diff, err := s.loadDiffRow(ctx, versionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("versionstore: version %s has neither snapshot nor diff: %w", versionID, err)
	}
	baseSnap, err := s.GetSnapshot(ctx, diff.BaseVersionID)
	if err != nil {
		return Snapshot{}, err
	}
	baseText, err := snapshotToText(baseSnap)
	if err != nil {
		return Snapshot{}, err
	}
	resultText, err := applyPatch(baseText, diff.DiffText)
	if err != nil {
		return Snapshot{}, fmt.Errorf("versionstore: apply diff for %s: %w", versionID, err)
	}
	var result Snapshot
	if err := json.Unmarshal([]byte(resultText), &result); err != nil {
		return Snapshot{}, fmt.Errorf("versionstore: decode reconstructed snapshot for %s: %w", versionID, err)
	}
	return result, nil
}

// --- snapshot window & pruning ------------------------------------------

// enforceSnapshotWindow keeps an inline snapshot on the FullSnapshotWindow
// most recent non-failed versions plus every pinned version; every other
// version on the branch is converted to a diff against the nearest
// newer-or-equal kept version (falling back to the oldest kept version).
// Grounded on VersionService._enforce_snapshot_window.
func (s *Store) enforceSnapshotWindow(ctx context.Context, projectID, branchID string) error {
	all, err := s.List(ctx, branchID, false)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}

	keep := map[string]bool{}
	for i, v := range all {
		if i < FullSnapshotWindow {
			keep[v.ID] = true
		}
		if v.IsPinned {
			keep[v.ID] = true
		}
	}

	for _, v := range all {
		if keep[v.ID] {
			if v.SnapshotID == "" {
				if err := s.materializeSnapshot(ctx, projectID, &v); err != nil {
					return err
				}
			}
			continue
		}
		if v.SnapshotID == "" {
			continue // already diff-only
		}
		if err := s.convertToDiff(ctx, projectID, all, v); err != nil {
			return err
		}
	}
	return nil
}

// materializeSnapshot gives v an inline snapshot, reconstructing it from
// its diff chain first if needed, and removes any stale diff row.
func (s *Store) materializeSnapshot(ctx context.Context, projectID string, v *Version) error {
	snap, err := s.GetSnapshot(ctx, v.ID)
	if err != nil {
		return err
	}
	snapshotID, err := s.saveSnapshot(ctx, projectID, snap)
	if err != nil {
		return err
	}
	v.SnapshotID = snapshotID
	if err := s.saveVersion(ctx, v); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM version_diffs WHERE version_id = ?`, v.ID)
	return err
}

// convertToDiff replaces v's inline snapshot with a diff against the
// nearest kept anchor newer-or-equal to v (oldest kept version as
// fallback), per version_service.py's anchor-selection rule.
func (s *Store) convertToDiff(ctx context.Context, projectID string, all []Version, v Version) error {
	var anchor *Version
	// all is ordered newest-first; walk from the oldest kept version
	// forward to find the nearest one with created_at >= v.created_at.
	for i := len(all) - 1; i >= 0; i-- {
		candidate := all[i]
		if candidate.ID == v.ID || candidate.SnapshotID == "" {
			continue
		}
		if !candidate.CreatedAt.Before(v.CreatedAt) {
			anchor = &candidate
			break
		}
	}
	if anchor == nil {
		for i := len(all) - 1; i >= 0; i-- {
			if all[i].SnapshotID != "" && all[i].ID != v.ID {
				a := all[i]
				anchor = &a
				break
			}
		}
	}
	if anchor == nil {
		return nil // no other snapshot exists to diff against yet
	}

	anchorSnap, err := s.loadSnapshotRow(ctx, anchor.SnapshotID)
	if err != nil {
		return err
	}
	vSnap, err := s.loadSnapshotRow(ctx, v.SnapshotID)
	if err != nil {
		return err
	}
	anchorText, err := snapshotToText(anchorSnap)
	if err != nil {
		return err
	}
	vText, err := snapshotToText(vSnap)
	if err != nil {
		return err
	}
	diffText := makePatch(anchorText, vText)

	_, err = s.db.ExecContext(ctx, `
INSERT INTO version_diffs (id, project_id, version_id, base_version_id, diff_text)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(version_id) DO UPDATE SET base_version_id = excluded.base_version_id, diff_text = excluded.diff_text
`, uuid.NewString(), projectID, v.ID, anchor.ID, diffText)
	if err != nil {
		return err
	}

	oldSnapshotID := v.SnapshotID
	v.SnapshotID = ""
	if err := s.saveVersion(ctx, &v); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM version_snapshots WHERE id = ?`, oldSnapshotID)
	return err
}

// pruneVersionsToLimit deletes the oldest non-pinned, non-referenced
// versions on a branch beyond PruneLimit. Grounded on
// VersionService._prune_versions_to_limit.
func (s *Store) pruneVersionsToLimit(ctx context.Context, projectID, branchID string) error {
	if s.PruneLimit < 0 {
		return nil
	}
	all, err := s.List(ctx, branchID, false)
	if err != nil {
		return err
	}
	if len(all) <= s.PruneLimit {
		return nil
	}

	referenced := map[string]bool{}
	rows, err := s.db.QueryContext(ctx, `SELECT base_version_id FROM version_diffs`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		referenced[id] = true
	}
	rows.Close()

	excess := len(all) - s.PruneLimit
	var pruned int
	for i := len(all) - 1; i >= 0 && pruned < excess; i-- {
		v := all[i]
		if v.IsPinned || referenced[v.ID] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, v.ID); err != nil {
			return err
		}
		if v.SnapshotID != "" {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM version_snapshots WHERE id = ?`, v.SnapshotID); err != nil {
				return err
			}
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM version_diffs WHERE version_id = ?`, v.ID); err != nil {
			return err
		}
		pruned++
	}

	return s.enforceSnapshotWindow(ctx, projectID, branchID)
}

// --- pinning, rollback, restore ------------------------------------------

// Pin sets or clears versionID's pinned flag, enforcing MaxPinnedVersions
// per project and re-running the snapshot-window invariant afterward.
// Grounded on VersionService.pin_version.
func (s *Store) Pin(ctx context.Context, projectID, versionID string, pin bool) error {
	v, err := s.Get(ctx, versionID)
	if err != nil {
		return err
	}
	if pin && !v.IsPinned {
		var n int
		err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM versions WHERE project_id = ? AND is_pinned = 1
`, projectID).Scan(&n)
		if err != nil {
			return err
		}
		if n >= MaxPinnedVersions {
			return errPinLimit
		}
	}

	v.IsPinned = pin
	if err := s.saveVersion(ctx, v); err != nil {
		return err
	}
	return s.enforceSnapshotWindow(ctx, projectID, v.BranchID)
}

func mergePages(current []PageRecord, snapshotPages []PageRecord, pageIDs []string) []PageRecord {
	want := map[string]bool{}
	for _, id := range pageIDs {
		want[id] = true
	}
	byID := map[string]PageRecord{}
	for _, p := range snapshotPages {
		byID[p.ID] = p
	}

	out := make([]PageRecord, len(current))
	copy(out, current)
	for i, p := range out {
		if !want[p.ID] {
			continue
		}
		if restored, ok := byID[p.ID]; ok {
			out[i] = restored
		}
	}
	enforceSingleHome(out)
	return out
}

func enforceSingleHome(pages []PageRecord) {
	homeIdx := -1
	for i, p := range pages {
		if p.IsHome {
			if homeIdx == -1 {
				homeIdx = i
			} else {
				pages[i].IsHome = false
			}
		}
	}
}

// RollbackPages writes the selected pageIDs' content from versionID's
// snapshot back onto current, then records a new version. Grounded on
// VersionService.rollback_pages.
func (s *Store) RollbackPages(ctx context.Context, projectID, branchID, versionID string, pageIDs []string, current []PageRecord) ([]PageRecord, *Version, error) {
	snap, err := s.GetSnapshot(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	restored := mergePages(current, snap.Pages, pageIDs)
	v, err := s.CreateVersion(ctx, projectID, branchID, restored,
		[]string{fmt.Sprintf("Rollback %d page(s)", len(pageIDs))},
		fmt.Sprintf("Rollback from version %s", versionID))
	return restored, v, err
}

// RestoreVersion replaces every page on the branch with versionID's
// snapshot (adding pages that no longer exist) and records a new version.
// Grounded on VersionService.restore_version.
func (s *Store) RestoreVersion(ctx context.Context, projectID, branchID, versionID string) ([]PageRecord, *Version, error) {
	snap, err := s.GetSnapshot(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	restored := make([]PageRecord, len(snap.Pages))
	copy(restored, snap.Pages)
	enforceSingleHome(restored)

	v, err := s.CreateVersion(ctx, projectID, branchID, restored,
		[]string{"Restore version"},
		fmt.Sprintf("Restored version %s", versionID))
	return restored, v, err
}
