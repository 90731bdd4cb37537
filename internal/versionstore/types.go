// Package versionstore implements the version history system described in
// spec.md §4.7: periodic full snapshots of a project's pages, older
// versions converted to diffs against the nearest newer snapshot, pinning,
// rollback/restore, and per-project branches. Grounded on
// original_source/backend/app/services/version_service.py (VersionService)
// and original_source/backend/app/api/project_versions.py's
// create_branch_from_version endpoint (the branch-cloning operation has no
// service-layer home in the source; it lives directly in the route
// handler).
package versionstore

import "time"

// PageRecord is one page's content as captured in a snapshot. Grounded on
// version_service.py's _snapshot_from_pages/_file_map_from_snapshot shape.
type PageRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Path      string    `json:"path"`
	IsHome    bool      `json:"is_home"`
	HTML      string    `json:"html"`
	JS        string    `json:"js"`
	SortOrder int       `json:"sort_order"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is a full capture of every page on a branch at one point in
// time.
type Snapshot struct {
	CapturedAt time.Time    `json:"captured_at"`
	Pages      []PageRecord `json:"pages"`
}

// ChangeSummary is computed by diffing a version's snapshot against its
// parent's. Grounded on _calculate_change_summary.
type ChangeSummary struct {
	FilesChanged   int      `json:"files_changed"`
	LinesAdded     int      `json:"lines_added"`
	LinesDeleted   int      `json:"lines_deleted"`
	TasksCompleted []string `json:"tasks_completed"`
	Description    string   `json:"description"`
}

// Version is one point in a branch's history. Either SnapshotID is set
// (this version holds a full inline snapshot) or a VersionDiff row
// referencing BaseVersionID exists (this version is diff-only).
type Version struct {
	ID               string        `json:"id"`
	ProjectID        string        `json:"project_id"`
	BranchID         string        `json:"branch_id"`
	BranchLabel      string        `json:"branch_label"`
	ParentVersionID  string        `json:"parent_version_id,omitempty"`
	SnapshotID       string        `json:"snapshot_id,omitempty"`
	ChangeSummary    ChangeSummary `json:"change_summary"`
	ValidationStatus string        `json:"validation_status"`
	IsPinned         bool          `json:"is_pinned"`
	CreatedAt        time.Time     `json:"created_at"`
}

// VersionAttempt records a failed build's snapshot and diagnostics without
// occupying a version slot. Grounded on version_attempt.py /
// record_failed_version.
type VersionAttempt struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	BranchID        string    `json:"branch_id"`
	ParentVersionID string    `json:"parent_version_id,omitempty"`
	SnapshotData    Snapshot  `json:"snapshot_data"`
	Diagnostics     []string  `json:"diagnostics"`
	ErrorMessage    string    `json:"error_message"`
	CreatedAt       time.Time `json:"created_at"`
}

// Branch is one named line of version history for a project. Grounded on
// project_versions.py's Branch model and create_branch_from_version.
type Branch struct {
	ID                   string `json:"id"`
	ProjectID            string `json:"project_id"`
	Name                 string `json:"name"`
	Label                string `json:"label"`
	ParentBranchID       string `json:"parent_branch_id,omitempty"`
	CreatedFromVersionID string `json:"created_from_version_id,omitempty"`
	IsDefault            bool   `json:"is_default"`
}
