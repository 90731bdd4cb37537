package versionstore

import (
	"context"
	"strings"
)

// Recorder adapts a Store to internal/orchestrator.VersionRecorder's
// narrower interface (CreateVersion/RecordFailedAttempt keyed only by
// project id and a task list), which has no notion of branches or page
// content. Pages supplies the live page set for a project at call time —
// orchestrator keeps that state in its own Session.DraftHTML/DraftJS
// maps, so the wiring caller (cmd/buildrtdemo) closes over a
// SessionStore to implement it. Recorder deliberately does not import
// internal/orchestrator: Go's structural interfaces let it satisfy
// VersionRecorder without a dependency in that direction, keeping
// versionstore a leaf package.
type Recorder struct {
	Store *Store
	Pages func(projectID string) []PageRecord
}

// NewRecorder returns a Recorder backed by store, sourcing page content
// from pages.
func NewRecorder(store *Store, pages func(projectID string) []PageRecord) *Recorder {
	return &Recorder{Store: store, Pages: pages}
}

// CreateVersion snapshots the project's current pages onto its default
// branch and returns the new version's id.
func (r *Recorder) CreateVersion(ctx context.Context, projectID string, tasksCompleted []string) (string, error) {
	branch, err := r.Store.EnsureDefaultBranch(ctx, projectID)
	if err != nil {
		return "", err
	}
	v, err := r.Store.CreateVersion(ctx, projectID, branch.ID, r.Pages(projectID),
		tasksCompleted, strings.Join(tasksCompleted, ", "))
	if err != nil {
		return "", err
	}
	return v.ID, nil
}

// RecordFailedAttempt records a failed build's page snapshot and
// diagnostics against the project's default branch.
func (r *Recorder) RecordFailedAttempt(ctx context.Context, projectID string, diagnostics []string) error {
	branch, err := r.Store.EnsureDefaultBranch(ctx, projectID)
	if err != nil {
		return err
	}
	_, err = r.Store.RecordFailedAttempt(ctx, projectID, branch.ID, r.Pages(projectID),
		diagnostics, strings.Join(diagnostics, "; "))
	return err
}
