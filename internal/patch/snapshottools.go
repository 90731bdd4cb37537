package patch

import "context"

// SnapshotService is the subset of the version store SnapshotTools needs.
// internal/versionstore.Store does not implement it: its CreateVersion takes
// a branch id and page records, and it has RestoreVersion rather than
// Restore.
type SnapshotService interface {
	CreateVersion(ctx context.Context, projectID, reason string, metadata map[string]any) (string, error)
	Restore(ctx context.Context, versionID string) error
}

// SnapshotTools exposes version-store create/restore to agents as a tool
// call, narrowed to one projectID. Grounded on snapshot_tools.py's
// SnapshotTools, which does the same narrowing against a module-level
// get_snapshot_service() singleton; the Go port takes the service as a
// constructor dependency instead of reaching for a global.
type SnapshotTools struct {
	ProjectID string
	Service   SnapshotService
}

// NewSnapshotTools constructs a SnapshotTools bound to one project.
func NewSnapshotTools(projectID string, svc SnapshotService) *SnapshotTools {
	return &SnapshotTools{ProjectID: projectID, Service: svc}
}

// Create records a new version snapshot and returns its id.
func (s *SnapshotTools) Create(ctx context.Context, reason string, metadata map[string]any) (string, error) {
	return s.Service.CreateVersion(ctx, s.ProjectID, reason, metadata)
}

// Restore rolls the project back to versionID, reporting false instead of
// an error on failure — matching snapshot_tools.py's except-and-return-False
// behavior, since callers treat restore as a best-effort tool action.
func (s *SnapshotTools) Restore(ctx context.Context, versionID string) bool {
	return s.Service.Restore(ctx, versionID) == nil
}
