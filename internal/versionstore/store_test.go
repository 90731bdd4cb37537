package versionstore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "versions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func samplePages(homeHTML string) []PageRecord {
	return []PageRecord{
		{ID: "home", Name: "Home", Slug: "home", Path: "/", IsHome: true, HTML: homeHTML},
		{ID: "about", Name: "About", Slug: "about", Path: "/about", HTML: "<h1>About</h1>"},
	}
}

func TestCreateVersionComputesChangeSummaryAgainstParent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	branch, err := store.EnsureDefaultBranch(ctx, "proj-1")
	if err != nil {
		t.Fatalf("ensure default branch: %v", err)
	}

	v1, err := store.CreateVersion(ctx, "proj-1", branch.ID, samplePages("<h1>Home v1</h1>"), []string{"Generated Home"}, "initial build")
	if err != nil {
		t.Fatalf("create version 1: %v", err)
	}
	if v1.ParentVersionID != "" {
		t.Fatalf("expected no parent for the first version, got %q", v1.ParentVersionID)
	}
	if v1.ChangeSummary.FilesChanged == 0 {
		t.Fatal("expected the first version to report changed files against an empty parent")
	}

	v2, err := store.CreateVersion(ctx, "proj-1", branch.ID, samplePages("<h1>Home v2</h1>\n<p>more</p>"), []string{"Edited Home"}, "tweak home")
	if err != nil {
		t.Fatalf("create version 2: %v", err)
	}
	if v2.ParentVersionID != v1.ID {
		t.Fatalf("expected v2's parent to be v1, got %q", v2.ParentVersionID)
	}
	if v2.ChangeSummary.FilesChanged != 1 {
		t.Fatalf("expected only home.html to differ, got %+v", v2.ChangeSummary)
	}
	if v2.ChangeSummary.LinesAdded == 0 {
		t.Fatalf("expected added lines to be counted, got %+v", v2.ChangeSummary)
	}
}

func TestGetSnapshotRoundTripsForInlineSnapshot(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	branch, _ := store.EnsureDefaultBranch(ctx, "proj-1")

	v, err := store.CreateVersion(ctx, "proj-1", branch.ID, samplePages("<h1>Home</h1>"), nil, "build")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	snap, err := store.GetSnapshot(ctx, v.ID)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if len(snap.Pages) != 2 || snap.Pages[0].HTML != "<h1>Home</h1>" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestSnapshotWindowConvertsOlderVersionsToDiffsAndReconstructs(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	branch, _ := store.EnsureDefaultBranch(ctx, "proj-1")

	var ids []string
	for i := 0; i < FullSnapshotWindow+2; i++ {
		v, err := store.CreateVersion(ctx, "proj-1", branch.ID,
			samplePages(""), []string{"step"}, "build")
		if err != nil {
			t.Fatalf("create version %d: %v", i, err)
		}
		ids = append(ids, v.ID)
	}

	oldest, err := store.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("get oldest: %v", err)
	}
	if oldest.SnapshotID != "" {
		t.Fatalf("expected the oldest version to be diff-only once outside the snapshot window, got snapshot_id=%q", oldest.SnapshotID)
	}

	snap, err := store.GetSnapshot(ctx, ids[0])
	if err != nil {
		t.Fatalf("reconstruct oldest snapshot: %v", err)
	}
	if len(snap.Pages) != 2 {
		t.Fatalf("expected reconstructed snapshot to still have 2 pages, got %d", len(snap.Pages))
	}

	newest, err := store.Get(ctx, ids[len(ids)-1])
	if err != nil {
		t.Fatalf("get newest: %v", err)
	}
	if newest.SnapshotID == "" {
		t.Fatal("expected the newest version to keep an inline snapshot")
	}
}

func TestPinEnforcesCap(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	branch, _ := store.EnsureDefaultBranch(ctx, "proj-1")

	var ids []string
	for i := 0; i < MaxPinnedVersions+1; i++ {
		v, err := store.CreateVersion(ctx, "proj-1", branch.ID, samplePages(""), nil, "build")
		if err != nil {
			t.Fatalf("create version %d: %v", i, err)
		}
		ids = append(ids, v.ID)
	}

	for i := 0; i < MaxPinnedVersions; i++ {
		if err := store.Pin(ctx, "proj-1", ids[i], true); err != nil {
			t.Fatalf("pin %d: %v", i, err)
		}
	}
	if err := store.Pin(ctx, "proj-1", ids[MaxPinnedVersions], true); err == nil {
		t.Fatal("expected pinning beyond the cap to fail")
	}
}

func TestPinMaterializesSnapshotForDiffOnlyVersion(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	branch, _ := store.EnsureDefaultBranch(ctx, "proj-1")

	var ids []string
	for i := 0; i < FullSnapshotWindow+3; i++ {
		v, err := store.CreateVersion(ctx, "proj-1", branch.ID, samplePages(""), nil, "build")
		if err != nil {
			t.Fatalf("create version %d: %v", i, err)
		}
		ids = append(ids, v.ID)
	}

	oldest, err := store.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("get oldest: %v", err)
	}
	if oldest.SnapshotID != "" {
		t.Fatal("expected oldest version to start diff-only")
	}

	if err := store.Pin(ctx, "proj-1", ids[0], true); err != nil {
		t.Fatalf("pin: %v", err)
	}

	pinned, err := store.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("get pinned: %v", err)
	}
	if pinned.SnapshotID == "" {
		t.Fatal("expected pinning to materialize an inline snapshot")
	}
}

func TestRollbackPagesWritesSelectedPagesAndCreatesVersion(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	branch, _ := store.EnsureDefaultBranch(ctx, "proj-1")

	v1, err := store.CreateVersion(ctx, "proj-1", branch.ID, samplePages("<h1>Home v1</h1>"), nil, "build")
	if err != nil {
		t.Fatalf("create version 1: %v", err)
	}
	_, err = store.CreateVersion(ctx, "proj-1", branch.ID, samplePages("<h1>Home v2</h1>"), nil, "build")
	if err != nil {
		t.Fatalf("create version 2: %v", err)
	}

	current := samplePages("<h1>Home v2</h1>")
	restored, newVersion, err := store.RollbackPages(ctx, "proj-1", branch.ID, v1.ID, []string{"home"}, current)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if restored[0].HTML != "<h1>Home v1</h1>" {
		t.Fatalf("expected home page restored to v1 content, got %q", restored[0].HTML)
	}
	if restored[1].HTML != "<h1>About</h1>" {
		t.Fatalf("expected about page left untouched, got %q", restored[1].HTML)
	}
	if newVersion.ChangeSummary.Description == "" {
		t.Fatal("expected a description on the rollback version")
	}
}

func TestRestoreVersionReplacesAllPages(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	branch, _ := store.EnsureDefaultBranch(ctx, "proj-1")

	v1, err := store.CreateVersion(ctx, "proj-1", branch.ID, samplePages("<h1>Home v1</h1>"), nil, "build")
	if err != nil {
		t.Fatalf("create version 1: %v", err)
	}
	_, err = store.CreateVersion(ctx, "proj-1", branch.ID, samplePages("<h1>Home v2</h1>"), nil, "build")
	if err != nil {
		t.Fatalf("create version 2: %v", err)
	}

	restored, _, err := store.RestoreVersion(ctx, "proj-1", branch.ID, v1.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored[0].HTML != "<h1>Home v1</h1>" {
		t.Fatalf("expected restored home content, got %q", restored[0].HTML)
	}
}

func TestCreateBranchClonesPagesAndEnforcesCap(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	main, _ := store.EnsureDefaultBranch(ctx, "proj-1")

	v, err := store.CreateVersion(ctx, "proj-1", main.ID, samplePages("<h1>Home</h1>"), nil, "build")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	branch, branchVersion, err := store.CreateBranch(ctx, "proj-1", "feature-a", "Feature A", v.ID)
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}
	if branch.ParentBranchID != main.ID {
		t.Fatalf("expected new branch's parent to be main, got %q", branch.ParentBranchID)
	}
	if branchVersion.ParentVersionID != v.ID {
		t.Fatalf("expected branch's initial version to point at source version, got %q", branchVersion.ParentVersionID)
	}

	snap, err := store.GetSnapshot(ctx, branchVersion.ID)
	if err != nil {
		t.Fatalf("get branch snapshot: %v", err)
	}
	if len(snap.Pages) != 2 {
		t.Fatalf("expected cloned pages, got %d", len(snap.Pages))
	}

	for i := 0; i < MaxBranchesPerProject-2; i++ {
		if _, _, err := store.CreateBranch(ctx, "proj-1", "extra-"+string(rune('a'+i)), "", v.ID); err != nil {
			t.Fatalf("create extra branch %d: %v", i, err)
		}
	}
	if _, _, err := store.CreateBranch(ctx, "proj-1", "one-too-many", "", v.ID); err == nil {
		t.Fatal("expected branch creation beyond the cap to fail")
	}
}

func TestRecordFailedAttemptDoesNotCreateAVersion(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	branch, _ := store.EnsureDefaultBranch(ctx, "proj-1")

	_, err := store.RecordFailedAttempt(ctx, "proj-1", branch.ID, samplePages(""), []string{"validation failed"}, "bad markup")
	if err != nil {
		t.Fatalf("record failed attempt: %v", err)
	}

	versions, err := store.List(ctx, branch.ID, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != 0 {
		t.Fatalf("expected no version rows created by a failed attempt, got %d", len(versions))
	}
}

func TestPruneVersionsToLimitBoundsVersionCount(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	store.PruneLimit = 2
	branch, _ := store.EnsureDefaultBranch(ctx, "proj-1")

	var ids []string
	for i := 0; i < 5; i++ {
		v, err := store.CreateVersion(ctx, "proj-1", branch.ID, samplePages(""), nil, "build")
		if err != nil {
			t.Fatalf("create version %d: %v", i, err)
		}
		ids = append(ids, v.ID)
	}

	versions, err := store.List(ctx, branch.ID, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) > 3 {
		t.Fatalf("expected pruning to bound the branch to roughly PruneLimit versions, got %d", len(versions))
	}
}
