package patch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyPatchModifiesExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("line one\nline two\nline three\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	diff := "diff --git a/index.html b/index.html\n" +
		"--- a/index.html\n" +
		"+++ b/index.html\n" +
		"@@ -1,3 +1,3 @@\n" +
		" line one\n" +
		"-line two\n" +
		"+line TWO\n" +
		" line three\n"

	res := ApplyPatch(dir, diff)
	if !res.Applied {
		t.Fatalf("expected applied, errors: %v", res.Errors)
	}
	if len(res.Touched) != 1 || res.Touched[0] != "index.html" {
		t.Fatalf("expected index.html touched, got %v", res.Touched)
	}
	got, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	want := "line one\nline TWO\nline three\n"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestApplyPatchCreatesNewFile(t *testing.T) {
	dir := t.TempDir()
	diff := "diff --git a/pages/about.html b/pages/about.html\n" +
		"--- /dev/null\n" +
		"+++ b/pages/about.html\n" +
		"@@ -0,0 +1,2 @@\n" +
		"+<h1>About</h1>\n" +
		"+<p>hi</p>\n"

	res := ApplyPatch(dir, diff)
	if !res.Applied {
		t.Fatalf("expected applied, errors: %v", res.Errors)
	}
	got, err := os.ReadFile(filepath.Join(dir, "pages/about.html"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "<h1>About</h1>\n<p>hi</p>\n" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestApplyPatchDeletesFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "old.html")
	if err := os.WriteFile(target, []byte("gone\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	diff := "diff --git a/old.html b/old.html\n" +
		"--- a/old.html\n" +
		"+++ /dev/null\n"

	res := ApplyPatch(dir, diff)
	if !res.Applied {
		t.Fatalf("expected applied, errors: %v", res.Errors)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("expected file removed")
	}
}

func TestApplyPatchRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	diff := "diff --git a/../outside.html b/../outside.html\n" +
		"--- /dev/null\n" +
		"+++ b/../outside.html\n" +
		"@@ -0,0 +1,1 @@\n" +
		"+hack\n"

	res := ApplyPatch(dir, diff)
	if res.Applied {
		t.Fatal("expected rejection of path escape")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected an error recorded")
	}
}

func TestApplyPatchRejectsContextMismatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("alpha\nbeta\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	diff := "diff --git a/index.html b/index.html\n" +
		"--- a/index.html\n" +
		"+++ b/index.html\n" +
		"@@ -1,2 +1,2 @@\n" +
		" wrong-context\n" +
		"-beta\n" +
		"+BETA\n"

	res := ApplyPatch(dir, diff)
	if res.Applied {
		t.Fatal("expected rejection on context mismatch")
	}
}

func TestApplyHunksRejectsOverlappingHunks(t *testing.T) {
	original := "a\nb\nc\nd\n"
	hunks := []Hunk{
		{OldStart: 1, Lines: []lineOp{{' ', "a"}, {'-', "b"}, {'+', "B"}}},
		{OldStart: 1, Lines: []lineOp{{' ', "a"}}},
	}
	if _, err := ApplyHunks(original, hunks); err == nil {
		t.Fatal("expected overlapping hunk error")
	}
}

func TestParseDiffRejectsHunkWithoutFileHeader(t *testing.T) {
	_, err := ParseDiff("@@ -1,1 +1,1 @@\n-a\n+b\n")
	if err == nil {
		t.Fatal("expected error for hunk without file header")
	}
}
