package versionstore

import (
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	slugInvalidRun = regexp.MustCompile(`[^a-z0-9]+`)
	slugEdgeDashes = regexp.MustCompile(`^-+|-+$`)
)

// slugify mirrors multi_task_orchestrator.py's _slugify (also ported
// independently in internal/orchestrator/crosspage.go, since a shared
// helper would require this leaf package to import orchestrator and
// create a cycle once orchestrator wires in a versionstore-backed
// VersionRecorder).
func slugify(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = slugInvalidRun.ReplaceAllString(v, "-")
	v = slugEdgeDashes.ReplaceAllString(v, "")
	if v == "" {
		return "page"
	}
	return v
}

// countLineChanges reports how many lines were added and deleted going
// from oldText to newText. The source computes this with Python's
// difflib.SequenceMatcher opcodes walked over line lists
// (_count_line_changes); go-diff has no line-opcode API, so this uses its
// documented line-mode idiom instead — DiffLinesToChars encodes each
// distinct line as one rune, DiffMain diffs the encoded strings, and
// DiffCharsToLines expands the result back to line runs — then sums the
// line counts of the insert/delete runs. This is the library's own
// prescribed substitute for line-level diffing, not a character-level
// diff misapplied to lines.
func countLineChanges(oldText, newText string) (added, deleted int) {
	dmp := diffmatchpatch.New()
	oldEnc, newEnc, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(oldEnc, newEnc, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += countLines(d.Text)
		}
	}
	return added, deleted
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// makePatch produces a diff-match-patch patch transforming base into
// target, serialized the way patch_fromText/patch_apply expect. Grounded
// on version_service.py's _enforce_snapshot_window, which stores exactly
// this text as a VersionDiff row.
func makePatch(base, target string) string {
	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(base, target)
	return dmp.PatchToText(patches)
}

// applyPatch reconstructs the target text a patch was made against, given
// its base text. Mirrors version_service.py's _apply_patch, which raises
// if any hunk fails to apply; this returns an error with the same
// intent.
func applyPatch(base, patchText string) (string, error) {
	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return "", err
	}
	result, applied := dmp.PatchApply(patches, base)
	for _, ok := range applied {
		if !ok {
			return "", errPatchFailed
		}
	}
	return result, nil
}
