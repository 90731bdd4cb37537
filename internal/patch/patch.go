// Package patch implements unified-diff parsing and application for the
// build runtime's RepoTools.ApplyPatch tool (spec.md §4.2). It is a direct
// structural port of
// original_source/backend/app/services/build_runtime/repo_tools.py's
// _parse_diff/_apply_hunks/apply_patch, written in the teacher's Go idiom:
// typed errors instead of raised strings, an explicit project-root escape
// check, and one result struct returned instead of a dict.
package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Error is a structural diff parse/apply failure. The message text mirrors
// repo_tools.py's ValueError strings, since spec.md names these as the
// error surface callers act on.
type Error struct {
	Path string
	Msg  string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// lineOp is one diff line within a hunk: tag is ' ', '+', or '-'.
type lineOp struct {
	tag  byte
	text string
}

// Hunk is one @@ ... @@ block.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []lineOp
}

// FileDiff is one file's worth of hunks plus its delete/create flags.
type FileDiff struct {
	Path    string
	Delete  bool
	NewFile bool
	Hunks   []Hunk
}

var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParseDiff parses a unified diff into one FileDiff per touched file, in
// the order they appear. Files are keyed by their "+++ b/..." (or, for
// deletions, "--- a/...") path with the a/ b/ prefix stripped.
func ParseDiff(diff string) ([]FileDiff, error) {
	lines := strings.Split(diff, "\n")

	order := []string{}
	files := map[string]*FileDiff{}
	var currentPath string
	var currentOld string

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git"):
			currentPath = ""
			currentOld = ""
			continue

		case strings.HasPrefix(line, "--- "):
			currentOld = strings.SplitN(strings.TrimPrefix(line, "--- "), "\t", 2)[0]
			continue

		case strings.HasPrefix(line, "+++ "):
			newPath := strings.SplitN(strings.TrimPrefix(line, "+++ "), "\t", 2)[0]
			if newPath == "/dev/null" {
				if currentOld == "" {
					return nil, &Error{Msg: "malformed diff: delete without original path"}
				}
				path := strings.TrimPrefix(currentOld, "a/")
				files[path] = &FileDiff{Path: path, Delete: true}
				order = append(order, path)
				currentPath = path
				continue
			}
			path := strings.TrimPrefix(newPath, "b/")
			files[path] = &FileDiff{Path: path, NewFile: currentOld == "/dev/null"}
			order = append(order, path)
			currentPath = path
			continue

		case strings.HasPrefix(line, "@@ "):
			if currentPath == "" {
				return nil, &Error{Msg: "malformed diff: hunk without file header"}
			}
			m := hunkHeaderPattern.FindStringSubmatch(line)
			if m == nil {
				return nil, &Error{Msg: "malformed diff: invalid hunk header"}
			}
			oldStart, _ := strconv.Atoi(m[1])
			oldCount := 1
			if m[2] != "" {
				oldCount, _ = strconv.Atoi(m[2])
			}
			newStart, _ := strconv.Atoi(m[3])
			newCount := 1
			if m[4] != "" {
				newCount, _ = strconv.Atoi(m[4])
			}
			files[currentPath].Hunks = append(files[currentPath].Hunks, Hunk{
				OldStart: oldStart, OldCount: oldCount,
				NewStart: newStart, NewCount: newCount,
			})
			continue

		default:
			if currentPath == "" {
				continue
			}
			fd := files[currentPath]
			if len(fd.Hunks) == 0 {
				continue
			}
			if line == "" {
				continue
			}
			switch line[0] {
			case ' ', '+', '-':
				h := &fd.Hunks[len(fd.Hunks)-1]
				h.Lines = append(h.Lines, lineOp{tag: line[0], text: line[1:]})
			default:
				if strings.HasPrefix(line, `\ No newline at end of file`) {
					continue
				}
			}
		}
	}

	out := make([]FileDiff, 0, len(order))
	for _, p := range order {
		out = append(out, *files[p])
	}
	return out, nil
}

// ApplyHunks applies hunks to original's content in order, verifying
// context and removal lines match exactly. Hunks whose old_start falls
// before the cursor left by a prior hunk are rejected as overlapping.
func ApplyHunks(original string, hunks []Hunk) (string, error) {
	lines := splitKeepEnds(original)
	var result []string
	idx := 0

	for _, h := range hunks {
		start := h.OldStart - 1
		if start < 0 {
			start = 0
		}
		if start < idx {
			return "", &Error{Msg: "overlapping hunks detected"}
		}
		result = append(result, lines[idx:min(start, len(lines))]...)
		idx = start

		for _, op := range h.Lines {
			switch op.tag {
			case ' ':
				if idx >= len(lines) || rstripNewline(lines[idx]) != op.text {
					return "", &Error{Msg: "hunk context mismatch"}
				}
				result = append(result, lines[idx])
				idx++
			case '-':
				if idx >= len(lines) || rstripNewline(lines[idx]) != op.text {
					return "", &Error{Msg: "hunk removal mismatch"}
				}
				idx++
			case '+':
				if strings.HasSuffix(op.text, "\n") {
					result = append(result, op.text)
				} else {
					result = append(result, op.text+"\n")
				}
			}
		}
	}

	result = append(result, lines[min(idx, len(lines)):]...)
	return strings.Join(result, ""), nil
}

func splitKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func rstripNewline(s string) string {
	return strings.TrimRight(s, "\n")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Result is RepoTools.ApplyPatch's return shape.
type Result struct {
	Applied bool
	Touched []string
	Errors  []string
}

func isWithinRoot(root, full string) bool {
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ApplyPatch parses diff and applies each file's hunks under projectRoot,
// refusing any path that escapes the root. A file is only written if its
// content changed or it didn't previously exist; deletions remove the file
// if present. Applied is true only if every file diff applied cleanly.
func ApplyPatch(projectRoot, diff string) Result {
	res := Result{}

	fileDiffs, err := ParseDiff(diff)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	for _, fd := range fileDiffs {
		fullPath := filepath.Join(projectRoot, fd.Path)
		if !isWithinRoot(projectRoot, fullPath) {
			res.Errors = append(res.Errors, fmt.Sprintf("invalid path: %s", fd.Path))
			continue
		}

		if fd.Delete {
			if _, statErr := os.Stat(fullPath); statErr == nil {
				if rmErr := os.Remove(fullPath); rmErr != nil {
					res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", fd.Path, rmErr))
					continue
				}
				res.Touched = append(res.Touched, fd.Path)
			}
			continue
		}

		var original string
		existing, readErr := os.ReadFile(fullPath)
		switch {
		case readErr == nil:
			original = string(existing)
		case os.IsNotExist(readErr):
			if !fd.NewFile {
				res.Errors = append(res.Errors, fmt.Sprintf("file not found: %s", fd.Path))
				continue
			}
		default:
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", fd.Path, readErr))
			continue
		}

		newContent, applyErr := ApplyHunks(original, fd.Hunks)
		if applyErr != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", fd.Path, applyErr))
			continue
		}

		if newContent != original || readErr != nil {
			if mkErr := os.MkdirAll(filepath.Dir(fullPath), 0o755); mkErr != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", fd.Path, mkErr))
				continue
			}
			if wErr := os.WriteFile(fullPath, []byte(newContent), 0o644); wErr != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", fd.Path, wErr))
				continue
			}
			res.Touched = append(res.Touched, fd.Path)
		}
	}

	res.Applied = len(res.Errors) == 0
	return res
}
