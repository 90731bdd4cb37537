// Package agentbridge ports the build runtime's LLM agent contract:
// BaseAgent's prompt-build/call/parse pipeline and the three concrete
// agents (Planner, Implementer, Reviewer). Grounded on
// original_source/backend/app/services/build_runtime/agents.py.
package agentbridge

import (
	"encoding/json"
	"fmt"
	"strings"
)

func looksLikeJSON(s string) bool {
	return json.Valid([]byte(s))
}

// stripCodeFence removes a single leading/trailing ``` fence, if present,
// ported from agents.py's _strip_code_fence.
func stripCodeFence(text string) string {
	stripped := strings.TrimSpace(text)
	if !strings.HasPrefix(stripped, "```") {
		return stripped
	}
	lines := strings.Split(stripped, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONText returns the span from the first '{' to the last '}', or
// "" if none is found, ported from agents.py's _extract_json_text.
func extractJSONText(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// sanitizeJSON escapes raw control characters found inside JSON string
// literals, ported character-for-character from agents.py's _sanitize_json.
func sanitizeJSON(text string) string {
	var out strings.Builder
	inString := false
	escape := false
	for _, ch := range text {
		if escape {
			out.WriteRune(ch)
			escape = false
			continue
		}
		if ch == '\\' {
			out.WriteRune(ch)
			escape = true
			continue
		}
		if ch == '"' {
			out.WriteRune(ch)
			inString = !inString
			continue
		}
		if inString && ch < 0x20 {
			switch ch {
			case '\n':
				out.WriteString(`\n`)
			case '\r':
				out.WriteString(`\r`)
			case '\t':
				out.WriteString(`\t`)
			default:
				fmt.Fprintf(&out, `\u%04x`, ch)
			}
			continue
		}
		out.WriteRune(ch)
	}
	return out.String()
}

// excerptLen bounds the error message's embedded excerpt, matching
// agents.py's `text[:200]`.
const excerptLen = 200

// ParseOutputRaw runs the fixed three-step repair pipeline (strip fence →
// extract {...} span → sanitize control chars) against candidates in the
// order agents.py tries them, returning the raw JSON text of the first
// candidate that is syntactically well-formed enough to hand to a JSON
// decoder. It does not itself decode JSON — decoding and schema validation
// is the caller's job (see Run), since the two client-facing levels
// (string repair vs. struct validation) are independently testable.
func ParseOutputRaw(response string) (string, error) {
	text := stripCodeFence(response)
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	candidates := []string{text}
	if extracted := extractJSONText(text); extracted != "" {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		if looksLikeJSON(candidate) {
			return candidate, nil
		}
		sanitized := sanitizeJSON(candidate)
		if looksLikeJSON(sanitized) {
			return sanitized, nil
		}
	}

	excerpt := text
	if len(excerpt) > excerptLen {
		excerpt = excerpt[:excerptLen]
	}
	return "", fmt.Errorf("invalid JSON: %s", excerpt)
}
