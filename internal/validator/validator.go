// Package validator implements the fixed HTML/JS security ruleset and
// HTML normalization/sanitization described in spec.md §4.1. It is pure
// and synchronous: no I/O, no agent calls. Ported from
// original_source/backend/app/services/validator.py.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Detail is one structured diagnostic, field-for-field from
// validator.py's _build_error_detail.
type Detail struct {
	RuleID       string `json:"ruleId"`
	RuleCategory string `json:"ruleCategory"`
	Path         string `json:"path,omitempty"`
	Line         int    `json:"line"`
	Excerpt      string `json:"excerpt"`
	Message      string `json:"message"`
	SuggestedFix string `json:"suggestedFix"`
	Severity     string `json:"severity"`
}

// HTMLResult is ValidateHTML's return shape.
type HTMLResult struct {
	OK             bool
	Errors         []string
	Warnings       []string
	NormalizedHTML string
	ErrorDetails   []Detail
}

// JSResult is ValidateJS's return shape.
type JSResult struct {
	OK           bool
	Errors       []string
	ErrorDetails []Detail
}

const maxExcerptLen = 200

func lineExcerpt(text string, idx int) (line int, excerpt string) {
	line = 1 + strings.Count(text[:idx], "\n")
	start := strings.LastIndex(text[:idx], "\n") + 1
	end := strings.IndexByte(text[idx:], '\n')
	if end == -1 {
		end = len(text)
	} else {
		end += idx
	}
	raw := strings.TrimSpace(text[start:end])
	if len(raw) > maxExcerptLen {
		raw = raw[:maxExcerptLen-3] + "..."
	}
	return line, raw
}

func scan(text, path string, rules []Rule) (errs []string, details []Detail) {
	for _, r := range rules {
		loc := r.Pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		line, excerpt := lineExcerpt(text, loc[0])
		msg := fmt.Sprintf("%s: %s", r.Category, r.Message)
		errs = append(errs, msg)
		details = append(details, Detail{
			RuleID:       r.ID,
			RuleCategory: r.Category,
			Path:         path,
			Line:         line,
			Excerpt:      excerpt,
			Message:      r.Message,
			SuggestedFix: r.SuggestedFix,
			Severity:     r.Severity,
		})
	}
	return errs, details
}

// ScanHTMLErrors runs the fixed HTML ruleset against raw markup.
func ScanHTMLErrors(markup, path string) ([]string, []Detail) {
	return scan(markup, path, htmlRules)
}

var globalRefPattern = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(blockedGlobals))
	for _, g := range blockedGlobals {
		m[g] = regexp.MustCompile(`\b` + g + `\b`)
	}
	return m
}()

// ScanJSErrors runs the fixed JS ruleset plus the secondary bare-global scan
// against raw JS source.
func ScanJSErrors(code, path string) ([]string, []Detail) {
	errs, details := scan(code, path, jsRules)

	seen := make(map[string]bool, len(details))
	for _, d := range details {
		seen[d.RuleID] = true
	}
	for _, g := range blockedGlobals {
		ruleID := "js-no-" + strings.ToLower(g)
		if seen[ruleID] {
			continue
		}
		re := globalRefPattern[g]
		loc := re.FindStringIndex(code)
		if loc == nil {
			continue
		}
		line, excerpt := lineExcerpt(code, loc[0])
		errs = append(errs, fmt.Sprintf("security: bare reference to %s is not allowed", g))
		details = append(details, Detail{
			RuleID:       ruleID,
			RuleCategory: "security",
			Path:         path,
			Line:         line,
			Excerpt:      excerpt,
			Message:      fmt.Sprintf("bare reference to %s is not allowed", g),
			SuggestedFix: "remove the reference to this blocked global",
			Severity:     "critical",
		})
		seen[ruleID] = true
	}
	return errs, details
}

// ValidateJS runs the JS ruleset and reports overall validity.
func ValidateJS(code, path string) JSResult {
	errs, details := ScanJSErrors(code, path)
	return JSResult{OK: len(errs) == 0, Errors: errs, ErrorDetails: details}
}

var bodyPattern = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

// ExtractBodyContent returns the inner content of <body>...</body>, or the
// whole input if no body tag is present.
func ExtractBodyContent(markup string) string {
	m := bodyPattern.FindStringSubmatch(markup)
	if m == nil {
		return markup
	}
	return m[1]
}

var docWrapperPattern = regexp.MustCompile(`(?i)<!DOCTYPE|<html`)
var headOpenPattern = regexp.MustCompile(`(?i)<head[^>]*>`)
var viewportPattern = regexp.MustCompile(`(?i)name=["']viewport["']`)

// NormalizeHTML ensures a viewport meta tag exists if the input already
// looks like a full document; otherwise wraps the fragment in a standard
// document with charset, viewport, and a title placeholder.
func NormalizeHTML(markup string) string {
	if docWrapperPattern.MatchString(markup) {
		if viewportPattern.MatchString(markup) {
			return markup
		}
		loc := headOpenPattern.FindStringIndex(markup)
		if loc == nil {
			return markup
		}
		return markup[:loc[1]] + `<meta name="viewport" content="width=device-width, initial-scale=1">` + markup[loc[1]:]
	}

	return "<!DOCTYPE html>\n" +
		`<html lang="en">` + "\n" +
		"<head>\n" +
		`  <meta charset="UTF-8">` + "\n" +
		`  <meta name="viewport" content="width=device-width, initial-scale=1">` + "\n" +
		"  <title>Page</title>\n" +
		"</head>\n" +
		"<body>\n" + markup + "\n</body>\n</html>"
}

// ValidateHTML scans for rule violations, then normalizes and sanitizes the
// body content.
func ValidateHTML(markup, path string) HTMLResult {
	errs, details := ScanHTMLErrors(markup, path)

	body := ExtractBodyContent(markup)
	sanitized := SanitizeHTML(body)
	normalized := NormalizeHTML(sanitized)

	return HTMLResult{
		OK:             len(errs) == 0,
		Errors:         errs,
		Warnings:       nil,
		NormalizedHTML: normalized,
		ErrorDetails:   details,
	}
}

// allowedTags mirrors validator.py's ALLOWED_TAGS allow-list.
var allowedTags = map[string]bool{
	"div": true, "span": true, "p": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "a": true, "img": true, "ul": true,
	"ol": true, "li": true, "button": true, "form": true, "input": true,
	"textarea": true, "label": true, "select": true, "option": true,
	"section": true, "article": true, "header": true, "footer": true,
	"nav": true, "main": true, "table": true, "tr": true, "td": true,
	"th": true, "thead": true, "tbody": true, "strong": true, "em": true,
	"br": true, "hr": true, "small": true, "sub": true, "sup": true,
}

// allowedAttrsByTag mirrors ALLOWED_ATTRS_BY_TAG plus the wildcard
// class|id|style|data-* set applied to every tag.
var allowedAttrsByTag = map[string]map[string]bool{
	"a":      {"href": true, "target": true, "rel": true},
	"img":    {"src": true, "alt": true, "width": true, "height": true},
	"input":  {"type": true, "name": true, "placeholder": true, "value": true, "required": true},
	"form":   {"action": true, "method": true},
	"button": {"type": true},
	"select": {"name": true},
	"option": {"value": true, "selected": true},
}

func attrAllowed(tag, name string) bool {
	if strings.HasPrefix(name, "data-") {
		return true
	}
	if name == "class" || name == "id" || name == "style" {
		return true
	}
	if m, ok := allowedAttrsByTag[tag]; ok && m[name] {
		return true
	}
	return false
}

// SanitizeHTML walks the parsed body fragment and rebuilds it keeping only
// allow-listed tags and attributes. A disallowed element's tag and
// attributes are dropped but its children, text included, are kept, except
// for <script>, which is dropped together with its content; comments are
// dropped. Grounded on validator.py's bleach.clean call; implemented
// against golang.org/x/net/html since no bleach-equivalent sanitizer
// appears anywhere in the example pack.
func SanitizeHTML(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return fragment
	}

	var b strings.Builder
	for _, n := range nodes {
		renderSanitized(&b, n)
	}
	return b.String()
}

func renderSanitized(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(html.EscapeString(n.Data))
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if !allowedTags[tag] {
			if tag == "script" {
				return
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				renderSanitized(b, c)
			}
			return
		}
		b.WriteString("<" + tag)
		for _, a := range n.Attr {
			if attrAllowed(tag, strings.ToLower(a.Key)) {
				fmt.Fprintf(b, ` %s="%s"`, a.Key, html.EscapeString(a.Val))
			}
		}
		b.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderSanitized(b, c)
		}
		if !voidElement[tag] {
			b.WriteString("</" + tag + ">")
		}
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderSanitized(b, c)
		}
	}
}

var voidElement = map[string]bool{"img": true, "br": true, "hr": true, "input": true}
