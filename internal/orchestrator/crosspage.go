package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/antigravity-dev/webforge/internal/buildstate"
	"github.com/antigravity-dev/webforge/internal/validator"
)

var codeFencePattern = func(lang string) *regexp.Regexp {
	return regexp.MustCompile("(?is)```" + lang + `\s*([\s\S]*?)` + "```")
}

var (
	htmlFencePattern  = codeFencePattern("html")
	jsFencePattern    = codeFencePattern("js")
	jsAltFencePattern = codeFencePattern("javascript")
)

func extractCodeBlock(text string, pattern *regexp.Regexp) string {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractHTMLJS pulls the HTML and optional JS fenced code blocks out of a
// model response, falling back to the whole response as HTML when no
// ```html``` block is present. Ported from multi_task_orchestrator.py's
// _extract_html_js/_extract_code_block.
func extractHTMLJS(text string) (htmlOut, jsOut string) {
	htmlOut = extractCodeBlock(text, htmlFencePattern)
	jsOut = extractCodeBlock(text, jsFencePattern)
	if jsOut == "" {
		jsOut = extractCodeBlock(text, jsAltFencePattern)
	}
	if htmlOut == "" {
		htmlOut = strings.TrimSpace(text)
	}
	return htmlOut, jsOut
}

var slugInvalidRun = regexp.MustCompile(`[^a-z0-9]+`)
var slugEdgeDashes = regexp.MustCompile(`^-+|-+$`)

// slugify ports multi_task_orchestrator.py's _slugify.
func slugify(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = slugInvalidRun.ReplaceAllString(v, "-")
	v = slugEdgeDashes.ReplaceAllString(v, "")
	if v == "" {
		return "page"
	}
	return v
}

func formatSections(sections []PageSection) string {
	if len(sections) == 0 {
		return "- No sections provided"
	}
	var b strings.Builder
	for _, s := range sections {
		priority := s.Priority
		if priority == "" {
			priority = "medium"
		}
		fmt.Fprintf(&b, "- %s: %s (priority: %s)\n", s.Name, s.Description, priority)
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinNonEmpty(items []string, sep string) string {
	var filtered []string
	for _, i := range items {
		if i != "" {
			filtered = append(filtered, i)
		}
	}
	return strings.Join(filtered, sep)
}

// buildPagePrompt ports multi_task_orchestrator.py's _build_page_prompt.
func buildPagePrompt(page buildstate.PageSpec, doc ProductDoc, sess *buildstate.BuildSession) string {
	pageSections := doc.Sections
	if len(page.Sections) > 0 {
		var filtered []PageSection
		want := map[string]bool{}
		for _, name := range page.Sections {
			want[name] = true
		}
		for _, s := range doc.Sections {
			if want[s.Name] {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) > 0 {
			pageSections = filtered
		}
	}

	var prevPages []string
	for _, p := range sess.Pages {
		if sess.Completed[p.ID] {
			prevPages = append(prevPages, p.Name)
		}
	}
	existing := "This is the first page"
	if len(prevPages) > 0 {
		existing = strings.Join(prevPages, ", ")
	}

	var nav strings.Builder
	for _, p := range sess.Pages {
		fmt.Fprintf(&nav, "- %s: %s\n", p.Name, p.Path)
	}

	design := doc.DesignRequirements
	style := design.Style
	if style == "" {
		style = "modern"
	}
	colors := joinNonEmpty(design.Colors, ", ")
	if colors == "" {
		colors = "neutral"
	}
	typography := design.Typography
	if typography == "" {
		typography = "sans-serif"
	}
	mood := design.Mood
	if mood == "" {
		mood = "professional"
	}

	return fmt.Sprintf(`Generate a mobile-first HTML page.

## Page info
- Name: %s
- Path: %s
- Is home: %v

## Project overview
%s

## Page sections
%s

## Design requirements
- Style: %s
- Colors: %s
- Typography: %s
- Mood: %s

## Existing pages
%s

## Site navigation
%s

## Technical requirements
- Use Tailwind CSS classes (no CDN script tags)
- Mobile-first responsive design
- Semantic HTML
- Do not use external images (use placeholders or SVG)
- Navigation includes links to all pages

Return a complete HTML document in `+"```html```"+` block. Optional JS in `+"```js```"+` block.
`, page.Name, page.Path, page.IsMain, doc.Overview, formatSections(pageSections), style, colors, typography, mood, existing, nav.String())
}

func hrefPattern(targetPath string) *regexp.Regexp {
	return regexp.MustCompile(`href=["']` + regexp.QuoteMeta(targetPath) + `["']`)
}

// validateCrossPageLinks ports multi_task_orchestrator.py's
// _validate_cross_page_links exactly, including its inclusive self-pair
// loop (every page's HTML must link to every page, itself included) per
// spec.md's Open Question (a) and SPEC_FULL.md's Design Note (a): this is
// the source's actual behavior and is deliberately preserved unnormalized.
func validateCrossPageLinks(pageHTML map[string]string, pages []buildstate.PageSpec) (bool, []string) {
	var errs []string
	for _, page := range pages {
		html := pageHTML[page.ID]
		if html == "" {
			errs = append(errs, fmt.Sprintf("missing HTML for %s", page.Name))
			continue
		}
		for _, target := range pages {
			if target.Path == "" {
				continue
			}
			if !hrefPattern(target.Path).MatchString(html) {
				errs = append(errs, fmt.Sprintf("%s missing link to %s", page.Name, target.Path))
			}
		}
	}
	return len(errs) == 0, errs
}

// buildLinkErrorDetail ports _build_project_link_error_detail.
func buildLinkErrorDetail(message string) validator.Detail {
	pageName, targetPath := "", ""
	if idx := strings.Index(message, " missing link to "); idx != -1 {
		pageName = strings.TrimSpace(message[:idx])
		targetPath = message[idx+len(" missing link to "):]
	}
	path := ""
	if pageName != "" {
		path = fmt.Sprintf("pages/%s.html", slugify(pageName))
	}
	suggestedFix := "Update navigation links between pages."
	if pageName != "" && targetPath != "" {
		suggestedFix = fmt.Sprintf("Add a link to %s on %s.", targetPath, pageName)
	}
	return validator.Detail{
		RuleID:       "resource-missing-link",
		RuleCategory: "resource",
		Path:         path,
		Line:         0,
		Excerpt:      "",
		Message:      message,
		SuggestedFix: suggestedFix,
		Severity:     "critical",
	}
}
