package thumbnail

import (
	"fmt"

	"github.com/antigravity-dev/webforge/internal/validator"
)

// buildInlineStyles wraps designCSS in a <style> tag for injection into
// the capture document's <head>. The source's build_inline_styles
// (template_renderer.py) fell outside the filtered original_source
// retrieval, so this reconstructs only what thumbnail_queue.py's call
// site needs: the design CSS available as inline styles on the captured
// page; body-specific inlining the original may additionally perform is
// not reproduced.
func buildInlineStyles(designCSS string) string {
	return "<style>" + designCSS + "</style>"
}

// captureDocument assembles the standalone HTML document a headless
// browser loads for a screenshot. Ported from thumbnail_queue.py's
// _capture_document. Script tags are stripped via validator.SanitizeHTML
// before this is called, substituting for the source's
// strip_script_tags helper (also outside the filtered original_source).
func captureDocument(bodyHTML, styles, title string) string {
	if title == "" {
		title = "Preview"
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>%s</title>
    %s
  </head>
  <body class="bg-white antialiased">
    %s
  </body>
</html>`, title, styles, bodyHTML)
}

// renderCaptureDocument is the full pipeline from raw page HTML +
// DesignSystem to a capture-ready document: extract the body, strip
// scripts, build inline styles, assemble the document.
func renderCaptureDocument(pageHTML, title string, ds DesignSystem) string {
	body := validator.ExtractBodyContent(pageHTML)
	sanitizedBody := validator.SanitizeHTML(body)
	styles := buildInlineStyles(buildDesignCSS(ds))
	return captureDocument(sanitizedBody, styles, title)
}
