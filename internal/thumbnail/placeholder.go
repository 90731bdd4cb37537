package thumbnail

import "fmt"

// placeholderSVG renders a flat background with centered text, used as
// the final fallback once a job exhausts its retries. Ported from
// thumbnail_queue.py's _placeholder_svg.
func placeholderSVG(text string, width, height int, background, foreground string) []byte {
	if text == "" {
		text = "Untitled"
	}
	if len(text) > 40 {
		text = text[:40]
	}
	if background == "" {
		background = "#f3f4f6"
	}
	if foreground == "" {
		foreground = "#111827"
	}
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
  <rect width="100%%" height="100%%" fill="%s"/>
  <text x="50%%" y="50%%" text-anchor="middle" dominant-baseline="middle" fill="%s" font-family="Arial, sans-serif" font-size="32">
    %s
  </text>
</svg>`, width, height, width, height, background, foreground, text)
	return []byte(svg)
}
