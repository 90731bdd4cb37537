package thumbnail

import (
	"fmt"
	"sort"
	"strings"
)

// Typography describes one font role (heading or body) in a DesignSystem.
type Typography struct {
	Family     string
	Size       string
	Weight     int
	LineHeight float64
}

// DesignSystem is the subset of a page's design tokens the thumbnail
// capture document needs to render faithfully. Grounded on
// thumbnail_queue.py's _build_design_css, which reads this shape out of
// ProjectPage.design_system's loosely-typed dict.
type DesignSystem struct {
	Colors         map[string]string
	Heading        Typography
	Body           Typography
	Spacing        string
	BorderRadius   string
	AnimationLevel string
}

var spacingMap = map[string]string{"compact": "12px", "comfortable": "16px", "spacious": "20px"}
var radiusMap = map[string]string{"none": "0px", "small": "4px", "medium": "8px", "large": "16px", "full": "9999px"}
var animationMap = map[string]string{"none": "0ms", "subtle": "150ms", "moderate": "250ms", "energetic": "400ms"}

func mapLookup(m map[string]string, key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// buildDesignCSS renders a :root custom-property block from a
// DesignSystem, ported from thumbnail_queue.py's _build_design_css.
func buildDesignCSS(ds DesignSystem) string {
	var vars []string

	var colorKeys []string
	for k := range ds.Colors {
		colorKeys = append(colorKeys, k)
	}
	sort.Strings(colorKeys)
	for _, k := range colorKeys {
		vars = append(vars, fmt.Sprintf("--color-%s: %s;", k, ds.Colors[k]))
	}

	if ds.Heading != (Typography{}) {
		family, size, weight, lineHeight := ds.Heading.Family, ds.Heading.Size, ds.Heading.Weight, ds.Heading.LineHeight
		if family == "" {
			family = "Inter"
		}
		if size == "" {
			size = "large"
		}
		if weight == 0 {
			weight = 600
		}
		if lineHeight == 0 {
			lineHeight = 1.4
		}
		vars = append(vars,
			fmt.Sprintf("--font-heading-family: %s;", family),
			fmt.Sprintf("--font-heading-size: %s;", size),
			fmt.Sprintf("--font-heading-weight: %d;", weight),
			fmt.Sprintf("--font-heading-line-height: %g;", lineHeight),
		)
	}
	if ds.Body != (Typography{}) {
		family, size, weight, lineHeight := ds.Body.Family, ds.Body.Size, ds.Body.Weight, ds.Body.LineHeight
		if family == "" {
			family = "Inter"
		}
		if size == "" {
			size = "medium"
		}
		if weight == 0 {
			weight = 400
		}
		if lineHeight == 0 {
			lineHeight = 1.6
		}
		vars = append(vars,
			fmt.Sprintf("--font-body-family: %s;", family),
			fmt.Sprintf("--font-body-size: %s;", size),
			fmt.Sprintf("--font-body-weight: %d;", weight),
			fmt.Sprintf("--font-body-line-height: %g;", lineHeight),
		)
	}

	vars = append(vars,
		fmt.Sprintf("--spacing-base: %s;", mapLookup(spacingMap, ds.Spacing, "16px")),
		fmt.Sprintf("--radius-base: %s;", mapLookup(radiusMap, ds.BorderRadius, "8px")),
		fmt.Sprintf("--animation-duration: %s;", mapLookup(animationMap, ds.AnimationLevel, "150ms")),
	)

	return "\n:root {\n  " + strings.Join(vars, "\n  ") + "\n}\n"
}
