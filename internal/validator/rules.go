package validator

import "regexp"

// Rule is one entry in the fixed HTML/JS ruleset. Rule ids are stable.
type Rule struct {
	ID           string
	Category     string
	Pattern      *regexp.Regexp
	Severity     string
	Message      string
	SuggestedFix string
}

// htmlRules is the fixed, critical-only HTML ruleset, ported from
// validator.py's _HTML_RULES table. HTML rules compile case-insensitively.
var htmlRules = []Rule{
	{
		ID: "html-no-script-tag", Category: "security",
		Pattern:      regexp.MustCompile(`(?i)<script\b`),
		Severity:     "critical",
		Message:      "inline <script> tags are not allowed",
		SuggestedFix: "remove the <script> tag; use the JS block instead",
	},
	{
		ID: "html-no-iframe", Category: "security",
		Pattern:      regexp.MustCompile(`(?i)<iframe\b`),
		Severity:     "critical",
		Message:      "<iframe> elements are not allowed",
		SuggestedFix: "remove the <iframe> element",
	},
	{
		ID: "html-no-object", Category: "security",
		Pattern:      regexp.MustCompile(`(?i)<object\b`),
		Severity:     "critical",
		Message:      "<object> elements are not allowed",
		SuggestedFix: "remove the <object> element",
	},
	{
		ID: "html-no-embed", Category: "security",
		Pattern:      regexp.MustCompile(`(?i)<embed\b`),
		Severity:     "critical",
		Message:      "<embed> elements are not allowed",
		SuggestedFix: "remove the <embed> element",
	},
	{
		ID: "html-no-javascript-protocol", Category: "security",
		Pattern:      regexp.MustCompile(`(?i)javascript:`),
		Severity:     "critical",
		Message:      "javascript: URLs are not allowed",
		SuggestedFix: "use a real href or a data attribute with a click handler instead",
	},
	{
		ID: "html-no-inline-event", Category: "security",
		Pattern:      regexp.MustCompile(`(?i)\son\w+\s*=`),
		Severity:     "critical",
		Message:      "inline event handler attributes are not allowed",
		SuggestedFix: "attach the listener from the JS block instead",
	},
	{
		ID: "csp-no-tailwind-cdn", Category: "security",
		Pattern:      regexp.MustCompile(`(?i)cdn\.tailwindcss\.com`),
		Severity:     "critical",
		Message:      "external Tailwind CDN script is not allowed",
		SuggestedFix: "inline the required styles instead of loading an external CDN script",
	},
}

// jsRules is the fixed, critical-only JS ruleset, ported from
// validator.py's _JS_RULES table. JS rules do NOT compile case-insensitively
// — this asymmetry with htmlRules is preserved from the source.
var jsRules = []Rule{
	{
		ID: "js-no-eval", Category: "security",
		Pattern:      regexp.MustCompile(`\beval\s*\(`),
		Severity:     "critical",
		Message:      "eval() is not allowed",
		SuggestedFix: "avoid dynamic code execution",
	},
	{
		ID: "js-no-function-constructor", Category: "security",
		Pattern:      regexp.MustCompile(`\bFunction\s*\(`),
		Severity:     "critical",
		Message:      "the Function constructor is not allowed",
		SuggestedFix: "avoid dynamic code execution",
	},
	{
		ID: "js-no-fetch", Category: "security",
		Pattern:      regexp.MustCompile(`\bfetch\s*\(`),
		Severity:     "critical",
		Message:      "fetch() is not allowed",
		SuggestedFix: "network access is not permitted from generated pages",
	},
	{
		ID: "js-no-xhr", Category: "security",
		Pattern:      regexp.MustCompile(`\bXMLHttpRequest\b`),
		Severity:     "critical",
		Message:      "XMLHttpRequest is not allowed",
		SuggestedFix: "network access is not permitted from generated pages",
	},
	{
		ID: "js-no-websocket", Category: "security",
		Pattern:      regexp.MustCompile(`\bWebSocket\s*\(`),
		Severity:     "critical",
		Message:      "WebSocket is not allowed",
		SuggestedFix: "network access is not permitted from generated pages",
	},
	{
		ID: "js-no-localstorage", Category: "security",
		Pattern:      regexp.MustCompile(`\blocalStorage\b`),
		Severity:     "critical",
		Message:      "localStorage access is not allowed",
		SuggestedFix: "persistent client storage is not permitted",
	},
	{
		ID: "js-no-sessionstorage", Category: "security",
		Pattern:      regexp.MustCompile(`\bsessionStorage\b`),
		Severity:     "critical",
		Message:      "sessionStorage access is not allowed",
		SuggestedFix: "persistent client storage is not permitted",
	},
	{
		ID: "js-no-cookie", Category: "security",
		Pattern:      regexp.MustCompile(`document\.cookie`),
		Severity:     "critical",
		Message:      "document.cookie access is not allowed",
		SuggestedFix: "cookie access is not permitted from generated pages",
	},
	{
		ID: "js-no-frame-access", Category: "security",
		Pattern:      regexp.MustCompile(`window\.(top|parent|opener)\b`),
		Severity:     "critical",
		Message:      "access to window.top/parent/opener is not allowed",
		SuggestedFix: "frame-escaping access is not permitted",
	},
	{
		ID: "js-no-string-timeout", Category: "security",
		Pattern:      regexp.MustCompile(`setTimeout\s*\(\s*["']`),
		Severity:     "critical",
		Message:      "string-form setTimeout is not allowed",
		SuggestedFix: "pass a function, not a string, to setTimeout",
	},
	{
		ID: "js-no-string-interval", Category: "security",
		Pattern:      regexp.MustCompile(`setInterval\s*\(\s*["']`),
		Severity:     "critical",
		Message:      "string-form setInterval is not allowed",
		SuggestedFix: "pass a function, not a string, to setInterval",
	},
}

// blockedGlobals is the secondary bare-reference scan: any of these
// identifiers appearing as a word-boundary-delimited bare reference (not
// already caught by a rule above) still produces a diagnostic with rule id
// "js-no-<lowercase-name>".
var blockedGlobals = []string{
	"fetch", "XMLHttpRequest", "WebSocket", "localStorage", "sessionStorage",
}
