package validator

import (
	"strings"
	"testing"
)

func TestValidateHTMLCatchesScriptTag(t *testing.T) {
	res := ValidateHTML(`<div>hi</div><script>alert(1)</script>`, "pages/home.html")
	if res.OK {
		t.Fatal("expected not ok")
	}
	if len(res.ErrorDetails) == 0 || res.ErrorDetails[0].RuleID != "html-no-script-tag" {
		t.Fatalf("expected html-no-script-tag, got %+v", res.ErrorDetails)
	}
	if res.ErrorDetails[0].Severity != "critical" {
		t.Fatalf("expected critical severity, got %s", res.ErrorDetails[0].Severity)
	}
}

func TestValidateHTMLCleanPasses(t *testing.T) {
	res := ValidateHTML(`<div class="hero"><h1>Hello</h1></div>`, "")
	if !res.OK {
		t.Fatalf("expected ok, got errors: %v", res.Errors)
	}
	if !strings.Contains(res.NormalizedHTML, "<!DOCTYPE html>") {
		t.Fatalf("expected normalized wrapper, got %s", res.NormalizedHTML)
	}
	if !strings.Contains(res.NormalizedHTML, `name="viewport"`) {
		t.Fatal("expected viewport meta tag in normalized output")
	}
}

func TestValidateJSCatchesFetchAndBareGlobal(t *testing.T) {
	res := ValidateJS(`fetch("/x"); console.log(localStorage);`, "pages/home.js")
	if res.OK {
		t.Fatal("expected not ok")
	}
	ids := map[string]bool{}
	for _, d := range res.ErrorDetails {
		ids[d.RuleID] = true
	}
	if !ids["js-no-fetch"] {
		t.Fatalf("expected js-no-fetch, got %+v", res.ErrorDetails)
	}
	if !ids["js-no-localstorage"] {
		t.Fatalf("expected js-no-localstorage, got %+v", res.ErrorDetails)
	}
}

func TestValidateJSCleanPasses(t *testing.T) {
	res := ValidateJS(`document.querySelector(".btn").addEventListener("click", () => {});`, "")
	if !res.OK {
		t.Fatalf("expected ok, got %v", res.Errors)
	}
}

func TestNormalizeHTMLIdempotentOnAlreadyNormalized(t *testing.T) {
	first := NormalizeHTML("<p>hi</p>")
	second := NormalizeHTML(first)
	if first != second {
		t.Fatalf("expected idempotent normalization:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestSanitizeHTMLStripsDisallowedTagsKeepsText(t *testing.T) {
	out := SanitizeHTML(`<div onclick="x()">safe</div><blink>gone tag but kept text</blink>`)
	if strings.Contains(out, "onclick") {
		t.Fatalf("expected onclick attribute stripped: %s", out)
	}
	if !strings.Contains(out, "gone tag but kept text") {
		t.Fatalf("expected text content of disallowed tag preserved: %s", out)
	}
	if strings.Contains(out, "<blink") {
		t.Fatalf("expected <blink> tag itself stripped: %s", out)
	}
}
