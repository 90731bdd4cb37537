package main

import (
	"context"

	"github.com/antigravity-dev/webforge/internal/ports"
)

// transportGenerator adapts a raw ports.LLMTransport into
// orchestrator.PageGenerator for the demo. Real page prompts ask for a
// fenced ```html (and optional ```javascript) block rather than a strict
// JSON schema, so this bypasses internal/agentbridge's JSON-repair Bridge
// entirely and calls the transport directly, the same way
// multi_task_orchestrator.py's _generate_page calls its LLM client without
// going through agents.py's structured-output agents.
type transportGenerator struct {
	Transport ports.LLMTransport
	Model     string
}

func (g transportGenerator) GeneratePage(ctx context.Context, prompt string) (string, error) {
	resp, err := g.Transport.ChatComplete(ctx, g.Model, []ports.ChatMessage{
		{Role: "system", Content: "You are a web page generator. Respond with a fenced ```html code block, and an optional fenced ```javascript block."},
		{Role: "user", Content: prompt},
	}, 0.7)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
